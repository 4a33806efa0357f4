package memory

import (
	"context"
	"testing"
	"time"

	"live-quiz-service/internal/domain"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func TestSessionStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2024, 11, 22, 10, 0, 0, 0, time.UTC)}
	store := NewSessionStoreWithClock(clock.Now)

	session := domain.QuizSession{ID: "ABC123", Title: "Trivia", Status: domain.StatusWaiting}
	if err := store.Create(ctx, session, time.Minute); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.Create(ctx, session, time.Minute); err != domain.ErrSessionExists {
		t.Fatalf("expected ErrSessionExists, got %v", err)
	}

	session.Status = domain.StatusInProgress
	if err := store.Update(ctx, session); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, ok, err := store.Get(ctx, "ABC123")
	if err != nil || !ok {
		t.Fatalf("expected session present, ok=%v err=%v", ok, err)
	}
	if got.Status != domain.StatusInProgress {
		t.Fatalf("expected updated status, got %s", got.Status)
	}

	clock.now = clock.now.Add(time.Minute)
	if ok, _ := store.Exists(ctx, "ABC123"); ok {
		t.Fatalf("expected session expired")
	}
	if err := store.Update(ctx, session); err != domain.ErrSessionNotFound {
		t.Fatalf("expected update of expired session to fail, got %v", err)
	}
	if _, ok, _ := store.Get(ctx, "ABC123"); ok {
		t.Fatalf("expired session must not be resurrected")
	}
}

func TestSessionStoreParticipants(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2024, 11, 22, 10, 0, 0, 0, time.UTC)
	store := NewSessionStore()
	if err := store.Create(ctx, domain.QuizSession{ID: "Q1"}, time.Hour); err != nil {
		t.Fatalf("create: %v", err)
	}

	_ = store.SaveParticipant(ctx, "Q1", domain.Participant{ID: "u2", DisplayName: "Bob", JoinedAt: base.Add(time.Second)})
	_ = store.SaveParticipant(ctx, "Q1", domain.Participant{ID: "u1", DisplayName: "Alice", JoinedAt: base})

	count, _ := store.CountParticipants(ctx, "Q1")
	if count != 2 {
		t.Fatalf("expected 2 participants, got %d", count)
	}
	list, _ := store.ListParticipants(ctx, "Q1")
	if len(list) != 2 || list[0].ID != "u1" {
		t.Fatalf("expected join order, got %+v", list)
	}
	if _, ok, _ := store.GetParticipant(ctx, "Q1", "u3"); ok {
		t.Fatalf("unexpected participant u3")
	}
	if err := store.SaveParticipant(ctx, "missing", domain.Participant{ID: "u1"}); err != domain.ErrSessionNotFound {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestSessionStoreSweepsExpiredSessionsOnCreate(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2024, 11, 22, 10, 0, 0, 0, time.UTC)}
	store := NewSessionStoreWithClock(clock.Now)
	var swept []string
	store.OnExpire(func(id string) { swept = append(swept, id) })

	if err := store.Create(ctx, domain.QuizSession{ID: "OLD001"}, time.Minute); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.Create(ctx, domain.QuizSession{ID: "KEEP01"}, time.Hour); err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(swept) != 0 {
		t.Fatalf("nothing has expired yet, swept %v", swept)
	}

	clock.now = clock.now.Add(2 * time.Minute)
	if err := store.Create(ctx, domain.QuizSession{ID: "NEW001"}, time.Minute); err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(swept) != 1 || swept[0] != "OLD001" {
		t.Fatalf("expected OLD001 swept, got %v", swept)
	}
	if len(store.sessions) != 2 {
		t.Fatalf("expected expired entry removed, have %d entries", len(store.sessions))
	}

	// Reusing an expired code hands the hooks that code too.
	clock.now = clock.now.Add(2 * time.Minute)
	swept = nil
	if err := store.Create(ctx, domain.QuizSession{ID: "NEW001"}, time.Minute); err != nil {
		t.Fatalf("recreate: %v", err)
	}
	if len(swept) != 1 || swept[0] != "NEW001" {
		t.Fatalf("expected NEW001 swept, got %v", swept)
	}
}
