package redis

import (
	"context"
	"testing"
	"time"

	"live-quiz-service/internal/domain"
)

func TestAnswerLedgerWriteOnce(t *testing.T) {
	mr, client := newTestRedis(t)
	ledger := NewAnswerLedger(client, time.Minute)
	ctx := context.Background()

	first := domain.AnswerRecord{QuestionID: "q1", Answer: "4", Correct: true, CorrectAnswer: "4", PointsEarned: 15}
	if err := ledger.Put(ctx, "Q1", "u1", "q1", first); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := ledger.Put(ctx, "Q1", "u1", "q1", domain.AnswerRecord{QuestionID: "q1", Answer: "5"}); err != domain.ErrAnswerExists {
		t.Fatalf("expected ErrAnswerExists, got %v", err)
	}
	if ttl := mr.TTL("quiz:session:Q1:answers:u1"); ttl <= 0 {
		t.Fatalf("expected ledger to expire, ttl=%v", ttl)
	}

	got, ok, err := ledger.Get(ctx, "Q1", "u1", "q1")
	if err != nil || !ok {
		t.Fatalf("expected record, ok=%v err=%v", ok, err)
	}
	if got.Answer != "4" || got.PointsEarned != 15 {
		t.Fatalf("record was overwritten: %+v", got)
	}
	if _, ok, _ := ledger.Get(ctx, "Q1", "u1", "q9"); ok {
		t.Fatalf("unexpected record for q9")
	}

	_ = ledger.Put(ctx, "Q1", "u1", "q2", domain.AnswerRecord{QuestionID: "q2"})
	all, err := ledger.AllForParticipant(ctx, "Q1", "u1")
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if len(all) != 2 || !all["q1"].Correct {
		t.Fatalf("unexpected ledger contents: %+v", all)
	}
}

func TestAnswerLedgerExpiresWithSession(t *testing.T) {
	mr, client := newTestRedis(t)
	sessions := NewSessionStore(client)
	ledger := NewAnswerLedger(client, time.Hour)
	ctx := context.Background()

	if err := sessions.Create(ctx, domain.QuizSession{ID: "Q1"}, 30*time.Second); err != nil {
		t.Fatalf("create session: %v", err)
	}
	mr.FastForward(10 * time.Second)
	if err := ledger.Put(ctx, "Q1", "u1", "q1", domain.AnswerRecord{QuestionID: "q1"}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if ttl := mr.TTL("quiz:session:Q1:answers:u1"); ttl <= 0 || ttl > 20*time.Second {
		t.Fatalf("expected ledger deadline aligned with the session, ttl=%v", ttl)
	}

	mr.FastForward(21 * time.Second)
	if _, ok, _ := ledger.Get(ctx, "Q1", "u1", "q1"); ok {
		t.Fatalf("answers must not outlive their session")
	}
}

func TestAnswerLedgerDeleteSession(t *testing.T) {
	mr, client := newTestRedis(t)
	ledger := NewAnswerLedger(client, time.Minute)
	ctx := context.Background()

	for _, key := range []struct{ session, participant string }{{"Q1", "u1"}, {"Q1", "u2"}, {"Q10", "u1"}} {
		if err := ledger.Put(ctx, key.session, key.participant, "q1", domain.AnswerRecord{QuestionID: "q1"}); err != nil {
			t.Fatalf("put: %v", err)
		}
	}
	if err := ledger.DeleteSession(ctx, "Q1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if mr.Exists("quiz:session:Q1:answers:u1") || mr.Exists("quiz:session:Q1:answers:u2") {
		t.Fatalf("answers of Q1 must be gone")
	}
	if !mr.Exists("quiz:session:Q10:answers:u1") {
		t.Fatalf("Q10 shares a prefix with Q1 but must keep its answers")
	}
}
