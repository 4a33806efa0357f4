package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"live-quiz-service/internal/domain"
)

// SessionStore is an in-memory implementation of app.SessionStore. Expiry is lazy:
// entries past their deadline read as absent and are swept on the next Create, which
// also runs the OnExpire hooks for every swept session.
type SessionStore struct {
	clock func() time.Time

	mu       sync.RWMutex
	sessions map[string]*sessionEntry
	onExpire []func(sessionID string)
}

type sessionEntry struct {
	session      domain.QuizSession
	expiresAt    time.Time
	participants map[string]domain.Participant
}

func NewSessionStore() *SessionStore {
	return NewSessionStoreWithClock(time.Now)
}

// NewSessionStoreWithClock allows deterministic expiry in tests.
func NewSessionStoreWithClock(clock func() time.Time) *SessionStore {
	return &SessionStore{
		clock:    clock,
		sessions: make(map[string]*sessionEntry),
	}
}

// OnExpire registers hooks that run, outside the store lock, for each swept session.
// Stores holding per-session data use it to expire alongside the session.
func (s *SessionStore) OnExpire(hooks ...func(sessionID string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onExpire = append(s.onExpire, hooks...)
}

func (s *SessionStore) Create(_ context.Context, session domain.QuizSession, ttl time.Duration) error {
	s.mu.Lock()
	if _, ok := s.liveLocked(session.ID); ok {
		s.mu.Unlock()
		return domain.ErrSessionExists
	}
	expired := s.sweepLocked()
	entry := &sessionEntry{
		session:      session,
		participants: make(map[string]domain.Participant),
	}
	if ttl > 0 {
		entry.expiresAt = s.clock().Add(ttl)
	}
	s.sessions[session.ID] = entry
	hooks := s.onExpire
	s.mu.Unlock()

	for _, id := range expired {
		for _, hook := range hooks {
			hook(id)
		}
	}
	return nil
}

// sweepLocked removes every expired entry and returns their ids.
func (s *SessionStore) sweepLocked() []string {
	var expired []string
	for id := range s.sessions {
		if _, ok := s.liveLocked(id); !ok {
			delete(s.sessions, id)
			expired = append(expired, id)
		}
	}
	return expired
}

func (s *SessionStore) Get(_ context.Context, sessionID string) (domain.QuizSession, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.liveLocked(sessionID)
	if !ok {
		return domain.QuizSession{}, false, nil
	}
	return entry.session, true, nil
}

func (s *SessionStore) Update(_ context.Context, session domain.QuizSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.liveLocked(session.ID)
	if !ok {
		return domain.ErrSessionNotFound
	}
	entry.session = session
	return nil
}

func (s *SessionStore) Exists(_ context.Context, sessionID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.liveLocked(sessionID)
	return ok, nil
}

func (s *SessionStore) GetParticipant(_ context.Context, sessionID, participantID string) (domain.Participant, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.liveLocked(sessionID)
	if !ok {
		return domain.Participant{}, false, nil
	}
	p, ok := entry.participants[participantID]
	return p, ok, nil
}

func (s *SessionStore) SaveParticipant(_ context.Context, sessionID string, participant domain.Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.liveLocked(sessionID)
	if !ok {
		return domain.ErrSessionNotFound
	}
	entry.participants[participant.ID] = participant
	return nil
}

func (s *SessionStore) ListParticipants(_ context.Context, sessionID string) ([]domain.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.liveLocked(sessionID)
	if !ok {
		return nil, nil
	}
	out := make([]domain.Participant, 0, len(entry.participants))
	for _, p := range entry.participants {
		out = append(out, p)
	}
	sortByJoin(out)
	return out, nil
}

func (s *SessionStore) CountParticipants(_ context.Context, sessionID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.liveLocked(sessionID)
	if !ok {
		return 0, nil
	}
	return len(entry.participants), nil
}

func (s *SessionStore) liveLocked(sessionID string) (*sessionEntry, bool) {
	entry, ok := s.sessions[sessionID]
	if !ok {
		return nil, false
	}
	if !entry.expiresAt.IsZero() && !s.clock().Before(entry.expiresAt) {
		return nil, false
	}
	return entry, true
}

func sortByJoin(ps []domain.Participant) {
	sort.Slice(ps, func(i, j int) bool {
		if !ps[i].JoinedAt.Equal(ps[j].JoinedAt) {
			return ps[i].JoinedAt.Before(ps[j].JoinedAt)
		}
		return ps[i].ID < ps[j].ID
	})
}
