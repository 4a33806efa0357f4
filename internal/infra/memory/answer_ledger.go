package memory

import (
	"context"
	"sync"

	"live-quiz-service/internal/domain"
)

// AnswerLedger is an in-memory app.AnswerLedger, indexed session -> participant -> question.
type AnswerLedger struct {
	mu       sync.RWMutex
	sessions map[string]map[string]map[string]domain.AnswerRecord
}

func NewAnswerLedger() *AnswerLedger {
	return &AnswerLedger{sessions: make(map[string]map[string]map[string]domain.AnswerRecord)}
}

func (l *AnswerLedger) Get(_ context.Context, sessionID, participantID, questionID string) (domain.AnswerRecord, bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	rec, ok := l.sessions[sessionID][participantID][questionID]
	return rec, ok, nil
}

// Put stores record once; later writes for the same triple leave it untouched.
func (l *AnswerLedger) Put(_ context.Context, sessionID, participantID, questionID string, record domain.AnswerRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	participants, ok := l.sessions[sessionID]
	if !ok {
		participants = make(map[string]map[string]domain.AnswerRecord)
		l.sessions[sessionID] = participants
	}
	answers, ok := participants[participantID]
	if !ok {
		answers = make(map[string]domain.AnswerRecord)
		participants[participantID] = answers
	}
	if _, exists := answers[questionID]; exists {
		return domain.ErrAnswerExists
	}
	answers[questionID] = record
	return nil
}

func (l *AnswerLedger) AllForParticipant(_ context.Context, sessionID, participantID string) (map[string]domain.AnswerRecord, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	answers := l.sessions[sessionID][participantID]
	out := make(map[string]domain.AnswerRecord, len(answers))
	for id, rec := range answers {
		out[id] = rec
	}
	return out, nil
}

func (l *AnswerLedger) DeleteSession(_ context.Context, sessionID string) error {
	l.Forget(sessionID)
	return nil
}

// Forget drops every answer recorded for the session.
func (l *AnswerLedger) Forget(sessionID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.sessions, sessionID)
}
