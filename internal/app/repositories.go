package app

import (
	"context"
	"time"

	"live-quiz-service/internal/domain"
)

// RankingStore keeps the ordered score structure of every session. Increment must be
// atomic per (session, member); an increment of zero registers the member. Ties rank
// by first arrival.
type RankingStore interface {
	Increment(ctx context.Context, sessionID, member string, delta int) (int, error)
	// Award applies delta at most once per (session, member, awardID) and reports
	// whether this call applied it. The returned score is current either way.
	Award(ctx context.Context, sessionID, member, awardID string, delta int) (int, bool, error)
	Score(ctx context.Context, sessionID, member string) (int, bool, error)
	// Rank is 0-based, descending by score.
	Rank(ctx context.Context, sessionID, member string) (int, bool, error)
	Top(ctx context.Context, sessionID string, n int) ([]domain.RankedMember, error)
	All(ctx context.Context, sessionID string) ([]domain.RankedMember, error)
	// DeleteSession drops every score recorded for the session.
	DeleteSession(ctx context.Context, sessionID string) error
}

// SessionStore abstracts how quiz sessions and their participants are stored
// (in-memory, Redis). Expired sessions read as absent.
type SessionStore interface {
	Create(ctx context.Context, session domain.QuizSession, ttl time.Duration) error
	Get(ctx context.Context, sessionID string) (domain.QuizSession, bool, error)
	// Update keeps the remaining TTL and fails with domain.ErrSessionNotFound once expired.
	Update(ctx context.Context, session domain.QuizSession) error
	Exists(ctx context.Context, sessionID string) (bool, error)

	GetParticipant(ctx context.Context, sessionID, participantID string) (domain.Participant, bool, error)
	SaveParticipant(ctx context.Context, sessionID string, participant domain.Participant) error
	ListParticipants(ctx context.Context, sessionID string) ([]domain.Participant, error)
	CountParticipants(ctx context.Context, sessionID string) (int, error)
}

// AnswerLedger records which questions each participant answered. Put is write-once
// and returns domain.ErrAnswerExists on a repeated triple.
type AnswerLedger interface {
	Get(ctx context.Context, sessionID, participantID, questionID string) (domain.AnswerRecord, bool, error)
	Put(ctx context.Context, sessionID, participantID, questionID string, record domain.AnswerRecord) error
	AllForParticipant(ctx context.Context, sessionID, participantID string) (map[string]domain.AnswerRecord, error)
	DeleteSession(ctx context.Context, sessionID string) error
}

// QuestionBank loads quiz content (from cache/backing store).
type QuestionBank interface {
	QuestionsByDifficulty(ctx context.Context, difficulty domain.Difficulty) ([]domain.Question, error)
	QuestionByID(ctx context.Context, questionID string) (domain.Question, bool, error)
}
