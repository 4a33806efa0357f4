package app

import (
	"time"

	"live-quiz-service/internal/domain"
)

// SessionSummary is the caller-facing view of a session. It never carries correct answers.
type SessionSummary struct {
	ID                   string               `json:"id"`
	Title                string               `json:"title"`
	Status               domain.SessionStatus `json:"status"`
	QuestionCount        int                  `json:"questionCount"`
	CurrentQuestionIndex int                  `json:"currentQuestionIndex"`
	CurrentQuestion      *domain.Question     `json:"currentQuestion,omitempty"`
	ParticipantCount     int                  `json:"participantCount"`
	MaxParticipants      int                  `json:"maxParticipants"`
	CreatedAt            time.Time            `json:"createdAt"`
	StartedAt            *time.Time           `json:"startedAt,omitempty"`
	EndedAt              *time.Time           `json:"endedAt,omitempty"`
}

// JoinResult is returned by JoinQuiz. Reconnected is set when the participant already existed.
type JoinResult struct {
	Session     SessionSummary     `json:"session"`
	Participant domain.Participant `json:"participant"`
	Reconnected bool               `json:"reconnected"`
}

// StartResult carries the first question of a freshly started quiz.
type StartResult struct {
	Session  SessionSummary  `json:"session"`
	Question domain.Question `json:"question"`
}

// AnswerResult summarizes the outcome of a submission for a single participant.
// Rank is 1-based. Duplicate marks a retransmission that was answered from the ledger.
type AnswerResult struct {
	QuestionID    string `json:"questionId"`
	Correct       bool   `json:"correct"`
	CorrectAnswer string `json:"correctAnswer"`
	PointsEarned  int    `json:"pointsEarned"`
	Score         int    `json:"score"`
	Rank          int    `json:"rank"`
	Duplicate     bool   `json:"duplicate"`
}

// AdvanceResult is returned by AdvanceQuestion. Done means there is no further question;
// Completed is true only on the call that moved the session to completed.
type AdvanceResult struct {
	Session   SessionSummary   `json:"session"`
	Question  *domain.Question `json:"question,omitempty"`
	Done      bool             `json:"done"`
	Completed bool             `json:"completed"`
}

func summarize(session domain.QuizSession, participants int) SessionSummary {
	summary := SessionSummary{
		ID:                   session.ID,
		Title:                session.Title,
		Status:               session.Status,
		QuestionCount:        len(session.Questions),
		CurrentQuestionIndex: session.CurrentQuestionIndex,
		ParticipantCount:     participants,
		MaxParticipants:      session.MaxParticipants,
		CreatedAt:            session.CreatedAt,
		StartedAt:            session.StartedAt,
		EndedAt:              session.EndedAt,
	}
	if session.Status == domain.StatusInProgress {
		if q, ok := session.CurrentQuestion(); ok {
			sanitized := q.Sanitized()
			summary.CurrentQuestion = &sanitized
		}
	}
	return summary
}
