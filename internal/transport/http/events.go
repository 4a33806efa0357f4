package http

import (
	"context"
	"encoding/json"

	"live-quiz-service/internal/app"
	"live-quiz-service/internal/domain"
)

// Client -> server.
const (
	eventStart       = "start"
	eventAnswer      = "answer"
	eventAdvance     = "advance"
	eventLeaderboard = "leaderboard"
)

// Server -> client.
const (
	eventJoined            = "joined"
	eventParticipantJoined = "participant_joined"
	eventQuizStarted       = "quiz_started"
	eventAnswerResult      = "answer_result"
	eventQuestion          = "question"
	eventQuizCompleted     = "quiz_completed"
	eventError             = "error"
)

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type outboundMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type answerPayload struct {
	QuestionID string  `json:"questionId"`
	Answer     string  `json:"answer"`
	TimeTaken  float64 `json:"timeTaken"`
}

type leaderboardPayload struct {
	Limit int `json:"limit"`
}

type participantJoinedPayload struct {
	ParticipantID    string `json:"participantId"`
	DisplayName      string `json:"displayName"`
	ParticipantCount int    `json:"participantCount"`
}

type questionPayload struct {
	Index    int             `json:"index"`
	Total    int             `json:"total"`
	Question domain.Question `json:"question"`
}

type completedPayload struct {
	Session     app.SessionSummary `json:"session"`
	Leaderboard domain.Leaderboard `json:"leaderboard"`
}

type errorPayload struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func errorMessage(err error) outboundMessage {
	return outboundMessage{Type: eventError, Payload: errorPayload{
		Kind:    domain.KindOf(err).String(),
		Message: err.Error(),
	}}
}

// publisher turns controller outcomes into session broadcasts. The websocket and
// HTTP surfaces share it so both announce state changes the same way.
type publisher struct {
	service *app.QuizService
	hub     *Hub
}

func (p publisher) started(res app.StartResult) {
	p.hub.Broadcast(res.Session.ID, outboundMessage{Type: eventQuizStarted, Payload: res})
}

func (p publisher) advanced(ctx context.Context, res app.AdvanceResult) {
	sessionID := res.Session.ID
	if res.Question != nil {
		p.hub.Broadcast(sessionID, outboundMessage{Type: eventQuestion, Payload: questionPayload{
			Index:    res.Session.CurrentQuestionIndex,
			Total:    res.Session.QuestionCount,
			Question: *res.Question,
		}})
		return
	}
	if !res.Completed {
		return
	}
	board, err := p.service.GetFullLeaderboard(ctx, sessionID)
	if err != nil {
		p.hub.logger.Warn("final leaderboard unavailable", "session_id", sessionID, "error", err)
	}
	p.hub.Broadcast(sessionID, outboundMessage{Type: eventQuizCompleted, Payload: completedPayload{
		Session:     res.Session,
		Leaderboard: board,
	}})
}

// scored rebroadcasts the leaderboard after a first-time submission.
func (p publisher) scored(ctx context.Context, sessionID string, res app.AnswerResult) {
	if res.Duplicate {
		return
	}
	board, err := p.service.GetLeaderboard(ctx, sessionID, 0)
	if err != nil {
		p.hub.logger.Warn("leaderboard refresh failed", "session_id", sessionID, "error", err)
		return
	}
	p.hub.Broadcast(sessionID, outboundMessage{Type: eventLeaderboard, Payload: board})
}
