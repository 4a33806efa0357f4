package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"live-quiz-service/internal/app"
	"live-quiz-service/internal/domain"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

type WSHandler struct {
	service   *app.QuizService
	hub       *Hub
	publisher publisher
	upgrader  websocket.Upgrader
	logger    *slog.Logger
}

func NewWSHandler(service *app.QuizService, hub *Hub, logger *slog.Logger) *WSHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WSHandler{
		service:   service,
		hub:       hub,
		publisher: publisher{service: service, hub: hub},
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: logger.With("component", "ws"),
	}
}

// ServeWS upgrades the request, joins the participant using the connection id as
// its delivery address, then dispatches client events to the quiz service.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	quizID := r.URL.Query().Get("quizId")
	userID := r.URL.Query().Get("userId")
	displayName := r.URL.Query().Get("name")
	if quizID == "" || userID == "" {
		http.Error(w, "missing quizId or userId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx := r.Context()
	connID := uuid.NewString()
	joined, err := h.service.JoinQuiz(ctx, quizID, userID, displayName, connID)
	if err != nil {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		_ = conn.WriteJSON(errorMessage(err))
		return
	}

	if prev, ok := h.hub.ConnectionFor(quizID, userID); ok {
		h.logger.Info("participant moved to a new connection",
			"session_id", quizID, "participant_id", userID, "previous_conn", prev, "conn_id", connID)
	}
	c := newClient(connID, quizID, userID)
	h.hub.register(c)
	writerDone := make(chan struct{})
	go h.writePump(conn, c, writerDone)
	defer func() {
		h.hub.unregister(c)
		<-writerDone
	}()

	c.enqueue(outboundMessage{Type: eventJoined, Payload: joined})
	if q := joined.Session.CurrentQuestion; q != nil {
		c.enqueue(outboundMessage{Type: eventQuestion, Payload: questionPayload{
			Index:    joined.Session.CurrentQuestionIndex,
			Total:    joined.Session.QuestionCount,
			Question: *q,
		}})
	}
	if !joined.Reconnected {
		h.hub.Broadcast(quizID, outboundMessage{Type: eventParticipantJoined, Payload: participantJoinedPayload{
			ParticipantID:    joined.Participant.ID,
			DisplayName:      joined.Participant.DisplayName,
			ParticipantCount: joined.Session.ParticipantCount,
		}})
	}

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("ws read ended", "session_id", quizID, "participant_id", userID, "error", err)
			}
			return
		}
		if reply, ok := h.dispatch(ctx, c, inbound); ok {
			c.enqueue(reply)
		}
	}
}

// dispatch handles one client event. The returned message, if any, goes to the
// sender only; session-wide effects are broadcast through the publisher. The
// connection's identity is resolved through the hub registry.
func (h *WSHandler) dispatch(ctx context.Context, c *client, inbound inboundMessage) (outboundMessage, bool) {
	sessionID, participantID, ok := h.hub.ParticipantFor(c.id)
	if !ok {
		return errorMessage(domain.NotFound("dispatch", domain.ErrParticipantNotFound)), true
	}
	switch inbound.Type {
	case eventStart:
		res, err := h.service.StartQuiz(ctx, sessionID)
		if err != nil {
			return errorMessage(err), true
		}
		h.publisher.started(res)
		return outboundMessage{}, false

	case eventAnswer:
		var payload answerPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return errorMessage(domain.Invalid("answer", "invalid answer payload")), true
		}
		res, err := h.service.SubmitAnswer(ctx, domain.AnswerSubmission{
			SessionID:     sessionID,
			ParticipantID: participantID,
			QuestionID:    payload.QuestionID,
			Answer:        payload.Answer,
			TimeTaken:     payload.TimeTaken,
		})
		if err != nil {
			return errorMessage(err), true
		}
		// The result follows the participant to its newest connection.
		if !h.hub.SendTo(sessionID, participantID, outboundMessage{Type: eventAnswerResult, Payload: res}) {
			h.logger.Warn("answer result not delivered", "session_id", sessionID, "participant_id", participantID)
		}
		h.publisher.scored(ctx, sessionID, res)
		return outboundMessage{}, false

	case eventAdvance:
		res, err := h.service.AdvanceQuestion(ctx, sessionID)
		if err != nil {
			return errorMessage(err), true
		}
		if res.Done && !res.Completed {
			return outboundMessage{Type: eventQuizCompleted, Payload: completedPayload{Session: res.Session}}, true
		}
		h.publisher.advanced(ctx, res)
		return outboundMessage{}, false

	case eventLeaderboard:
		var payload leaderboardPayload
		if len(inbound.Payload) > 0 {
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				return errorMessage(domain.Invalid("leaderboard", "invalid leaderboard payload")), true
			}
		}
		board, err := h.service.GetLeaderboard(ctx, sessionID, payload.Limit)
		if err != nil {
			return errorMessage(err), true
		}
		return outboundMessage{Type: eventLeaderboard, Payload: board}, true

	default:
		return errorMessage(domain.Invalid("dispatch", "unsupported message type %q", inbound.Type)), true
	}
}

func (h *WSHandler) writePump(conn *websocket.Conn, c *client, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case msg, ok := <-c.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteJSON(msg); err != nil {
				h.logger.Debug("ws write failed", "conn_id", c.id, "error", err)
				// Unblock the reader so the handler can unregister.
				_ = conn.Close()
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				_ = conn.Close()
				return
			}
		}
	}
}
