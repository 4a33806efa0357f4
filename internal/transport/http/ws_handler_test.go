package http

import (
	"bytes"
	"context"
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"live-quiz-service/internal/app"
	"live-quiz-service/internal/domain"
	"live-quiz-service/internal/infra/memory"
	"live-quiz-service/internal/logging"
	"live-quiz-service/internal/selection"

	"github.com/gorilla/websocket"
)

func TestWebSocketQuizFlow(t *testing.T) {
	server, _ := newTestServer(t)
	quizID := createQuiz(t, server, 3)

	alice := dial(t, server, quizID, "u1", "Alice")
	readUntil(t, alice, eventJoined)
	readUntil(t, alice, eventParticipantJoined)

	bob := dial(t, server, quizID, "u2", "Bob")
	readUntil(t, bob, eventJoined)
	joinedPayload := readUntil(t, alice, eventParticipantJoined)
	if joinedPayload["participantId"] != "u2" {
		t.Fatalf("expected alice to hear about bob, got %v", joinedPayload)
	}

	send(t, alice, map[string]any{"type": "start"})
	started := readUntil(t, bob, eventQuizStarted)
	question := started["question"].(map[string]any)
	if _, leaked := question["correctAnswer"]; leaked {
		t.Fatalf("question leaked its answer: %v", question)
	}
	readUntil(t, alice, eventQuizStarted)

	questionID := question["id"].(string)
	correct := testBank()[questionID].CorrectAnswer
	answer := map[string]any{
		"type":    "answer",
		"payload": map[string]any{"questionId": questionID, "answer": correct, "timeTaken": 0},
	}
	send(t, alice, answer)
	result := readUntil(t, alice, eventAnswerResult)
	if result["correct"] != true || result["rank"].(float64) != 1 {
		t.Fatalf("unexpected answer result: %v", result)
	}
	firstPoints := result["pointsEarned"].(float64)
	if firstPoints <= 0 {
		t.Fatalf("expected points for a correct answer, got %v", result)
	}

	board := readUntil(t, bob, eventLeaderboard)
	entries := board["entries"].([]any)
	top := entries[0].(map[string]any)
	if top["participantId"] != "u1" || top["score"].(float64) != firstPoints {
		t.Fatalf("expected alice on top, got %v", entries)
	}

	// A retransmission is answered from the ledger, not scored again.
	send(t, alice, answer)
	dup := readUntil(t, alice, eventAnswerResult)
	if dup["duplicate"] != true || dup["score"].(float64) != firstPoints {
		t.Fatalf("expected duplicate with unchanged score, got %v", dup)
	}

	send(t, bob, map[string]any{"type": "advance"})
	next := readUntil(t, alice, eventQuestion)
	if next["index"].(float64) != 1 {
		t.Fatalf("expected second question, got %v", next)
	}
	send(t, bob, map[string]any{"type": "advance"})
	readUntil(t, alice, eventQuestion)
	send(t, bob, map[string]any{"type": "advance"})
	done := readUntil(t, alice, eventQuizCompleted)
	final := done["leaderboard"].(map[string]any)["entries"].([]any)
	if len(final) != 2 {
		t.Fatalf("expected both participants on the final board, got %v", final)
	}

	send(t, bob, map[string]any{"type": "answer", "payload": map[string]any{"questionId": questionID, "answer": correct}})
	errPayload := readUntil(t, bob, eventError)
	if errPayload["kind"] != "precondition" {
		t.Fatalf("expected precondition error after completion, got %v", errPayload)
	}
}

func TestWebSocketReconnectKeepsScore(t *testing.T) {
	server, service := newTestServer(t)
	quizID := createQuiz(t, server, 3)

	first := dial(t, server, quizID, "u1", "Alice")
	readUntil(t, first, eventJoined)
	send(t, first, map[string]any{"type": "start"})
	started := readUntil(t, first, eventQuizStarted)
	questionID := started["question"].(map[string]any)["id"].(string)
	send(t, first, map[string]any{"type": "answer", "payload": map[string]any{
		"questionId": questionID, "answer": testBank()[questionID].CorrectAnswer, "timeTaken": 10,
	}})
	result := readUntil(t, first, eventAnswerResult)
	_ = first.Close()

	second := dial(t, server, quizID, "u1", "Someone Else")
	joined := readUntil(t, second, eventJoined)
	if joined["reconnected"] != true {
		t.Fatalf("expected reconnect, got %v", joined)
	}
	participant := joined["participant"].(map[string]any)
	if participant["score"] != result["score"] || participant["displayName"] != "Alice" {
		t.Fatalf("reconnect must keep score and name, got %v", participant)
	}
	current := readUntil(t, second, eventQuestion)
	if current["question"].(map[string]any)["id"] != questionID {
		t.Fatalf("expected current question on reconnect, got %v", current)
	}

	summary, err := service.GetSession(context.Background(), quizID)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if summary.ParticipantCount != 1 {
		t.Fatalf("reconnect must not add a participant, got %d", summary.ParticipantCount)
	}
}

func TestWebSocketAnswerResultFollowsNewestConnection(t *testing.T) {
	server, _ := newTestServer(t)
	quizID := createQuiz(t, server, 3)

	old := dial(t, server, quizID, "u1", "Alice")
	readUntil(t, old, eventJoined)
	send(t, old, map[string]any{"type": "start"})
	started := readUntil(t, old, eventQuizStarted)
	questionID := started["question"].(map[string]any)["id"].(string)

	// The old connection stays open while the participant reconnects elsewhere.
	fresh := dial(t, server, quizID, "u1", "Alice")
	readUntil(t, fresh, eventJoined)

	send(t, old, map[string]any{"type": "answer", "payload": map[string]any{
		"questionId": questionID, "answer": testBank()[questionID].CorrectAnswer, "timeTaken": 0,
	}})
	result := readUntil(t, fresh, eventAnswerResult)
	if result["correct"] != true || result["questionId"] != questionID {
		t.Fatalf("unexpected answer result on the new connection: %v", result)
	}
}

func TestWebSocketRejectsUnknownQuiz(t *testing.T) {
	server, _ := newTestServer(t)
	conn := dial(t, server, "NOPE42", "u1", "Alice")
	payload := readUntil(t, conn, eventError)
	if payload["kind"] != "not_found" {
		t.Fatalf("expected not_found, got %v", payload)
	}
}

func TestWebSocketRequiresIdentity(t *testing.T) {
	server, _ := newTestServer(t)
	resp, err := http.Get(server.URL + "/ws?quizId=ABC")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func newTestServer(t *testing.T) (*httptest.Server, *app.QuizService) {
	t.Helper()
	questions := make([]domain.Question, 0, len(testBank()))
	for _, q := range testBank() {
		questions = append(questions, q)
	}
	logger := logging.Discard()
	service := app.NewQuizService(
		memory.NewSessionStore(),
		memory.NewAnswerLedger(),
		memory.NewRankingStore(),
		memory.NewQuestionBank(memory.NewStaticQuestionLoader(questions), time.Minute),
		app.Options{
			Selector: selection.NewSelectorWithRand(rand.New(rand.NewSource(7))),
			Logger:   logger,
		},
	)
	hub := NewHub(logger, nil)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", NewWSHandler(service, hub, logger).ServeWS)
	NewAPI(service, hub, logger).Register(mux)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, service
}

func testBank() map[string]domain.Question {
	return map[string]domain.Question{
		"e1": {ID: "e1", Prompt: "What is 2 + 2?", Options: []string{"3", "4", "5"}, CorrectAnswer: "4", Difficulty: domain.DifficultyEasy, Points: 10},
		"m1": {ID: "m1", Prompt: "Capital of Australia?", Options: []string{"Sydney", "Canberra"}, CorrectAnswer: "Canberra", Difficulty: domain.DifficultyMedium, Points: 15},
		"h1": {ID: "h1", Prompt: "Symbol for tungsten?", Options: []string{"Tu", "W"}, CorrectAnswer: "W", Difficulty: domain.DifficultyHard, Points: 20},
	}
}

func createQuiz(t *testing.T, server *httptest.Server, count int) string {
	t.Helper()
	body, _ := json.Marshal(map[string]any{"title": "Trivia night", "questionCount": count})
	resp, err := http.Post(server.URL+"/api/quizzes", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	var summary app.SessionSummary
	if err := json.NewDecoder(resp.Body).Decode(&summary); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	return summary.ID
}

func dial(t *testing.T, server *httptest.Server, quizID, userID, name string) *websocket.Conn {
	t.Helper()
	q := url.Values{"quizId": {quizID}, "userId": {userID}, "name": {name}}
	u := "ws" + server.URL[len("http"):] + "/ws?" + q.Encode()
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, msg map[string]any) {
	t.Helper()
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write %v: %v", msg["type"], err)
	}
}

// readUntil skips unrelated events until one of the expected type arrives.
func readUntil(t *testing.T, conn *websocket.Conn, expect string) map[string]any {
	t.Helper()
	for i := 0; i < 20; i++ {
		var msg struct {
			Type    string         `json:"type"`
			Payload map[string]any `json:"payload"`
		}
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read json waiting for %s: %v", expect, err)
		}
		if msg.Type == expect {
			return msg.Payload
		}
	}
	t.Fatalf("no %s event within 20 messages", expect)
	return nil
}
