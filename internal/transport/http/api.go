package http

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"live-quiz-service/internal/app"
	"live-quiz-service/internal/domain"
)

// API is the HTTP surface for creating and driving quizzes and for inspection.
// State changes made here are announced to websocket clients like their
// websocket counterparts.
type API struct {
	service   *app.QuizService
	publisher publisher
	logger    *slog.Logger
}

func NewAPI(service *app.QuizService, hub *Hub, logger *slog.Logger) *API {
	if logger == nil {
		logger = slog.Default()
	}
	return &API{
		service:   service,
		publisher: publisher{service: service, hub: hub},
		logger:    logger.With("component", "api"),
	}
}

// Register mounts the routes on mux.
func (a *API) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/quizzes", a.createQuiz)
	mux.HandleFunc("GET /api/quizzes/{id}", a.getQuiz)
	mux.HandleFunc("POST /api/quizzes/{id}/start", a.startQuiz)
	mux.HandleFunc("POST /api/quizzes/{id}/advance", a.advanceQuiz)
	mux.HandleFunc("GET /api/quizzes/{id}/leaderboard", a.leaderboard)
	mux.HandleFunc("GET /api/quizzes/{id}/leaderboard/full", a.fullLeaderboard)
	mux.HandleFunc("GET /api/quizzes/{id}/participants/{pid}/answers", a.participantAnswers)
	mux.HandleFunc("GET /api/questions/{id}", a.question)
}

type createQuizRequest struct {
	Title         string `json:"title"`
	QuestionCount int    `json:"questionCount"`
}

func (a *API) createQuiz(w http.ResponseWriter, r *http.Request) {
	var req createQuizRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<16)).Decode(&req); err != nil {
		a.writeError(w, domain.Invalid("create_quiz", "invalid request body: %v", err))
		return
	}
	summary, err := a.service.CreateQuiz(r.Context(), req.Title, req.QuestionCount)
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, summary)
}

func (a *API) getQuiz(w http.ResponseWriter, r *http.Request) {
	summary, err := a.service.GetSession(r.Context(), r.PathValue("id"))
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (a *API) startQuiz(w http.ResponseWriter, r *http.Request) {
	res, err := a.service.StartQuiz(r.Context(), r.PathValue("id"))
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.publisher.started(res)
	writeJSON(w, http.StatusOK, res)
}

func (a *API) advanceQuiz(w http.ResponseWriter, r *http.Request) {
	res, err := a.service.AdvanceQuestion(r.Context(), r.PathValue("id"))
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.publisher.advanced(r.Context(), res)
	writeJSON(w, http.StatusOK, res)
}

func (a *API) leaderboard(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			a.writeError(w, domain.Invalid("get_leaderboard", "limit must be a non-negative integer"))
			return
		}
		limit = n
	}
	board, err := a.service.GetLeaderboard(r.Context(), r.PathValue("id"), limit)
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, board)
}

func (a *API) fullLeaderboard(w http.ResponseWriter, r *http.Request) {
	board, err := a.service.GetFullLeaderboard(r.Context(), r.PathValue("id"))
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, board)
}

func (a *API) participantAnswers(w http.ResponseWriter, r *http.Request) {
	records, err := a.service.ParticipantAnswers(r.Context(), r.PathValue("id"), r.PathValue("pid"))
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (a *API) question(w http.ResponseWriter, r *http.Request) {
	q, err := a.service.LookupQuestion(r.Context(), r.PathValue("id"))
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (a *API) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		a.logger.Error("request failed", "status", status, "error", err)
	}
	writeJSON(w, status, errorPayload{Kind: domain.KindOf(err).String(), Message: err.Error()})
}

func statusFor(err error) int {
	switch domain.KindOf(err) {
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindPrecondition:
		return http.StatusConflict
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindUnavailable:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
