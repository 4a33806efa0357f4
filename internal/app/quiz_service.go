package app

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"strings"
	"time"

	"live-quiz-service/internal/domain"
	"live-quiz-service/internal/metrics"
	"live-quiz-service/internal/scoring"
	"live-quiz-service/internal/selection"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	defaultLeaderboardLimit = 10
	sessionCodeAttempts     = 5
	enrichConcurrency       = 8
)

// Options tunes the quiz service. Zero values fall back to the defaults below.
type Options struct {
	SessionTTL           time.Duration
	MaxParticipants      int
	TimeLimit            float64 // seconds per question
	DefaultQuestionCount int
	MaxQuestionCount     int
	OpTimeout            time.Duration

	Clock        func() time.Time
	Selector     *selection.Selector
	NewSessionID func() string
	Logger       *slog.Logger
	Metrics      *metrics.Metrics
}

func (o Options) withDefaults() Options {
	if o.SessionTTL <= 0 {
		o.SessionTTL = 2 * time.Hour
	}
	if o.MaxParticipants <= 0 {
		o.MaxParticipants = 100
	}
	if o.TimeLimit <= 0 {
		o.TimeLimit = scoring.DefaultTimeLimit
	}
	if o.DefaultQuestionCount <= 0 {
		o.DefaultQuestionCount = 10
	}
	if o.MaxQuestionCount <= 0 {
		o.MaxQuestionCount = 50
	}
	if o.DefaultQuestionCount > o.MaxQuestionCount {
		o.DefaultQuestionCount = o.MaxQuestionCount
	}
	if o.OpTimeout <= 0 {
		o.OpTimeout = 5 * time.Second
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
	if o.Selector == nil {
		o.Selector = selection.NewSelector()
	}
	if o.NewSessionID == nil {
		o.NewSessionID = newSessionCode
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// QuizService drives the session state machine: create, join, start, answer, advance,
// complete. It returns structured outcomes and leaves delivery to the transport.
type QuizService struct {
	sessions SessionStore
	ledger   AnswerLedger
	ranking  RankingStore
	bank     QuestionBank
	opts     Options
	logger   *slog.Logger
	metrics  *metrics.Metrics
	locks    *keyedMutex
}

func NewQuizService(sessions SessionStore, ledger AnswerLedger, ranking RankingStore, bank QuestionBank, opts Options) *QuizService {
	opts = opts.withDefaults()
	return &QuizService{
		sessions: sessions,
		ledger:   ledger,
		ranking:  ranking,
		bank:     bank,
		opts:     opts,
		logger:   opts.Logger.With("component", "quiz_service"),
		metrics:  opts.Metrics,
		locks:    newKeyedMutex(),
	}
}

// CreateQuiz selects a stratified question set and stores a new waiting session.
// A non-positive questionCount uses the configured default.
func (s *QuizService) CreateQuiz(ctx context.Context, title string, questionCount int) (_ SessionSummary, err error) {
	const op = "create_quiz"
	defer s.observe(ctx, op, time.Now(), &err, "title", title)
	ctx, cancel := context.WithTimeout(ctx, s.opts.OpTimeout)
	defer cancel()

	title = strings.TrimSpace(title)
	if title == "" {
		return SessionSummary{}, domain.Invalid(op, "title is required")
	}
	if questionCount <= 0 {
		questionCount = s.opts.DefaultQuestionCount
	}
	if questionCount > s.opts.MaxQuestionCount {
		return SessionSummary{}, domain.Invalid(op, "question count %d exceeds %d", questionCount, s.opts.MaxQuestionCount)
	}

	questions, err := s.opts.Selector.Select(ctx, s.bank, questionCount)
	if err != nil {
		return SessionSummary{}, storeError(op, err)
	}
	if len(questions) == 0 {
		return SessionSummary{}, domain.Precondition(op, domain.ErrNoQuestions)
	}

	session := domain.QuizSession{
		Title:           title,
		Status:          domain.StatusWaiting,
		Questions:       questions,
		CreatedAt:       s.opts.Clock(),
		MaxParticipants: s.opts.MaxParticipants,
	}
	for attempt := 0; attempt < sessionCodeAttempts; attempt++ {
		session.ID = s.opts.NewSessionID()
		taken, err := s.sessions.Exists(ctx, session.ID)
		if err != nil {
			return SessionSummary{}, storeError(op, err)
		}
		if taken {
			continue
		}
		if err := s.sessions.Create(ctx, session, s.opts.SessionTTL); err != nil {
			if errors.Is(err, domain.ErrSessionExists) {
				continue
			}
			return SessionSummary{}, storeError(op, err)
		}
		// A reused code must not inherit scores or answers from the expired session.
		if err := s.ranking.DeleteSession(ctx, session.ID); err != nil {
			return SessionSummary{}, storeError(op, err)
		}
		if err := s.ledger.DeleteSession(ctx, session.ID); err != nil {
			return SessionSummary{}, storeError(op, err)
		}
		s.metrics.SessionCreated()
		s.logger.InfoContext(ctx, "quiz created", "session_id", session.ID, "questions", len(questions))
		return summarize(session, 0), nil
	}
	return SessionSummary{}, domain.Unavailable(op, errors.New("no free session code"))
}

// JoinQuiz registers a participant or, when the id is already known, refreshes only
// its delivery address. Score and answer count survive reconnection.
func (s *QuizService) JoinQuiz(ctx context.Context, sessionID, participantID, displayName, address string) (_ JoinResult, err error) {
	const op = "join_quiz"
	defer s.observe(ctx, op, time.Now(), &err, "session_id", sessionID, "participant_id", participantID)
	ctx, cancel := context.WithTimeout(ctx, s.opts.OpTimeout)
	defer cancel()

	if sessionID == "" || participantID == "" {
		return JoinResult{}, domain.Invalid(op, "session and participant ids are required")
	}
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		displayName = participantID
	}

	unlock, err := s.locks.Lock(ctx, sessionKey(sessionID))
	if err != nil {
		return JoinResult{}, storeError(op, err)
	}
	defer unlock()

	session, err := s.loadSession(ctx, op, sessionID)
	if err != nil {
		return JoinResult{}, err
	}
	if session.Status == domain.StatusCompleted {
		return JoinResult{}, domain.Precondition(op, domain.ErrQuizFinished)
	}

	unlockParticipant, err := s.locks.Lock(ctx, participantKey(sessionID, participantID))
	if err != nil {
		return JoinResult{}, storeError(op, err)
	}
	defer unlockParticipant()

	participant, known, err := s.sessions.GetParticipant(ctx, sessionID, participantID)
	if err != nil {
		return JoinResult{}, storeError(op, err)
	}
	count, err := s.sessions.CountParticipants(ctx, sessionID)
	if err != nil {
		return JoinResult{}, storeError(op, err)
	}

	if known {
		participant.Address = address
		if err := s.sessions.SaveParticipant(ctx, sessionID, participant); err != nil {
			return JoinResult{}, storeError(op, err)
		}
		s.metrics.Joined(true)
		s.logger.DebugContext(ctx, "participant reconnected", "session_id", sessionID, "participant_id", participantID)
		return JoinResult{Session: summarize(session, count), Participant: participant, Reconnected: true}, nil
	}

	if session.MaxParticipants > 0 && count >= session.MaxParticipants {
		return JoinResult{}, domain.Precondition(op, domain.ErrQuizFull)
	}
	participant = domain.Participant{
		ID:          participantID,
		DisplayName: displayName,
		JoinedAt:    s.opts.Clock(),
		Address:     address,
	}
	if err := s.sessions.SaveParticipant(ctx, sessionID, participant); err != nil {
		return JoinResult{}, storeError(op, err)
	}
	if _, err := s.ranking.Increment(ctx, sessionID, participantID, 0); err != nil {
		return JoinResult{}, storeError(op, err)
	}
	s.metrics.Joined(false)
	s.logger.InfoContext(ctx, "participant joined", "session_id", sessionID, "participant_id", participantID)
	return JoinResult{Session: summarize(session, count+1), Participant: participant}, nil
}

// StartQuiz moves a waiting session with at least one participant to in progress and
// returns the first question without its answer.
func (s *QuizService) StartQuiz(ctx context.Context, sessionID string) (_ StartResult, err error) {
	const op = "start_quiz"
	defer s.observe(ctx, op, time.Now(), &err, "session_id", sessionID)
	ctx, cancel := context.WithTimeout(ctx, s.opts.OpTimeout)
	defer cancel()

	unlock, err := s.locks.Lock(ctx, sessionKey(sessionID))
	if err != nil {
		return StartResult{}, storeError(op, err)
	}
	defer unlock()

	session, err := s.loadSession(ctx, op, sessionID)
	if err != nil {
		return StartResult{}, err
	}
	switch session.Status {
	case domain.StatusInProgress:
		return StartResult{}, domain.Precondition(op, domain.ErrAlreadyStarted)
	case domain.StatusCompleted:
		return StartResult{}, domain.Precondition(op, domain.ErrQuizFinished)
	}
	count, err := s.sessions.CountParticipants(ctx, sessionID)
	if err != nil {
		return StartResult{}, storeError(op, err)
	}
	if count == 0 {
		return StartResult{}, domain.Precondition(op, domain.ErrNoParticipants)
	}
	if len(session.Questions) == 0 {
		return StartResult{}, domain.Precondition(op, domain.ErrNoQuestions)
	}

	now := s.opts.Clock()
	session.Status = domain.StatusInProgress
	session.StartedAt = &now
	session.CurrentQuestionIndex = 0
	if err := s.sessions.Update(ctx, session); err != nil {
		return StartResult{}, storeError(op, err)
	}
	s.logger.InfoContext(ctx, "quiz started", "session_id", sessionID, "participants", count)
	return StartResult{Session: summarize(session, count), Question: session.Questions[0].Sanitized()}, nil
}

// SubmitAnswer scores an answer exactly once. A repeated submission for the same
// question is answered from the ledger without re-scoring.
func (s *QuizService) SubmitAnswer(ctx context.Context, sub domain.AnswerSubmission) (_ AnswerResult, err error) {
	const op = "submit_answer"
	defer s.observe(ctx, op, time.Now(), &err, "session_id", sub.SessionID, "participant_id", sub.ParticipantID, "question_id", sub.QuestionID)
	ctx, cancel := context.WithTimeout(ctx, s.opts.OpTimeout)
	defer cancel()

	if sub.SessionID == "" || sub.ParticipantID == "" || sub.QuestionID == "" {
		return AnswerResult{}, domain.Invalid(op, "session, participant and question ids are required")
	}
	if math.IsNaN(sub.TimeTaken) || math.IsInf(sub.TimeTaken, 0) {
		return AnswerResult{}, domain.Invalid(op, "time taken %v is not a number", sub.TimeTaken)
	}

	unlock, err := s.locks.Lock(ctx, participantKey(sub.SessionID, sub.ParticipantID))
	if err != nil {
		return AnswerResult{}, storeError(op, err)
	}
	defer unlock()

	session, err := s.loadSession(ctx, op, sub.SessionID)
	if err != nil {
		return AnswerResult{}, err
	}
	switch session.Status {
	case domain.StatusWaiting:
		return AnswerResult{}, domain.Precondition(op, domain.ErrNotInProgress)
	case domain.StatusCompleted:
		return AnswerResult{}, domain.Precondition(op, domain.ErrQuizFinished)
	}

	participant, ok, err := s.sessions.GetParticipant(ctx, sub.SessionID, sub.ParticipantID)
	if err != nil {
		return AnswerResult{}, storeError(op, err)
	}
	if !ok {
		return AnswerResult{}, domain.NotFound(op, domain.ErrParticipantNotFound)
	}

	if record, ok, err := s.ledger.Get(ctx, sub.SessionID, sub.ParticipantID, sub.QuestionID); err != nil {
		return AnswerResult{}, storeError(op, err)
	} else if ok {
		return s.replay(ctx, op, sub, participant, record)
	}

	question, ok := session.Question(sub.QuestionID)
	if !ok {
		return AnswerResult{}, domain.NotFound(op, domain.ErrQuestionNotFound)
	}

	correct := answerMatches(sub.Answer, question.CorrectAnswer)
	points := scoring.CalculatePoints(question.Points, correct, sub.TimeTaken, s.opts.TimeLimit)
	record := domain.AnswerRecord{
		QuestionID:    question.ID,
		Answer:        sub.Answer,
		Correct:       correct,
		CorrectAnswer: question.CorrectAnswer,
		PointsEarned:  points,
		TimeTaken:     math.Max(0, sub.TimeTaken),
		SubmittedAt:   s.opts.Clock(),
	}
	// The ledger write is the claim. The award is keyed by question, so whichever
	// caller settles the record scores it exactly once.
	if err := s.ledger.Put(ctx, sub.SessionID, sub.ParticipantID, sub.QuestionID, record); err != nil {
		if !errors.Is(err, domain.ErrAnswerExists) {
			return AnswerResult{}, storeError(op, err)
		}
		existing, ok, err := s.ledger.Get(ctx, sub.SessionID, sub.ParticipantID, sub.QuestionID)
		if err != nil {
			return AnswerResult{}, storeError(op, err)
		}
		if !ok {
			return AnswerResult{}, domain.Unavailable(op, errors.New("answer record vanished"))
		}
		return s.replay(ctx, op, sub, participant, existing)
	}

	score, _, err := s.settle(ctx, sub.SessionID, participant, record)
	if err != nil {
		return AnswerResult{}, storeError(op, err)
	}

	rank, err := s.rank(ctx, sub.SessionID, sub.ParticipantID)
	if err != nil {
		return AnswerResult{}, storeError(op, err)
	}
	s.metrics.Answered(correct, false)
	return AnswerResult{
		QuestionID:    question.ID,
		Correct:       correct,
		CorrectAnswer: question.CorrectAnswer,
		PointsEarned:  points,
		Score:         score,
		Rank:          rank,
	}, nil
}

// replay answers a repeated submission from the ledger. It also finishes scoring that
// an earlier attempt recorded but failed to apply.
func (s *QuizService) replay(ctx context.Context, op string, sub domain.AnswerSubmission, participant domain.Participant, record domain.AnswerRecord) (AnswerResult, error) {
	score, applied, err := s.settle(ctx, sub.SessionID, participant, record)
	if err != nil {
		return AnswerResult{}, storeError(op, err)
	}
	rank, err := s.rank(ctx, sub.SessionID, sub.ParticipantID)
	if err != nil {
		return AnswerResult{}, storeError(op, err)
	}
	s.metrics.Answered(record.Correct, true)
	if applied {
		s.logger.InfoContext(ctx, "applied pending score", "session_id", sub.SessionID, "participant_id", sub.ParticipantID, "question_id", record.QuestionID, "points", record.PointsEarned)
	} else {
		s.logger.DebugContext(ctx, "duplicate answer", "session_id", sub.SessionID, "participant_id", sub.ParticipantID, "question_id", sub.QuestionID)
	}
	return AnswerResult{
		QuestionID:    record.QuestionID,
		Correct:       record.Correct,
		CorrectAnswer: record.CorrectAnswer,
		PointsEarned:  record.PointsEarned,
		Score:         score,
		Rank:          rank,
		Duplicate:     true,
	}, nil
}

// AdvanceQuestion moves to the next question. Past the last question the session
// completes and the result reports Done.
func (s *QuizService) AdvanceQuestion(ctx context.Context, sessionID string) (_ AdvanceResult, err error) {
	const op = "advance_question"
	defer s.observe(ctx, op, time.Now(), &err, "session_id", sessionID)
	ctx, cancel := context.WithTimeout(ctx, s.opts.OpTimeout)
	defer cancel()

	unlock, err := s.locks.Lock(ctx, sessionKey(sessionID))
	if err != nil {
		return AdvanceResult{}, storeError(op, err)
	}
	defer unlock()

	session, err := s.loadSession(ctx, op, sessionID)
	if err != nil {
		return AdvanceResult{}, err
	}
	count, err := s.sessions.CountParticipants(ctx, sessionID)
	if err != nil {
		return AdvanceResult{}, storeError(op, err)
	}

	switch session.Status {
	case domain.StatusWaiting:
		return AdvanceResult{}, domain.Precondition(op, domain.ErrNotInProgress)
	case domain.StatusCompleted:
		return AdvanceResult{Session: summarize(session, count), Done: true}, nil
	}

	if next := session.CurrentQuestionIndex + 1; next < len(session.Questions) {
		session.CurrentQuestionIndex = next
		if err := s.sessions.Update(ctx, session); err != nil {
			return AdvanceResult{}, storeError(op, err)
		}
		q := session.Questions[next].Sanitized()
		return AdvanceResult{Session: summarize(session, count), Question: &q}, nil
	}

	now := s.opts.Clock()
	session.Status = domain.StatusCompleted
	session.EndedAt = &now
	session.CurrentQuestionIndex = len(session.Questions)
	if err := s.sessions.Update(ctx, session); err != nil {
		return AdvanceResult{}, storeError(op, err)
	}
	s.metrics.SessionCompleted()
	s.logger.InfoContext(ctx, "quiz completed", "session_id", sessionID)
	return AdvanceResult{Session: summarize(session, count), Done: true, Completed: true}, nil
}

// GetSession returns the session summary, including the current question while in progress.
func (s *QuizService) GetSession(ctx context.Context, sessionID string) (_ SessionSummary, err error) {
	const op = "get_session"
	defer s.observe(ctx, op, time.Now(), &err, "session_id", sessionID)
	ctx, cancel := context.WithTimeout(ctx, s.opts.OpTimeout)
	defer cancel()

	session, err := s.loadSession(ctx, op, sessionID)
	if err != nil {
		return SessionSummary{}, err
	}
	count, err := s.sessions.CountParticipants(ctx, sessionID)
	if err != nil {
		return SessionSummary{}, storeError(op, err)
	}
	return summarize(session, count), nil
}

// CurrentQuestion returns the sanitized question being played, if the quiz is in progress.
func (s *QuizService) CurrentQuestion(ctx context.Context, sessionID string) (_ domain.Question, _ bool, err error) {
	const op = "current_question"
	defer s.observe(ctx, op, time.Now(), &err, "session_id", sessionID)
	ctx, cancel := context.WithTimeout(ctx, s.opts.OpTimeout)
	defer cancel()

	session, err := s.loadSession(ctx, op, sessionID)
	if err != nil {
		return domain.Question{}, false, err
	}
	if session.Status != domain.StatusInProgress {
		return domain.Question{}, false, nil
	}
	q, ok := session.CurrentQuestion()
	if !ok {
		return domain.Question{}, false, nil
	}
	return q.Sanitized(), true, nil
}

// LookupQuestion resolves a question from the bank, without its answer.
func (s *QuizService) LookupQuestion(ctx context.Context, questionID string) (_ domain.Question, err error) {
	const op = "lookup_question"
	defer s.observe(ctx, op, time.Now(), &err, "question_id", questionID)
	ctx, cancel := context.WithTimeout(ctx, s.opts.OpTimeout)
	defer cancel()

	q, ok, err := s.bank.QuestionByID(ctx, questionID)
	if err != nil {
		return domain.Question{}, storeError(op, err)
	}
	if !ok {
		return domain.Question{}, domain.NotFound(op, domain.ErrQuestionNotFound)
	}
	return q.Sanitized(), nil
}

// GetLeaderboard returns the top entries enriched with per-participant answer counts.
func (s *QuizService) GetLeaderboard(ctx context.Context, sessionID string, limit int) (_ domain.Leaderboard, err error) {
	const op = "get_leaderboard"
	defer s.observe(ctx, op, time.Now(), &err, "session_id", sessionID)
	ctx, cancel := context.WithTimeout(ctx, s.opts.OpTimeout)
	defer cancel()

	if _, err := s.loadSession(ctx, op, sessionID); err != nil {
		return domain.Leaderboard{}, err
	}
	if limit <= 0 {
		limit = defaultLeaderboardLimit
	}
	top, err := s.ranking.Top(ctx, sessionID, limit)
	if err != nil {
		return domain.Leaderboard{}, storeError(op, err)
	}

	entries := make([]domain.LeaderboardEntry, len(top))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(enrichConcurrency)
	for i, member := range top {
		g.Go(func() error {
			entry := domain.LeaderboardEntry{
				ParticipantID: member.Member,
				DisplayName:   member.Member,
				Score:         member.Score,
				Rank:          i + 1,
			}
			participant, ok, err := s.sessions.GetParticipant(gctx, sessionID, member.Member)
			if err != nil {
				return err
			}
			if ok {
				entry.DisplayName = participant.DisplayName
			}
			records, err := s.ledger.AllForParticipant(gctx, sessionID, member.Member)
			if err != nil {
				return err
			}
			correct := 0
			for _, r := range records {
				if r.Correct {
					correct++
				}
			}
			total := len(records)
			entry.CorrectAnswers = &correct
			entry.TotalAnswers = &total
			entries[i] = entry
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return domain.Leaderboard{}, storeError(op, err)
	}
	return domain.Leaderboard{SessionID: sessionID, Entries: entries, UpdatedAt: s.opts.Clock()}, nil
}

// GetFullLeaderboard lists every participant who ever joined, highest score first.
func (s *QuizService) GetFullLeaderboard(ctx context.Context, sessionID string) (_ domain.Leaderboard, err error) {
	const op = "get_full_leaderboard"
	defer s.observe(ctx, op, time.Now(), &err, "session_id", sessionID)
	ctx, cancel := context.WithTimeout(ctx, s.opts.OpTimeout)
	defer cancel()

	if _, err := s.loadSession(ctx, op, sessionID); err != nil {
		return domain.Leaderboard{}, err
	}
	ranked, err := s.ranking.All(ctx, sessionID)
	if err != nil {
		return domain.Leaderboard{}, storeError(op, err)
	}
	participants, err := s.sessions.ListParticipants(ctx, sessionID)
	if err != nil {
		return domain.Leaderboard{}, storeError(op, err)
	}
	names := make(map[string]string, len(participants))
	for _, p := range participants {
		names[p.ID] = p.DisplayName
	}

	entries := make([]domain.LeaderboardEntry, 0, len(ranked))
	for i, member := range ranked {
		name, ok := names[member.Member]
		if !ok {
			name = member.Member
		}
		entries = append(entries, domain.LeaderboardEntry{
			ParticipantID: member.Member,
			DisplayName:   name,
			Score:         member.Score,
			Rank:          i + 1,
		})
	}
	return domain.Leaderboard{SessionID: sessionID, Entries: entries, UpdatedAt: s.opts.Clock()}, nil
}

// ParticipantAnswers returns the ledger of one participant keyed by question id.
func (s *QuizService) ParticipantAnswers(ctx context.Context, sessionID, participantID string) (_ map[string]domain.AnswerRecord, err error) {
	const op = "participant_answers"
	defer s.observe(ctx, op, time.Now(), &err, "session_id", sessionID, "participant_id", participantID)
	ctx, cancel := context.WithTimeout(ctx, s.opts.OpTimeout)
	defer cancel()

	if _, err := s.loadSession(ctx, op, sessionID); err != nil {
		return nil, err
	}
	if _, ok, err := s.sessions.GetParticipant(ctx, sessionID, participantID); err != nil {
		return nil, storeError(op, err)
	} else if !ok {
		return nil, domain.NotFound(op, domain.ErrParticipantNotFound)
	}
	records, err := s.ledger.AllForParticipant(ctx, sessionID, participantID)
	if err != nil {
		return nil, storeError(op, err)
	}
	return records, nil
}

func (s *QuizService) loadSession(ctx context.Context, op, sessionID string) (domain.QuizSession, error) {
	session, ok, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return domain.QuizSession{}, storeError(op, err)
	}
	if !ok {
		return domain.QuizSession{}, domain.NotFound(op, domain.ErrSessionNotFound)
	}
	return session, nil
}

// settle applies the record's points once per question and brings the stored
// participant's score and answer count in line with the ranking and the ledger.
// Every step is safe to repeat, so a retry after a partial failure converges.
func (s *QuizService) settle(ctx context.Context, sessionID string, participant domain.Participant, record domain.AnswerRecord) (int, bool, error) {
	score, applied, err := s.ranking.Award(ctx, sessionID, participant.ID, record.QuestionID, record.PointsEarned)
	if err != nil {
		return 0, false, err
	}
	records, err := s.ledger.AllForParticipant(ctx, sessionID, participant.ID)
	if err != nil {
		return 0, false, err
	}
	if participant.Score != score || participant.AnswersSubmitted != len(records) {
		participant.Score = score
		participant.AnswersSubmitted = len(records)
		if err := s.sessions.SaveParticipant(ctx, sessionID, participant); err != nil {
			return 0, false, err
		}
	}
	return score, applied, nil
}

// rank returns the 1-based rank, or 0 when the member is not ranked.
func (s *QuizService) rank(ctx context.Context, sessionID, participantID string) (int, error) {
	rank, ok, err := s.ranking.Rank(ctx, sessionID, participantID)
	if err != nil || !ok {
		return 0, err
	}
	return rank + 1, nil
}

func (s *QuizService) observe(ctx context.Context, op string, started time.Time, errp *error, attrs ...any) {
	err := *errp
	if err == nil {
		s.metrics.Observe(op, started, "")
		return
	}
	kind := domain.KindOf(err)
	s.metrics.Observe(op, started, kind.String())

	level := slog.LevelInfo
	if kind == domain.KindUnavailable || kind == domain.KindInternal {
		level = slog.LevelError
	}
	args := append([]any{"op", op, "kind", kind.String(), "error", err}, attrs...)
	s.logger.Log(ctx, level, "quiz operation failed", args...)
}

// storeError keeps typed errors and marks anything else from a store as retryable.
func storeError(op string, err error) error {
	var typed *domain.Error
	if errors.As(err, &typed) {
		return err
	}
	if kind := domain.KindOf(err); kind != domain.KindInternal {
		return domain.E(kind, op, err)
	}
	return domain.Unavailable(op, err)
}

func answerMatches(submitted, correct string) bool {
	return strings.EqualFold(strings.TrimSpace(submitted), strings.TrimSpace(correct))
}

func sessionKey(sessionID string) string { return "session:" + sessionID }

func participantKey(sessionID, participantID string) string {
	return "participant:" + sessionID + "/" + participantID
}

func newSessionCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
}
