package domain

import "time"

// SessionStatus is the lifecycle state of a quiz session.
type SessionStatus string

const (
	StatusWaiting    SessionStatus = "waiting"
	StatusInProgress SessionStatus = "in_progress"
	StatusCompleted  SessionStatus = "completed"
)

// Difficulty is the tier a question is sampled from.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Valid reports whether d is one of the known tiers.
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// Question models a multiple choice question. CorrectAnswer holds the text of the
// correct option and must be blanked before a question leaves the service.
type Question struct {
	ID            string     `json:"id"`
	Prompt        string     `json:"prompt"`
	Options       []string   `json:"options"`
	CorrectAnswer string     `json:"correctAnswer,omitempty"`
	Difficulty    Difficulty `json:"difficulty"`
	Category      string     `json:"category"`
	Points        int        `json:"points"`
}

// Sanitized returns a copy of q without the correct answer.
func (q Question) Sanitized() Question {
	out := q
	out.Options = append([]string(nil), q.Options...)
	out.CorrectAnswer = ""
	return out
}

// QuizSession is one instance of a quiz being played by a group of participants.
type QuizSession struct {
	ID                   string        `json:"id"`
	Title                string        `json:"title"`
	Status               SessionStatus `json:"status"`
	Questions            []Question    `json:"questions"`
	CurrentQuestionIndex int           `json:"currentQuestionIndex"`
	CreatedAt            time.Time     `json:"createdAt"`
	StartedAt            *time.Time    `json:"startedAt,omitempty"`
	EndedAt              *time.Time    `json:"endedAt,omitempty"`
	MaxParticipants      int           `json:"maxParticipants"`
}

// CurrentQuestion returns the question at the current index, if any.
func (s QuizSession) CurrentQuestion() (Question, bool) {
	if s.CurrentQuestionIndex < 0 || s.CurrentQuestionIndex >= len(s.Questions) {
		return Question{}, false
	}
	return s.Questions[s.CurrentQuestionIndex], true
}

// Question looks up questionID within the session's fixed question set.
func (s QuizSession) Question(questionID string) (Question, bool) {
	for _, q := range s.Questions {
		if q.ID == questionID {
			return q, true
		}
	}
	return Question{}, false
}

// Participant represents a quiz participant and their accumulated score.
type Participant struct {
	ID               string    `json:"id"`
	DisplayName      string    `json:"displayName"`
	Score            int       `json:"score"`
	AnswersSubmitted int       `json:"answersSubmitted"`
	JoinedAt         time.Time `json:"joinedAt"`
	Address          string    `json:"address"`
}

// AnswerRecord is the write-once outcome of one participant answering one question.
type AnswerRecord struct {
	QuestionID    string    `json:"questionId"`
	Answer        string    `json:"answer"`
	Correct       bool      `json:"correct"`
	CorrectAnswer string    `json:"correctAnswer"`
	PointsEarned  int       `json:"pointsEarned"`
	TimeTaken     float64   `json:"timeTaken"`
	SubmittedAt   time.Time `json:"submittedAt"`
}

// RankedMember is a single row of a ranking store range query.
type RankedMember struct {
	Member string
	Score  int
}

// AnswerSubmission models the scoring signal from clients.
type AnswerSubmission struct {
	SessionID     string
	ParticipantID string
	QuestionID    string
	Answer        string
	TimeTaken     float64
}

// LeaderboardEntry is a snapshot-friendly view of a participant.
type LeaderboardEntry struct {
	ParticipantID  string `json:"participantId"`
	DisplayName    string `json:"displayName"`
	Score          int    `json:"score"`
	Rank           int    `json:"rank"`
	CorrectAnswers *int   `json:"correctAnswers,omitempty"`
	TotalAnswers   *int   `json:"totalAnswers,omitempty"`
}

// Leaderboard captures the ordered scoreboard for a quiz session.
type Leaderboard struct {
	SessionID string             `json:"sessionId"`
	Entries   []LeaderboardEntry `json:"entries"`
	UpdatedAt time.Time          `json:"updatedAt"`
}
