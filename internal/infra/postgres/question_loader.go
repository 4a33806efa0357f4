package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"live-quiz-service/internal/domain"

	"github.com/jackc/pgx/v4/pgxpool"
)

const selectQuestions = `SELECT id, prompt, options, correct_answer, difficulty, category, points
FROM questions
ORDER BY id`

// QuestionLoader loads the question bank from Postgres.
type QuestionLoader struct {
	pool *pgxpool.Pool
}

func NewQuestionLoader(pool *pgxpool.Pool) *QuestionLoader {
	return &QuestionLoader{pool: pool}
}

func (l *QuestionLoader) LoadQuestions(ctx context.Context) ([]domain.Question, error) {
	rows, err := l.pool.Query(ctx, selectQuestions)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	defer rows.Close()

	var out []domain.Question
	for rows.Next() {
		var (
			q          domain.Question
			rawOptions []byte
			difficulty string
		)
		if err := rows.Scan(&q.ID, &q.Prompt, &rawOptions, &q.CorrectAnswer, &difficulty, &q.Category, &q.Points); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		if err := json.Unmarshal(rawOptions, &q.Options); err != nil {
			return nil, fmt.Errorf("unmarshal options for %s: %w", q.ID, err)
		}
		q.Difficulty = domain.Difficulty(difficulty)
		if !q.Difficulty.Valid() {
			return nil, fmt.Errorf("question %s: unknown difficulty %q", q.ID, difficulty)
		}
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate questions: %w", err)
	}
	return out, nil
}
