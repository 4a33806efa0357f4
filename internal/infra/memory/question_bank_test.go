package memory

import (
	"context"
	"testing"
	"time"

	"live-quiz-service/internal/domain"
)

func TestQuestionBankCaches(t *testing.T) {
	loader := &countingLoader{QuestionLoader: NewStaticQuestionLoader(sampleQuestions())}
	bank := NewQuestionBank(loader, time.Minute)
	ctx := context.Background()

	easy, err := bank.QuestionsByDifficulty(ctx, domain.DifficultyEasy)
	if err != nil {
		t.Fatalf("by difficulty: %v", err)
	}
	if len(easy) != 1 || easy[0].ID != "q1" {
		t.Fatalf("expected q1 as the only easy question, got %+v", easy)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader once, got %d", loader.calls)
	}

	q, ok, err := bank.QuestionByID(ctx, "q2")
	if err != nil || !ok {
		t.Fatalf("expected q2, ok=%v err=%v", ok, err)
	}
	if q.Points != 1 {
		t.Fatalf("expected zero points to default to 1, got %d", q.Points)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.calls)
	}

	if _, ok, _ := bank.QuestionByID(ctx, "missing"); ok {
		t.Fatalf("unexpected question")
	}
}

type countingLoader struct {
	QuestionLoader
	calls int
}

func (l *countingLoader) LoadQuestions(ctx context.Context) ([]domain.Question, error) {
	l.calls++
	return l.QuestionLoader.LoadQuestions(ctx)
}

func sampleQuestions() []domain.Question {
	return []domain.Question{
		{
			ID:            "q1",
			Prompt:        "What is 2 + 2?",
			Options:       []string{"3", "4", "5"},
			CorrectAnswer: "4",
			Difficulty:    domain.DifficultyEasy,
			Category:      "math",
			Points:        10,
		},
		{
			ID:            "q2",
			Prompt:        "Capital of Australia?",
			Options:       []string{"Sydney", "Canberra"},
			CorrectAnswer: "Canberra",
			Difficulty:    domain.DifficultyMedium,
			Category:      "geography",
		},
	}
}
