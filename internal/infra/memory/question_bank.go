package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"live-quiz-service/internal/domain"

	"golang.org/x/sync/singleflight"
)

// QuestionLoader fetches the full question bank from a backing store (e.g., Postgres).
type QuestionLoader interface {
	LoadQuestions(ctx context.Context) ([]domain.Question, error)
}

// QuestionBank caches the question bank with TTL to avoid repeated DB hits.
type QuestionBank struct {
	loader QuestionLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu        sync.RWMutex
	cached    *indexedBank
	expiresAt time.Time
}

type indexedBank struct {
	byID         map[string]domain.Question
	byDifficulty map[domain.Difficulty][]domain.Question
}

func NewQuestionBank(loader QuestionLoader, ttl time.Duration) *QuestionBank {
	return &QuestionBank{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (b *QuestionBank) QuestionsByDifficulty(ctx context.Context, difficulty domain.Difficulty) ([]domain.Question, error) {
	bank, err := b.load(ctx)
	if err != nil {
		return nil, err
	}
	return append([]domain.Question(nil), bank.byDifficulty[difficulty]...), nil
}

func (b *QuestionBank) QuestionByID(ctx context.Context, questionID string) (domain.Question, bool, error) {
	bank, err := b.load(ctx)
	if err != nil {
		return domain.Question{}, false, err
	}
	q, ok := bank.byID[questionID]
	return q, ok, nil
}

func (b *QuestionBank) load(ctx context.Context) (*indexedBank, error) {
	b.mu.RLock()
	if b.cached != nil && b.expiresAt.After(b.clock()) {
		bank := b.cached
		b.mu.RUnlock()
		return bank, nil
	}
	b.mu.RUnlock()

	result, err, _ := b.sf.Do("bank", func() (interface{}, error) {
		now := b.clock()
		b.mu.RLock()
		if b.cached != nil && b.expiresAt.After(now) {
			bank := b.cached
			b.mu.RUnlock()
			return bank, nil
		}
		b.mu.RUnlock()

		questions, err := b.loader.LoadQuestions(ctx)
		if err != nil {
			return nil, err
		}
		bank := indexQuestions(questions)

		b.mu.Lock()
		b.cached = bank
		b.expiresAt = now.Add(b.ttlWithJitter())
		b.mu.Unlock()
		return bank, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*indexedBank), nil
}

func indexQuestions(questions []domain.Question) *indexedBank {
	bank := &indexedBank{
		byID:         make(map[string]domain.Question, len(questions)),
		byDifficulty: make(map[domain.Difficulty][]domain.Question),
	}
	for _, q := range questions {
		if q.Points == 0 {
			q.Points = 1
		}
		bank.byID[q.ID] = q
		bank.byDifficulty[q.Difficulty] = append(bank.byDifficulty[q.Difficulty], q)
	}
	return bank
}

// StaticQuestionLoader is a simple loader backed by a slice (useful for tests/demos).
type StaticQuestionLoader struct {
	questions []domain.Question
}

func NewStaticQuestionLoader(questions []domain.Question) *StaticQuestionLoader {
	return &StaticQuestionLoader{questions: questions}
}

func (l *StaticQuestionLoader) LoadQuestions(_ context.Context) ([]domain.Question, error) {
	return append([]domain.Question(nil), l.questions...), nil
}

func (b *QuestionBank) ttlWithJitter() time.Duration {
	if b.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(b.ttl) / 10
	return b.ttl + time.Duration(b.rnd.Int63n(jitterMax+1))
}
