package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"live-quiz-service/internal/domain"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const questionBankKey = "quiz:bank:questions"

// QuestionLoader fetches the full question bank from a backing store (e.g., Postgres).
type QuestionLoader interface {
	LoadQuestions(ctx context.Context) ([]domain.Question, error)
}

// QuestionBank caches the question bank in Redis (hash of questionID -> JSON) and
// falls back to a loader on cache miss, so every instance shares one warm copy.
type QuestionBank struct {
	client *redis.Client
	loader QuestionLoader
	ttl    time.Duration
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewQuestionBank(client *redis.Client, loader QuestionLoader, ttl time.Duration) *QuestionBank {
	return &QuestionBank{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (b *QuestionBank) QuestionsByDifficulty(ctx context.Context, difficulty domain.Difficulty) ([]domain.Question, error) {
	questions, err := b.all(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Question, 0, len(questions))
	for _, q := range questions {
		if q.Difficulty == difficulty {
			out = append(out, q)
		}
	}
	return out, nil
}

func (b *QuestionBank) QuestionByID(ctx context.Context, questionID string) (domain.Question, bool, error) {
	data, err := b.client.HGet(ctx, questionBankKey, questionID).Bytes()
	if err == nil {
		var q domain.Question
		if err := json.Unmarshal(data, &q); err != nil {
			return domain.Question{}, false, fmt.Errorf("decode question: %w", err)
		}
		return q, true, nil
	}
	if !errors.Is(err, redis.Nil) {
		return domain.Question{}, false, fmt.Errorf("get question: %w", err)
	}

	// Either the id is unknown or the cache is cold; a fill settles it.
	questions, err := b.all(ctx)
	if err != nil {
		return domain.Question{}, false, err
	}
	for _, q := range questions {
		if q.ID == questionID {
			return q, true, nil
		}
	}
	return domain.Question{}, false, nil
}

func (b *QuestionBank) all(ctx context.Context) ([]domain.Question, error) {
	raw, err := b.client.HGetAll(ctx, questionBankKey).Result()
	if err == nil && len(raw) > 0 {
		return decodeQuestions(raw)
	}

	result, err, _ := b.sf.Do(questionBankKey, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		raw, err := b.client.HGetAll(ctx, questionBankKey).Result()
		if err == nil && len(raw) > 0 {
			return decodeQuestions(raw)
		}

		questions, err := b.loader.LoadQuestions(ctx)
		if err != nil {
			return nil, err
		}

		ttl := b.ttlWithJitter()
		pipe := b.client.Pipeline()
		for i := range questions {
			if questions[i].Points == 0 {
				questions[i].Points = 1
			}
			data, err := json.Marshal(questions[i])
			if err != nil {
				return nil, fmt.Errorf("encode question: %w", err)
			}
			pipe.HSet(ctx, questionBankKey, questions[i].ID, data)
		}
		if ttl > 0 && len(questions) > 0 {
			pipe.Expire(ctx, questionBankKey, ttl)
		}
		_, _ = pipe.Exec(ctx)

		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

func decodeQuestions(raw map[string]string) ([]domain.Question, error) {
	out := make([]domain.Question, 0, len(raw))
	for _, v := range raw {
		var q domain.Question
		if err := json.Unmarshal([]byte(v), &q); err != nil {
			return nil, fmt.Errorf("decode question: %w", err)
		}
		out = append(out, q)
	}
	return out, nil
}

func (b *QuestionBank) ttlWithJitter() time.Duration {
	if b.ttl <= 0 {
		return 0
	}
	b.rndMu.Lock()
	defer b.rndMu.Unlock()
	jitterMax := int64(b.ttl) / 10
	return b.ttl + time.Duration(b.rnd.Int63n(jitterMax+1))
}
