// Package selection picks the question set for a new quiz session.
package selection

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"live-quiz-service/internal/domain"
)

// Source exposes the question bank by difficulty tier.
type Source interface {
	QuestionsByDifficulty(ctx context.Context, difficulty domain.Difficulty) ([]domain.Question, error)
}

// Mix is the target share of each tier. Hard receives whatever easy and medium leave.
type Mix struct {
	Easy   float64
	Medium float64
}

// DefaultMix targets 40% easy, 40% medium and 20% hard.
var DefaultMix = Mix{Easy: 0.4, Medium: 0.4}

// Quotas splits count across tiers using the mix.
func (m Mix) Quotas(count int) map[domain.Difficulty]int {
	if count <= 0 {
		return map[domain.Difficulty]int{}
	}
	easy := int(math.Round(float64(count) * m.Easy))
	medium := int(math.Round(float64(count) * m.Medium))
	if easy > count {
		easy = count
	}
	if easy+medium > count {
		medium = count - easy
	}
	return map[domain.Difficulty]int{
		domain.DifficultyEasy:   easy,
		domain.DifficultyMedium: medium,
		domain.DifficultyHard:   count - easy - medium,
	}
}

// Selector draws a stratified sample. The random source is injectable so tests can
// assert deterministic output.
type Selector struct {
	mix Mix

	mu   sync.Mutex
	rand *rand.Rand
}

// NewSelector creates a selector seeded from the clock.
func NewSelector() *Selector {
	return NewSelectorWithRand(rand.New(rand.NewSource(time.Now().UnixNano())))
}

// NewSelectorWithRand creates a selector over a caller-owned random source.
func NewSelectorWithRand(r *rand.Rand) *Selector {
	return &Selector{mix: DefaultMix, rand: r}
}

var tiers = []domain.Difficulty{domain.DifficultyEasy, domain.DifficultyMedium, domain.DifficultyHard}

// Select returns up to count questions. Tiers with fewer questions than their quota
// contribute everything they have; the combined set is shuffled once more.
func (s *Selector) Select(ctx context.Context, source Source, count int) ([]domain.Question, error) {
	quotas := s.mix.Quotas(count)
	pools := make(map[domain.Difficulty][]domain.Question, len(tiers))
	for _, tier := range tiers {
		if quotas[tier] == 0 {
			continue
		}
		pool, err := source.QuestionsByDifficulty(ctx, tier)
		if err != nil {
			return nil, fmt.Errorf("load %s questions: %w", tier, err)
		}
		pools[tier] = pool
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	selected := make([]domain.Question, 0, count)
	for _, tier := range tiers {
		pool := append([]domain.Question(nil), pools[tier]...)
		s.rand.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
		take := quotas[tier]
		if take > len(pool) {
			take = len(pool)
		}
		selected = append(selected, pool[:take]...)
	}
	s.rand.Shuffle(len(selected), func(i, j int) { selected[i], selected[j] = selected[j], selected[i] })
	return selected, nil
}
