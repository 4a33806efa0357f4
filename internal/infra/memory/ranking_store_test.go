package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"live-quiz-service/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRankingStoreOrdersByScoreThenArrival(t *testing.T) {
	ctx := context.Background()
	store := NewRankingStore()

	for _, m := range []string{"alice", "bob", "carol"} {
		_, err := store.Increment(ctx, "Q1", m, 0)
		require.NoError(t, err)
	}
	score, err := store.Increment(ctx, "Q1", "carol", 15)
	require.NoError(t, err)
	assert.Equal(t, 15, score)

	all, err := store.All(ctx, "Q1")
	require.NoError(t, err)
	assert.Equal(t, []domain.RankedMember{
		{Member: "carol", Score: 15},
		{Member: "alice", Score: 0},
		{Member: "bob", Score: 0},
	}, all)

	rank, ok, err := store.Rank(ctx, "Q1", "bob")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, rank)

	top, err := store.Top(ctx, "Q1", 2)
	require.NoError(t, err)
	assert.Len(t, top, 2)
	assert.Equal(t, "alice", top[1].Member)

	again, err := store.Top(ctx, "Q1", 2)
	require.NoError(t, err)
	assert.Equal(t, top, again, "ties must resolve the same way on repeated reads")
}

func TestRankingStoreMissingMembers(t *testing.T) {
	ctx := context.Background()
	store := NewRankingStore()

	_, ok, err := store.Score(ctx, "nope", "alice")
	require.NoError(t, err)
	assert.False(t, ok)
	_, ok, err = store.Rank(ctx, "nope", "alice")
	require.NoError(t, err)
	assert.False(t, ok)

	all, err := store.All(ctx, "nope")
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestRankingStoreConcurrentIncrements(t *testing.T) {
	ctx := context.Background()
	store := NewRankingStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = store.Increment(ctx, "Q1", "alice", 2)
			_, _ = store.Increment(ctx, fmt.Sprintf("Q%d", i%3+2), "bob", 1)
		}(i)
	}
	wg.Wait()

	score, ok, err := store.Score(ctx, "Q1", "alice")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 100, score)
}

func TestRankingStoreAwardAppliesOnce(t *testing.T) {
	ctx := context.Background()
	store := NewRankingStore()

	score, applied, err := store.Award(ctx, "Q1", "alice", "q1", 15)
	require.NoError(t, err)
	assert.True(t, applied)
	assert.Equal(t, 15, score)

	score, applied, err = store.Award(ctx, "Q1", "alice", "q1", 15)
	require.NoError(t, err)
	assert.False(t, applied)
	assert.Equal(t, 15, score)

	score, applied, err = store.Award(ctx, "Q1", "alice", "q2", 0)
	require.NoError(t, err)
	assert.True(t, applied)
	assert.Equal(t, 15, score)

	// The same award id is independent per member.
	score, applied, err = store.Award(ctx, "Q1", "bob", "q1", 10)
	require.NoError(t, err)
	assert.True(t, applied)
	assert.Equal(t, 10, score)
}

func TestRankingStoreDeleteSession(t *testing.T) {
	ctx := context.Background()
	store := NewRankingStore()
	_, _, err := store.Award(ctx, "Q1", "alice", "q1", 15)
	require.NoError(t, err)
	_, err = store.Increment(ctx, "Q2", "bob", 5)
	require.NoError(t, err)

	require.NoError(t, store.DeleteSession(ctx, "Q1"))
	all, err := store.All(ctx, "Q1")
	require.NoError(t, err)
	assert.Empty(t, all)

	// Awards are forgotten with the board.
	_, applied, err := store.Award(ctx, "Q1", "alice", "q1", 15)
	require.NoError(t, err)
	assert.True(t, applied)

	score, ok, err := store.Score(ctx, "Q2", "bob")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 5, score)
}
