package redis

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"live-quiz-service/internal/domain"

	"github.com/redis/go-redis/v9"
)

// arrivalScale reserves the low 20 bits of every sorted-set score for the arrival
// tie-breaker: stored = points*arrivalScale + (arrivalScale - seq). Earlier arrivals
// therefore sort higher among equal points and ZREVRANK stays exact.
const arrivalScale = 1 << 20

// scoreScript registers the member with its arrival sequence on first sight, then
// applies the scaled delta. A non-empty award id is recorded in the awards set and the
// delta is skipped when it was already there. All ranking keys share the session key's
// remaining TTL, falling back to the configured TTL when the session has none.
var scoreScript = redis.NewScript(`
local board, seqKey, awardsKey, session = KEYS[1], KEYS[2], KEYS[3], KEYS[4]
local member, award, scaledDelta, scale, fallback = ARGV[1], ARGV[2], ARGV[3], tonumber(ARGV[4]), tonumber(ARGV[5])
if redis.call('ZSCORE', board, member) == false then
  local seq = redis.call('INCR', seqKey)
  redis.call('ZADD', board, scale - seq, member)
end
local applied = 1
if award ~= '' then
  applied = redis.call('SADD', awardsKey, member .. '\n' .. award)
end
if applied == 1 then
  redis.call('ZINCRBY', board, scaledDelta, member)
end
local ttl = redis.call('PTTL', session)
if ttl < 0 then
  ttl = fallback
end
if ttl > 0 then
  redis.call('PEXPIRE', board, ttl)
  redis.call('PEXPIRE', seqKey, ttl)
  redis.call('PEXPIRE', awardsKey, ttl)
end
return {redis.call('ZSCORE', board, member), applied}
`)

// RankingStore keeps one sorted set per session (quiz:session:{id}:ranking). ttl only
// applies when the session key itself carries no expiry.
type RankingStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRankingStore(client *redis.Client, ttl time.Duration) *RankingStore {
	return &RankingStore{client: client, ttl: ttl}
}

func (r *RankingStore) Increment(ctx context.Context, sessionID, member string, delta int) (int, error) {
	score, _, err := r.apply(ctx, sessionID, member, "", delta)
	if err != nil {
		return 0, fmt.Errorf("increment score: %w", err)
	}
	return score, nil
}

func (r *RankingStore) Award(ctx context.Context, sessionID, member, awardID string, delta int) (int, bool, error) {
	if awardID == "" {
		return 0, false, errors.New("award: empty award id")
	}
	score, applied, err := r.apply(ctx, sessionID, member, awardID, delta)
	if err != nil {
		return 0, false, fmt.Errorf("award score: %w", err)
	}
	return score, applied, nil
}

func (r *RankingStore) apply(ctx context.Context, sessionID, member, awardID string, delta int) (int, bool, error) {
	res, err := scoreScript.Run(ctx, r.client,
		[]string{rankingKey(sessionID), rankingSeqKey(sessionID), rankingAwardsKey(sessionID), sessionKey(sessionID)},
		member,
		awardID,
		strconv.FormatInt(int64(delta)*arrivalScale, 10),
		arrivalScale,
		r.ttl.Milliseconds(),
	).Slice()
	if err != nil {
		return 0, false, err
	}
	if len(res) != 2 {
		return 0, false, fmt.Errorf("unexpected script reply %v", res)
	}
	raw, _ := res[0].(string)
	stored, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false, fmt.Errorf("parse score %q: %w", raw, err)
	}
	applied, _ := res[1].(int64)
	return decodeScore(stored), applied == 1, nil
}

func (r *RankingStore) DeleteSession(ctx context.Context, sessionID string) error {
	err := r.client.Del(ctx, rankingKey(sessionID), rankingSeqKey(sessionID), rankingAwardsKey(sessionID)).Err()
	if err != nil {
		return fmt.Errorf("delete ranking: %w", err)
	}
	return nil
}

func (r *RankingStore) Score(ctx context.Context, sessionID, member string) (int, bool, error) {
	stored, err := r.client.ZScore(ctx, rankingKey(sessionID), member).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("score: %w", err)
	}
	return decodeScore(stored), true, nil
}

func (r *RankingStore) Rank(ctx context.Context, sessionID, member string) (int, bool, error) {
	rank, err := r.client.ZRevRank(ctx, rankingKey(sessionID), member).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("rank: %w", err)
	}
	return int(rank), true, nil
}

func (r *RankingStore) Top(ctx context.Context, sessionID string, n int) ([]domain.RankedMember, error) {
	if n <= 0 {
		return []domain.RankedMember{}, nil
	}
	return r.rangeDesc(ctx, sessionID, int64(n-1))
}

func (r *RankingStore) All(ctx context.Context, sessionID string) ([]domain.RankedMember, error) {
	return r.rangeDesc(ctx, sessionID, -1)
}

func (r *RankingStore) rangeDesc(ctx context.Context, sessionID string, stop int64) ([]domain.RankedMember, error) {
	zs, err := r.client.ZRevRangeWithScores(ctx, rankingKey(sessionID), 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("range scores: %w", err)
	}
	out := make([]domain.RankedMember, 0, len(zs))
	for _, z := range zs {
		member, _ := z.Member.(string)
		out = append(out, domain.RankedMember{Member: member, Score: decodeScore(z.Score)})
	}
	return out, nil
}

func decodeScore(stored float64) int {
	return int(math.Floor(stored / arrivalScale))
}

func rankingKey(sessionID string) string {
	return sessionKey(sessionID) + ":ranking"
}

func rankingSeqKey(sessionID string) string {
	return rankingKey(sessionID) + ":seq"
}

func rankingAwardsKey(sessionID string) string {
	return rankingKey(sessionID) + ":awards"
}
