package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"live-quiz-service/internal/domain"

	"github.com/redis/go-redis/v9"
)

// putScript is HSETNX plus an expiry aligned with the session key's remaining TTL.
// ARGV[3] is the fallback TTL in milliseconds for sessions without one.
var putScript = redis.NewScript(`
local answers, session = KEYS[1], KEYS[2]
local stored = redis.call('HSETNX', answers, ARGV[1], ARGV[2])
if stored == 1 then
  local ttl = redis.call('PTTL', session)
  if ttl < 0 then
    ttl = tonumber(ARGV[3])
  end
  if ttl > 0 then
    redis.call('PEXPIRE', answers, ttl)
  end
end
return stored
`)

// AnswerLedger stores answers as HSETNX quiz:session:{id}:answers:{participant} {question} {json}.
// HSETNX makes the write a compare-and-swap across processes, and the hash expires
// together with its session.
type AnswerLedger struct {
	client *redis.Client
	ttl    time.Duration
}

func NewAnswerLedger(client *redis.Client, ttl time.Duration) *AnswerLedger {
	return &AnswerLedger{client: client, ttl: ttl}
}

func (l *AnswerLedger) Get(ctx context.Context, sessionID, participantID, questionID string) (domain.AnswerRecord, bool, error) {
	data, err := l.client.HGet(ctx, answersKey(sessionID, participantID), questionID).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.AnswerRecord{}, false, nil
	}
	if err != nil {
		return domain.AnswerRecord{}, false, fmt.Errorf("get answer: %w", err)
	}
	var rec domain.AnswerRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return domain.AnswerRecord{}, false, fmt.Errorf("decode answer: %w", err)
	}
	return rec, true, nil
}

func (l *AnswerLedger) Put(ctx context.Context, sessionID, participantID, questionID string, record domain.AnswerRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode answer: %w", err)
	}
	stored, err := putScript.Run(ctx, l.client,
		[]string{answersKey(sessionID, participantID), sessionKey(sessionID)},
		questionID, data, l.ttl.Milliseconds(),
	).Int()
	if err != nil {
		return fmt.Errorf("put answer: %w", err)
	}
	if stored == 0 {
		return domain.ErrAnswerExists
	}
	return nil
}

func (l *AnswerLedger) AllForParticipant(ctx context.Context, sessionID, participantID string) (map[string]domain.AnswerRecord, error) {
	raw, err := l.client.HGetAll(ctx, answersKey(sessionID, participantID)).Result()
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	out := make(map[string]domain.AnswerRecord, len(raw))
	for questionID, v := range raw {
		var rec domain.AnswerRecord
		if err := json.Unmarshal([]byte(v), &rec); err != nil {
			return nil, fmt.Errorf("decode answer: %w", err)
		}
		out[questionID] = rec
	}
	return out, nil
}

// DeleteSession removes the answer hashes of every participant of the session.
func (l *AnswerLedger) DeleteSession(ctx context.Context, sessionID string) error {
	iter := l.client.Scan(ctx, 0, answersKey(sessionID, "*"), 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan answers: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := l.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("delete answers: %w", err)
	}
	return nil
}

func answersKey(sessionID, participantID string) string {
	return sessionKey(sessionID) + ":answers:" + participantID
}
