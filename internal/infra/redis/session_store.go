package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"live-quiz-service/internal/domain"

	"github.com/redis/go-redis/v9"
)

// SessionStore is a Redis implementation of app.SessionStore.
// Layout:
//
//	quiz:session:{id}               JSON session, EX = session TTL
//	quiz:session:{id}:participants  HASH participantID -> JSON participant, same deadline
//
// Updates use SET XX KEEPTTL so an expired session is never written back.
type SessionStore struct {
	client *redis.Client
}

func NewSessionStore(client *redis.Client) *SessionStore {
	return &SessionStore{client: client}
}

func (s *SessionStore) Create(ctx context.Context, session domain.QuizSession, ttl time.Duration) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	ok, err := s.client.SetNX(ctx, sessionKey(session.ID), data, ttl).Result()
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	if !ok {
		return domain.ErrSessionExists
	}
	return nil
}

func (s *SessionStore) Get(ctx context.Context, sessionID string) (domain.QuizSession, bool, error) {
	data, err := s.client.Get(ctx, sessionKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.QuizSession{}, false, nil
	}
	if err != nil {
		return domain.QuizSession{}, false, fmt.Errorf("get session: %w", err)
	}
	var session domain.QuizSession
	if err := json.Unmarshal(data, &session); err != nil {
		return domain.QuizSession{}, false, fmt.Errorf("decode session: %w", err)
	}
	return session, true, nil
}

func (s *SessionStore) Update(ctx context.Context, session domain.QuizSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	err = s.client.SetArgs(ctx, sessionKey(session.ID), data, redis.SetArgs{Mode: "XX", KeepTTL: true}).Err()
	if errors.Is(err, redis.Nil) {
		return domain.ErrSessionNotFound
	}
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	return nil
}

func (s *SessionStore) Exists(ctx context.Context, sessionID string) (bool, error) {
	n, err := s.client.Exists(ctx, sessionKey(sessionID)).Result()
	if err != nil {
		return false, fmt.Errorf("session exists: %w", err)
	}
	return n > 0, nil
}

func (s *SessionStore) GetParticipant(ctx context.Context, sessionID, participantID string) (domain.Participant, bool, error) {
	data, err := s.client.HGet(ctx, participantsKey(sessionID), participantID).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Participant{}, false, nil
	}
	if err != nil {
		return domain.Participant{}, false, fmt.Errorf("get participant: %w", err)
	}
	var p domain.Participant
	if err := json.Unmarshal(data, &p); err != nil {
		return domain.Participant{}, false, fmt.Errorf("decode participant: %w", err)
	}
	return p, true, nil
}

// SaveParticipant writes the participant and aligns the hash expiry with the session's.
func (s *SessionStore) SaveParticipant(ctx context.Context, sessionID string, participant domain.Participant) error {
	ttl, err := s.client.PTTL(ctx, sessionKey(sessionID)).Result()
	if err != nil {
		return fmt.Errorf("session ttl: %w", err)
	}
	if ttl == -2 {
		return domain.ErrSessionNotFound
	}
	data, err := json.Marshal(participant)
	if err != nil {
		return fmt.Errorf("encode participant: %w", err)
	}
	key := participantsKey(sessionID)
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, participant.ID, data)
		if ttl > 0 {
			pipe.PExpire(ctx, key, ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save participant: %w", err)
	}
	return nil
}

func (s *SessionStore) ListParticipants(ctx context.Context, sessionID string) ([]domain.Participant, error) {
	raw, err := s.client.HGetAll(ctx, participantsKey(sessionID)).Result()
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	out := make([]domain.Participant, 0, len(raw))
	for _, v := range raw {
		var p domain.Participant
		if err := json.Unmarshal([]byte(v), &p); err != nil {
			return nil, fmt.Errorf("decode participant: %w", err)
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].JoinedAt.Equal(out[j].JoinedAt) {
			return out[i].JoinedAt.Before(out[j].JoinedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *SessionStore) CountParticipants(ctx context.Context, sessionID string) (int, error) {
	n, err := s.client.HLen(ctx, participantsKey(sessionID)).Result()
	if err != nil {
		return 0, fmt.Errorf("count participants: %w", err)
	}
	return int(n), nil
}

func sessionKey(sessionID string) string {
	return "quiz:session:" + sessionID
}

func participantsKey(sessionID string) string {
	return sessionKey(sessionID) + ":participants"
}
