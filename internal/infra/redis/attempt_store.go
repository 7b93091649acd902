package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/Josephvarghes/Edu-Stack/internal/domain"
	"github.com/redis/go-redis/v9"
)

// maxTxRetries bounds optimistic retries when a watched key changes under us.
const maxTxRetries = 100

// ErrContention is returned when a transaction kept losing its WATCH race.
var ErrContention = errors.New("redis: too much contention on attempt")

var errActiveMoved = errors.New("active attempt changed")

// AttemptStore keeps attempts in Redis so several service instances share them.
// Keys:
//
//	attempt:{id}                          JSON of the attempt
//	attempt:active:{len}:{userID}:{quizID}   id of the live attempt, absent when none
//	attempt:history:{len}:{userID}:{quizID}  list of attempt ids, newest first
//
// {len} is the byte length of userID, so ids containing ':' cannot make two pairs share a key.
//
// Every write runs under WATCH/MULTI so a read-modify-write is atomic per pair.
type AttemptStore struct {
	client *redis.Client
}

func NewAttemptStore(client *redis.Client) *AttemptStore {
	return &AttemptStore{client: client}
}

func (s *AttemptStore) Create(ctx context.Context, attempt domain.QuizAttempt) error {
	data, err := json.Marshal(attempt)
	if err != nil {
		return fmt.Errorf("encode attempt: %w", err)
	}
	activeKey := activeKey(attempt.UserID, attempt.QuizID)

	return s.watch(ctx, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, activeKey).Result()
		if err != nil {
			return err
		}
		if n > 0 {
			return domain.ErrAttemptInProgress
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, attemptKey(attempt.ID), data, 0)
			if !attempt.IsCompleted {
				pipe.Set(ctx, activeKey, attempt.ID, 0)
			}
			pipe.LPush(ctx, historyKey(attempt.UserID, attempt.QuizID), attempt.ID)
			return nil
		})
		return err
	}, activeKey)
}

func (s *AttemptStore) Get(ctx context.Context, attemptID string) (domain.QuizAttempt, error) {
	return s.load(ctx, s.client, attemptID)
}

func (s *AttemptStore) GetActive(ctx context.Context, userID, quizID string) (domain.QuizAttempt, error) {
	id, err := s.client.Get(ctx, activeKey(userID, quizID)).Result()
	if isMiss(err) {
		return domain.QuizAttempt{}, domain.ErrAttemptNotFound
	}
	if err != nil {
		return domain.QuizAttempt{}, err
	}
	attempt, err := s.load(ctx, s.client, id)
	if err != nil {
		return domain.QuizAttempt{}, err
	}
	if !belongsTo(attempt, userID, quizID) {
		return domain.QuizAttempt{}, domain.ErrAttemptNotFound
	}
	return attempt, nil
}

func (s *AttemptStore) UpdateActive(ctx context.Context, userID, quizID string, mutate func(*domain.QuizAttempt) error) (domain.QuizAttempt, error) {
	activeKey := activeKey(userID, quizID)
	var updated domain.QuizAttempt

	for i := 0; i < maxTxRetries; i++ {
		id, err := s.client.Get(ctx, activeKey).Result()
		if isMiss(err) {
			return domain.QuizAttempt{}, domain.ErrAttemptNotFound
		}
		if err != nil {
			return domain.QuizAttempt{}, err
		}

		err = s.watch(ctx, func(tx *redis.Tx) error {
			current, err := tx.Get(ctx, activeKey).Result()
			if isMiss(err) {
				return domain.ErrAttemptNotFound
			}
			if err != nil {
				return err
			}
			if current != id {
				return errActiveMoved
			}

			attempt, err := s.load(ctx, tx, id)
			if err != nil {
				return err
			}
			if !belongsTo(attempt, userID, quizID) {
				return domain.ErrAttemptNotFound
			}
			if err := mutate(&attempt); err != nil {
				return err
			}
			data, err := json.Marshal(attempt)
			if err != nil {
				return fmt.Errorf("encode attempt: %w", err)
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, attemptKey(id), data, 0)
				if attempt.IsCompleted {
					pipe.Del(ctx, activeKey)
				}
				return nil
			})
			if err != nil {
				return err
			}
			updated = attempt
			return nil
		}, activeKey, attemptKey(id))

		if errors.Is(err, errActiveMoved) {
			continue
		}
		if err != nil {
			return domain.QuizAttempt{}, err
		}
		return updated, nil
	}
	return domain.QuizAttempt{}, ErrContention
}

func (s *AttemptStore) ListByUser(ctx context.Context, userID, quizID string, limit int) ([]domain.QuizAttempt, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}
	ids, err := s.client.LRange(ctx, historyKey(userID, quizID), 0, stop).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []domain.QuizAttempt{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = attemptKey(id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	out := make([]domain.QuizAttempt, 0, len(values))
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var attempt domain.QuizAttempt
		if err := json.Unmarshal([]byte(raw), &attempt); err != nil {
			return nil, fmt.Errorf("decode attempt %s: %w", ids[i], err)
		}
		out = append(out, attempt)
	}
	return out, nil
}

// watch runs fn under WATCH on keys, retrying when the transaction is aborted.
func (s *AttemptStore) watch(ctx context.Context, fn func(*redis.Tx) error, keys ...string) error {
	for i := 0; i < maxTxRetries; i++ {
		err := s.client.Watch(ctx, fn, keys...)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return ErrContention
}

func (s *AttemptStore) load(ctx context.Context, c getter, attemptID string) (domain.QuizAttempt, error) {
	data, err := c.Get(ctx, attemptKey(attemptID)).Bytes()
	if isMiss(err) {
		return domain.QuizAttempt{}, domain.ErrAttemptNotFound
	}
	if err != nil {
		return domain.QuizAttempt{}, err
	}
	var attempt domain.QuizAttempt
	if err := json.Unmarshal(data, &attempt); err != nil {
		return domain.QuizAttempt{}, fmt.Errorf("decode attempt %s: %w", attemptID, err)
	}
	return attempt, nil
}

// getter is satisfied by both *redis.Client and *redis.Tx.
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func belongsTo(a domain.QuizAttempt, userID, quizID string) bool {
	return a.UserID == userID && a.QuizID == quizID
}

func attemptKey(id string) string {
	return "attempt:" + id
}

func activeKey(userID, quizID string) string {
	return "attempt:active:" + pairKey(userID, quizID)
}

func historyKey(userID, quizID string) string {
	return "attempt:history:" + pairKey(userID, quizID)
}

func pairKey(userID, quizID string) string {
	return strconv.Itoa(len(userID)) + ":" + userID + ":" + quizID
}
