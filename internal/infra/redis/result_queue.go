package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Josephvarghes/Edu-Stack/internal/domain"
	"github.com/redis/go-redis/v9"
)

// DefaultResultQueue is the list finalized results are pushed to for certificate issuance.
const DefaultResultQueue = "quiz_results_queue"

// ResultQueue publishes finalized quiz results onto a Redis list.
type ResultQueue struct {
	client *redis.Client
	queue  string
}

func NewResultQueue(client *redis.Client, queue string) *ResultQueue {
	if queue == "" {
		queue = DefaultResultQueue
	}
	return &ResultQueue{client: client, queue: queue}
}

func (q *ResultQueue) PublishResult(ctx context.Context, result domain.QuizResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	if err := q.client.RPush(ctx, q.queue, data).Err(); err != nil {
		return fmt.Errorf("push result to %s: %w", q.queue, err)
	}
	return nil
}

// Pop waits up to timeout for the oldest queued result. ok is false on timeout.
func (q *ResultQueue) Pop(ctx context.Context, timeout time.Duration) (result domain.QuizResult, ok bool, err error) {
	vals, err := q.client.BLPop(ctx, timeout, q.queue).Result()
	if isMiss(err) {
		return domain.QuizResult{}, false, nil
	}
	if err != nil {
		return domain.QuizResult{}, false, err
	}
	// vals is [queue, payload]
	if err := json.Unmarshal([]byte(vals[1]), &result); err != nil {
		return domain.QuizResult{}, false, fmt.Errorf("decode result: %w", err)
	}
	return result, true, nil
}
