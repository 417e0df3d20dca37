package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Redis key prefixes
const (
	keyPrefixQueue      = "queue:"      // Pending jobs (sorted set, FIFO by enqueue time)
	keyPrefixProcessing = "processing:" // Jobs being processed
	keyPrefixJob        = "job:"        // Job payloads
	keyPrefixDLQ        = "dlq:"        // Dead letter queue
)

// RedisQueue is a durable at-least-once queue on Redis sorted sets. Jobs are
// popped into a processing set with a visibility timeout; unacked jobs are
// recovered and retried up to MaxRetries before landing in the dead letter
// set.
type RedisQueue struct {
	client *redis.Client
	name   string
	config Config
}

// NewRedisQueue creates a Redis-backed processing queue.
func NewRedisQueue(client *redis.Client, config Config) *RedisQueue {
	if config.MaxRetries <= 0 {
		config.MaxRetries = 3
	}
	if config.VisibilityTimeout <= 0 {
		config.VisibilityTimeout = 5 * time.Minute
	}
	if config.RetentionPeriod <= 0 {
		config.RetentionPeriod = 24 * time.Hour
	}
	return &RedisQueue{
		client: client,
		name:   config.Name,
		config: config,
	}
}

// Name returns the queue name.
func (q *RedisQueue) Name() string {
	return q.name
}

// Enqueue adds a job to the queue and returns its queue ID.
func (q *RedisQueue) Enqueue(ctx context.Context, job ProcessingJob) (string, error) {
	jobID := uuid.New().String()

	qj := &QueuedJob{
		ID:         jobID,
		Job:        job,
		RetryCount: 0,
		EnqueuedAt: time.Now(),
	}
	data, err := json.Marshal(qj)
	if err != nil {
		return "", fmt.Errorf("failed to marshal job: %w", err)
	}

	// Store payload and add to the pending set in one transaction.
	pipe := q.client.TxPipeline()
	pipe.Set(ctx, q.jobKey(jobID), data, q.config.RetentionPeriod)
	pipe.ZAdd(ctx, keyPrefixQueue+q.name, redis.Z{
		Score:  float64(time.Now().UnixNano()),
		Member: jobID,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("failed to enqueue job: %w", err)
	}

	return jobID, nil
}

// Dequeue pops the oldest visible job, or returns (nil, nil) when the queue
// is empty. The job is moved into the processing set with a visibility
// timeout; callers must Ack or Nack it.
func (q *RedisQueue) Dequeue(ctx context.Context) (*QueuedJob, error) {
	queueKey := keyPrefixQueue + q.name
	now := float64(time.Now().UnixNano())

	// Only jobs whose delayed-visibility score has passed are eligible.
	ids, err := q.client.ZRangeByScore(ctx, queueKey, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   fmt.Sprintf("%f", now),
		Count: 1,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read queue: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	jobID := ids[0]

	// Claim atomically: a competing worker that removed it first wins.
	removed, err := q.client.ZRem(ctx, queueKey, jobID).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to claim job: %w", err)
	}
	if removed == 0 {
		return nil, nil
	}

	data, err := q.client.Get(ctx, q.jobKey(jobID)).Bytes()
	if err == redis.Nil {
		// Payload expired, nothing to process.
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job payload: %w", err)
	}

	var qj QueuedJob
	if err := json.Unmarshal(data, &qj); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job: %w", err)
	}

	qj.VisibleAfter = time.Now().Add(q.config.VisibilityTimeout)
	updated, _ := json.Marshal(&qj)

	pipe := q.client.TxPipeline()
	pipe.Set(ctx, q.jobKey(jobID), updated, q.config.RetentionPeriod)
	pipe.ZAdd(ctx, keyPrefixProcessing+q.name, redis.Z{
		Score:  float64(qj.VisibleAfter.UnixNano()),
		Member: jobID,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to move job to processing: %w", err)
	}

	return &qj, nil
}

// Ack acknowledges successful processing of a job.
func (q *RedisQueue) Ack(ctx context.Context, jobID string) error {
	pipe := q.client.TxPipeline()
	pipe.ZRem(ctx, keyPrefixProcessing+q.name, jobID)
	pipe.Del(ctx, q.jobKey(jobID))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to ack job: %w", err)
	}
	return nil
}

// Nack reports processing failure. The job is re-enqueued with exponential
// backoff until MaxRetries, then moved to the dead letter set.
func (q *RedisQueue) Nack(ctx context.Context, jobID string) error {
	data, err := q.client.Get(ctx, q.jobKey(jobID)).Bytes()
	if err == redis.Nil {
		return ErrJobNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to get job: %w", err)
	}

	var qj QueuedJob
	if err := json.Unmarshal(data, &qj); err != nil {
		return fmt.Errorf("failed to unmarshal job: %w", err)
	}

	qj.RetryCount++
	if qj.RetryCount >= q.config.MaxRetries {
		return q.MoveToDeadLetter(ctx, jobID, "max retries exceeded")
	}

	qj.VisibleAfter = time.Now().Add(retryBackoff(qj.RetryCount))
	updated, _ := json.Marshal(&qj)

	pipe := q.client.TxPipeline()
	pipe.ZRem(ctx, keyPrefixProcessing+q.name, jobID)
	pipe.Set(ctx, q.jobKey(jobID), updated, q.config.RetentionPeriod)
	pipe.ZAdd(ctx, keyPrefixQueue+q.name, redis.Z{
		Score:  float64(qj.VisibleAfter.UnixNano()),
		Member: jobID,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to nack job: %w", err)
	}
	return nil
}

// MoveToDeadLetter parks a job in the dead letter set with a reason.
func (q *RedisQueue) MoveToDeadLetter(ctx context.Context, jobID string, reason string) error {
	data, err := q.client.Get(ctx, q.jobKey(jobID)).Bytes()
	if err == redis.Nil {
		return ErrJobNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to get job: %w", err)
	}

	entry := map[string]interface{}{
		"job":        string(data),
		"reason":     reason,
		"moved_at":   time.Now().Format(time.RFC3339),
		"queue_name": q.name,
	}
	entryData, _ := json.Marshal(entry)

	pipe := q.client.TxPipeline()
	pipe.ZRem(ctx, keyPrefixProcessing+q.name, jobID)
	pipe.Del(ctx, q.jobKey(jobID))
	pipe.ZAdd(ctx, keyPrefixDLQ+q.name, redis.Z{
		Score:  float64(time.Now().UnixNano()),
		Member: string(entryData),
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to move job to DLQ: %w", err)
	}
	return nil
}

// Depth returns the number of pending jobs.
func (q *RedisQueue) Depth(ctx context.Context) (int64, error) {
	return q.client.ZCard(ctx, keyPrefixQueue+q.name).Result()
}

// RecoverStaleJobs re-enqueues jobs whose visibility timeout expired without
// an Ack. Called periodically by the dispatcher.
func (q *RedisQueue) RecoverStaleJobs(ctx context.Context) error {
	processingKey := keyPrefixProcessing + q.name
	now := float64(time.Now().UnixNano())

	staleIDs, err := q.client.ZRangeByScore(ctx, processingKey, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   fmt.Sprintf("%f", now),
		Count: 100,
	}).Result()
	if err != nil {
		return fmt.Errorf("failed to find stale jobs: %w", err)
	}

	for _, jobID := range staleIDs {
		data, err := q.client.Get(ctx, q.jobKey(jobID)).Bytes()
		if err == redis.Nil {
			q.client.ZRem(ctx, processingKey, jobID)
			continue
		}
		if err != nil {
			continue
		}

		var qj QueuedJob
		if err := json.Unmarshal(data, &qj); err != nil {
			continue
		}

		qj.RetryCount++
		if qj.RetryCount >= q.config.MaxRetries {
			q.MoveToDeadLetter(ctx, jobID, "visibility timeout exceeded")
			continue
		}

		updated, _ := json.Marshal(&qj)
		pipe := q.client.TxPipeline()
		pipe.ZRem(ctx, processingKey, jobID)
		pipe.Set(ctx, q.jobKey(jobID), updated, q.config.RetentionPeriod)
		pipe.ZAdd(ctx, keyPrefixQueue+q.name, redis.Z{
			Score:  float64(time.Now().UnixNano()),
			Member: jobID,
		})
		pipe.Exec(ctx)
	}

	return nil
}

func (q *RedisQueue) jobKey(jobID string) string {
	return keyPrefixJob + q.name + ":" + jobID
}

// retryBackoff is the delay before a nacked job becomes visible again.
func retryBackoff(retryCount int) time.Duration {
	backoff := time.Second * (1 << uint(retryCount))
	if backoff > 5*time.Minute {
		backoff = 5 * time.Minute
	}
	return backoff
}
