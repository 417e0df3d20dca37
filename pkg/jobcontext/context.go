// Package jobcontext carries queue-job metadata through a context and
// classifies delivery errors as retryable or terminal.
package jobcontext

import (
	"context"
	"strings"
	"time"
)

type keyContext string

var (
	keyJobID        keyContext = "job_id"
	keyWorkerID     keyContext = "worker_id"
	keyRetryAttempt keyContext = "retry_attempt"
	keyJobStartTime keyContext = "job_start_time"
)

// JobMetadata holds metadata for one job delivery attempt.
type JobMetadata struct {
	JobID        string
	WorkerID     int
	RetryAttempt int
	StartTime    time.Time
}

// JobBegin derives a job-scoped context with metadata and a timeout so a
// stuck delivery can never hang a dispatcher worker forever.
func JobBegin(parentCtx context.Context, jobID string, workerID, retryAttempt int, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	ctx, cancel := context.WithTimeout(parentCtx, timeout)

	ctx = context.WithValue(ctx, keyJobID, jobID)
	ctx = context.WithValue(ctx, keyWorkerID, workerID)
	ctx = context.WithValue(ctx, keyRetryAttempt, retryAttempt)
	ctx = context.WithValue(ctx, keyJobStartTime, time.Now())

	return ctx, cancel
}

// GetJobID extracts the job ID from context.
func GetJobID(ctx context.Context) (string, bool) {
	jobID, ok := ctx.Value(keyJobID).(string)
	return jobID, ok
}

// GetWorkerID extracts the worker ID from context.
func GetWorkerID(ctx context.Context) int {
	workerID, ok := ctx.Value(keyWorkerID).(int)
	if !ok {
		return -1
	}
	return workerID
}

// GetRetryAttempt extracts the current retry attempt from context.
func GetRetryAttempt(ctx context.Context) int {
	attempt, ok := ctx.Value(keyRetryAttempt).(int)
	if !ok {
		return 0
	}
	return attempt
}

// GetJobMetadata extracts all job metadata from context.
func GetJobMetadata(ctx context.Context) *JobMetadata {
	jobID, _ := GetJobID(ctx)
	startTime, _ := ctx.Value(keyJobStartTime).(time.Time)
	return &JobMetadata{
		JobID:        jobID,
		WorkerID:     GetWorkerID(ctx),
		RetryAttempt: GetRetryAttempt(ctx),
		StartTime:    startTime,
	}
}

// IsRetryableError reports whether a delivery error is worth retrying:
// network trouble, timeouts, rate limits, server-side failures.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}

	errStr := strings.ToLower(err.Error())

	// Context errors (timeout, cancelled)
	if strings.Contains(errStr, "context deadline exceeded") ||
		strings.Contains(errStr, "context canceled") {
		return true
	}

	// Network errors
	if strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "network unreachable") ||
		strings.Contains(errStr, "no such host") ||
		strings.Contains(errStr, "i/o timeout") {
		return true
	}

	// API rate limiting
	if strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "too many requests") ||
		strings.Contains(errStr, "429") {
		return true
	}

	// Server errors (5xx)
	if strings.Contains(errStr, "status 5") ||
		strings.Contains(errStr, "internal server error") ||
		strings.Contains(errStr, "service unavailable") ||
		strings.Contains(errStr, "bad gateway") {
		return true
	}

	// Temporary failures
	if strings.Contains(errStr, "temporary failure") ||
		strings.Contains(errStr, "try again") {
		return true
	}

	return false
}

// IsNonRetryableError reports whether a delivery error is terminal: the
// worker rejected the job for a reason retries cannot fix.
func IsNonRetryableError(err error) bool {
	if err == nil {
		return false
	}

	errStr := strings.ToLower(err.Error())

	// Client errors (4xx except 429)
	if strings.Contains(errStr, "status 400") ||
		strings.Contains(errStr, "status 401") ||
		strings.Contains(errStr, "status 403") ||
		strings.Contains(errStr, "status 404") ||
		strings.Contains(errStr, "invalid") ||
		strings.Contains(errStr, "bad request") {
		return true
	}

	// Data validation errors
	if strings.Contains(errStr, "validation failed") ||
		strings.Contains(errStr, "malformed") ||
		strings.Contains(errStr, "parse error") {
		return true
	}

	return false
}
