// Package queue provides the durable Redis-backed processing queue that
// decouples webhook ingress latency from pipeline processing latency.
package queue

import (
	"encoding/json"
	"errors"
	"time"
)

// ErrJobNotFound is returned when a job ID has no stored payload, usually
// because its retention period elapsed.
var ErrJobNotFound = errors.New("queue: job not found")

// ProcessingJob is the unit of work dispatched to the pipeline worker.
// The transcript travels with the job; title and ownership are re-derived
// from the meeting record at processing time.
type ProcessingJob struct {
	MeetingID    string          `json:"meetingId"`
	BotID        string          `json:"botId"`
	Transcript   json.RawMessage `json:"transcript,omitempty"`
	MeetingTitle string          `json:"meetingTitle,omitempty"`
}

// QueuedJob wraps a ProcessingJob with queue bookkeeping.
type QueuedJob struct {
	ID           string        `json:"id"`
	Job          ProcessingJob `json:"job"`
	RetryCount   int           `json:"retry_count"`
	EnqueuedAt   time.Time     `json:"enqueued_at"`
	VisibleAfter time.Time     `json:"visible_after,omitempty"`
}

// Config configures queue behavior.
type Config struct {
	Name              string
	VisibilityTimeout time.Duration
	MaxRetries        int
	RetentionPeriod   time.Duration
}

// DefaultConfig returns the canonical processing queue configuration:
// three automatic retries, five minute visibility window.
func DefaultConfig(name string) Config {
	return Config{
		Name:              name,
		VisibilityTimeout: 5 * time.Minute,
		MaxRetries:        3,
		RetentionPeriod:   24 * time.Hour,
	}
}
