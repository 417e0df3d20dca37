package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/haidang-dev/meeting-insight/internal/infrastructure/queue"
	"github.com/haidang-dev/meeting-insight/pkg/ai"
	"github.com/haidang-dev/meeting-insight/pkg/config"
	"github.com/haidang-dev/meeting-insight/pkg/jobcontext"
)

// QueueSignatureHeader carries the dispatch HMAC. A distinct secret from the
// webhook ingress: the queue is a different trust boundary.
const QueueSignatureHeader = "X-Queue-Signature"

// staleRecoveryInterval is how often the dispatcher sweeps the processing
// set for jobs whose visibility timeout expired.
const staleRecoveryInterval = time.Minute

// Dispatcher consumes the durable queue and delivers each job to the worker
// endpoint as a signed HTTP POST. Delivery failures are handed back to the
// queue, which retries up to its bounded budget.
type Dispatcher struct {
	queue        *queue.RedisQueue
	workerURL    string
	secret       string
	concurrency  int
	pollInterval time.Duration
	client       *http.Client
	logger       *zap.Logger

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewDispatcher creates a dispatcher for the given queue.
func NewDispatcher(q *queue.RedisQueue, cfg *config.QueueConfig, logger *zap.Logger) *Dispatcher {
	concurrency := cfg.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	return &Dispatcher{
		queue:        q,
		workerURL:    cfg.WorkerURL,
		secret:       cfg.DispatchSecret,
		concurrency:  concurrency,
		pollInterval: pollInterval,
		client:       &http.Client{Timeout: 5 * time.Minute},
		logger:       logger,
		stopChan:     make(chan struct{}),
	}
}

// Start launches the dispatch workers and the stale-job recovery loop.
func (d *Dispatcher) Start() {
	for i := 0; i < d.concurrency; i++ {
		d.wg.Add(1)
		go d.worker(i)
	}
	d.wg.Add(1)
	go d.recoveryLoop()

	if d.logger != nil {
		d.logger.Info("👷 Dispatcher started",
			zap.Int("workers", d.concurrency),
			zap.String("queue", d.queue.Name()))
	}
}

// Stop signals all workers and waits for them to drain.
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() { close(d.stopChan) })
	d.wg.Wait()
	if d.logger != nil {
		d.logger.Info("🛑 Dispatcher stopped", zap.String("queue", d.queue.Name()))
	}
}

func (d *Dispatcher) worker(workerID int) {
	defer d.wg.Done()

	ticker := time.NewTicker(d.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-d.stopChan:
			return
		case <-ticker.C:
			d.dispatchOne(workerID)
		}
	}
}

func (d *Dispatcher) dispatchOne(workerID int) {
	dequeueCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	qj, err := d.queue.Dequeue(dequeueCtx)
	cancel()
	if err != nil {
		if d.logger != nil {
			d.logger.Error("❌ Dequeue failed", zap.Error(err))
		}
		return
	}
	if qj == nil {
		return
	}

	ctx, cancel := jobcontext.JobBegin(context.Background(), qj.ID, workerID, qj.RetryCount, 5*time.Minute)
	defer cancel()

	err = d.deliver(ctx, qj)
	if err == nil {
		if ackErr := d.queue.Ack(ctx, qj.ID); ackErr != nil && d.logger != nil {
			d.logger.Error("❌ Failed to ack job", zap.String("job_id", qj.ID), zap.Error(ackErr))
		}
		if d.logger != nil {
			d.logger.Info("✅ Job delivered",
				zap.String("job_id", qj.ID),
				zap.String("meeting_id", qj.Job.MeetingID),
				zap.Int("worker_id", workerID))
		}
		return
	}

	if jobcontext.IsNonRetryableError(err) {
		if d.logger != nil {
			d.logger.Error("❌ Job rejected by worker, moving to dead letter",
				zap.String("job_id", qj.ID),
				zap.Error(err))
		}
		if dlqErr := d.queue.MoveToDeadLetter(ctx, qj.ID, err.Error()); dlqErr != nil && d.logger != nil {
			d.logger.Error("❌ Failed to dead-letter job", zap.String("job_id", qj.ID), zap.Error(dlqErr))
		}
		return
	}

	if d.logger != nil {
		d.logger.Warn("⚠️ Job delivery failed, will retry",
			zap.String("job_id", qj.ID),
			zap.Int("retry_count", qj.RetryCount),
			zap.Error(err))
	}
	if nackErr := d.queue.Nack(ctx, qj.ID); nackErr != nil && d.logger != nil {
		d.logger.Error("❌ Failed to nack job", zap.String("job_id", qj.ID), zap.Error(nackErr))
	}
}

// deliver POSTs the signed job body to the worker endpoint. Transient
// transport errors get a short in-attempt backoff; the queue's retry budget
// covers everything beyond that.
func (d *Dispatcher) deliver(ctx context.Context, qj *queue.QueuedJob) error {
	body, err := json.Marshal(qj.Job)
	if err != nil {
		return fmt.Errorf("failed to marshal job body: %w", err)
	}
	signature := ai.SignHMAC(d.secret, body)

	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, "POST", d.workerURL, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(QueueSignatureHeader, signature)

		resp, err := d.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		io.Copy(io.Discard, resp.Body)

		if resp.StatusCode >= 500 {
			return fmt.Errorf("worker returned status %d", resp.StatusCode)
		}
		if resp.StatusCode >= 400 {
			return backoff.Permanent(fmt.Errorf("worker returned status %d", resp.StatusCode))
		}
		return nil
	}

	return backoff.Retry(operation, backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 2), ctx))
}

func (d *Dispatcher) recoveryLoop() {
	defer d.wg.Done()

	ticker := time.NewTicker(staleRecoveryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-d.stopChan:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			if err := d.queue.RecoverStaleJobs(ctx); err != nil && d.logger != nil {
				d.logger.Error("❌ Stale job recovery failed", zap.Error(err))
			}
			cancel()
		}
	}
}
