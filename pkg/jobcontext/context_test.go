package jobcontext

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestJobBegin_CarriesMetadata(t *testing.T) {
	ctx, cancel := JobBegin(context.Background(), "job-1", 3, 2, time.Minute)
	defer cancel()

	jobID, ok := GetJobID(ctx)
	if !ok || jobID != "job-1" {
		t.Fatalf("unexpected job id: %q ok=%v", jobID, ok)
	}
	if GetWorkerID(ctx) != 3 {
		t.Fatalf("unexpected worker id: %d", GetWorkerID(ctx))
	}
	if GetRetryAttempt(ctx) != 2 {
		t.Fatalf("unexpected retry attempt: %d", GetRetryAttempt(ctx))
	}

	meta := GetJobMetadata(ctx)
	if meta.JobID != "job-1" || meta.StartTime.IsZero() {
		t.Fatalf("incomplete metadata: %+v", meta)
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		t.Fatal("job context must carry a deadline")
	}
}

func TestJobBegin_DefaultTimeout(t *testing.T) {
	ctx, cancel := JobBegin(context.Background(), "job-1", 0, 0, 0)
	defer cancel()
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		t.Fatal("zero timeout must fall back to the default deadline")
	}
}

func TestMissingMetadataDefaults(t *testing.T) {
	ctx := context.Background()
	if _, ok := GetJobID(ctx); ok {
		t.Fatal("bare context must not report a job id")
	}
	if GetWorkerID(ctx) != -1 {
		t.Fatalf("expected -1 got %d", GetWorkerID(ctx))
	}
	if GetRetryAttempt(ctx) != 0 {
		t.Fatalf("expected 0 got %d", GetRetryAttempt(ctx))
	}
}

func TestErrorClassification(t *testing.T) {
	retryable := []error{
		errors.New("connection refused"),
		errors.New("worker returned status 503"),
		errors.New("API rate limit exceeded"),
		errors.New("context deadline exceeded"),
	}
	for _, err := range retryable {
		if !IsRetryableError(err) {
			t.Fatalf("expected retryable: %v", err)
		}
	}

	terminal := []error{
		errors.New("worker returned status 400"),
		errors.New("worker returned status 404"),
		errors.New("validation failed: missing meetingId"),
		errors.New("malformed payload"),
	}
	for _, err := range terminal {
		if !IsNonRetryableError(err) {
			t.Fatalf("expected terminal: %v", err)
		}
	}

	if IsRetryableError(nil) || IsNonRetryableError(nil) {
		t.Fatal("nil error must classify as neither")
	}
}
