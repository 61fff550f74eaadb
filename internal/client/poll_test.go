package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/teddynote/parser-client/constants"
	"github.com/teddynote/parser-client/internal/common"
)

// statusServer serves /jobs/{id} with one scripted status per request, then
// repeats the last one. It counts requests.
func statusServer(t *testing.T, jobID string, statuses ...string) (*httptest.Server, *atomic.Int64) {
	t.Helper()
	count := &atomic.Int64{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/jobs/"+jobID {
			t.Errorf("path = %q, want /jobs/%s", r.URL.Path, jobID)
		}
		n := count.Add(1)
		idx := int(n) - 1
		if idx >= len(statuses) {
			idx = len(statuses) - 1
		}
		status := statuses[idx]
		msg := ""
		if status == "failed" {
			msg = `,"message":"page 3 unreadable"`
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"job_id":%q,"status":%q%s}`, jobID, status, msg)
	}))
	t.Cleanup(srv.Close)
	return srv, count
}

func TestJobStatus(t *testing.T) {
	srv, _ := statusServer(t, "abc123", "processing")
	job, err := newTestClient(t, srv.URL).JobStatus(context.Background(), "abc123")
	if err != nil {
		t.Fatalf("JobStatus: %v", err)
	}
	if job.ID != "abc123" || job.Status != "processing" {
		t.Errorf("job = %+v", job)
	}
	if job.State() != constants.JobStatusProcessing {
		t.Errorf("State = %q", job.State())
	}
}

func TestJobStatus_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"no such job"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL).JobStatus(context.Background(), "ghost")
	if !errors.Is(err, common.ErrService) {
		t.Errorf("got %v, want ErrService", err)
	}
	var apiErr *common.APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusNotFound {
		t.Errorf("want APIError with 404, got %v", err)
	}
}

func TestWaitForCompletion_TransitionsToCompleted(t *testing.T) {
	srv, count := statusServer(t, "abc123", "queued", "processing", "completed")

	job, err := newTestClient(t, srv.URL).WaitForCompletion(
		context.Background(), "abc123", 10*time.Millisecond, time.Second)
	if err != nil {
		t.Fatalf("WaitForCompletion: %v", err)
	}
	if job.State() != constants.JobStatusCompleted {
		t.Errorf("final state = %q, want completed", job.State())
	}
	if got := count.Load(); got != 3 {
		t.Errorf("requests = %d, want 3", got)
	}
}

func TestWaitForCompletion_UnknownStatusKeepsPolling(t *testing.T) {
	srv, _ := statusServer(t, "abc123", "queued", "ocr_stage", "llm_stage", "completed")

	job, err := newTestClient(t, srv.URL).WaitForCompletion(
		context.Background(), "abc123", 5*time.Millisecond, time.Second)
	if err != nil {
		t.Fatalf("unknown statuses must not abort polling: %v", err)
	}
	if job.State() != constants.JobStatusCompleted {
		t.Errorf("final state = %q, want completed", job.State())
	}
}

func TestWaitForCompletion_Timeout(t *testing.T) {
	srv, count := statusServer(t, "abc123", "processing")

	interval := 20 * time.Millisecond
	maxWait := 100 * time.Millisecond
	_, err := newTestClient(t, srv.URL).WaitForCompletion(
		context.Background(), "abc123", interval, maxWait)
	if !errors.Is(err, common.ErrTimeout) {
		t.Fatalf("got %v, want ErrTimeout", err)
	}

	// At most ceil(maxWait/interval) requests, and none after the timeout.
	requests := count.Load()
	if requests > int64(maxWait/interval) {
		t.Errorf("requests = %d, want <= %d", requests, maxWait/interval)
	}
	time.Sleep(3 * interval)
	if after := count.Load(); after != requests {
		t.Errorf("requests kept flowing after timeout: %d -> %d", requests, after)
	}
}

func TestWaitForCompletion_JobFailedCarriesMessage(t *testing.T) {
	srv, _ := statusServer(t, "abc123", "processing", "failed")

	job, err := newTestClient(t, srv.URL).WaitForCompletion(
		context.Background(), "abc123", 5*time.Millisecond, time.Second)
	if !errors.Is(err, common.ErrJobFailed) {
		t.Fatalf("got %v, want ErrJobFailed", err)
	}
	if !strings.Contains(err.Error(), "page 3 unreadable") {
		t.Errorf("error should carry the server message, got: %v", err)
	}
	if job == nil || job.State() != constants.JobStatusFailed {
		t.Errorf("final snapshot should still be returned, got %+v", job)
	}
}

func TestWaitForCompletion_ContextCancelAbortsSleep(t *testing.T) {
	srv, _ := statusServer(t, "abc123", "processing")

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := newTestClient(t, srv.URL).WaitForCompletion(ctx, "abc123", 10*time.Second, time.Hour)
	if err == nil || !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v, want context.Canceled", err)
	}
	if time.Since(start) > time.Second {
		t.Error("cancellation should abort the sleep immediately")
	}
}

func TestWaitForCompletion_BadArguments(t *testing.T) {
	c := newTestClient(t, "http://irrelevant")
	if _, err := c.WaitForCompletion(context.Background(), "j", 0, time.Second); !errors.Is(err, common.ErrInvalidInput) {
		t.Errorf("zero interval: got %v, want ErrInvalidInput", err)
	}
	if _, err := c.WaitForCompletion(context.Background(), "j", time.Second, time.Millisecond); !errors.Is(err, common.ErrInvalidInput) {
		t.Errorf("max wait < interval: got %v, want ErrInvalidInput", err)
	}
}
