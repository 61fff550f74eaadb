package client

import (
	"context"
	"fmt"
	"time"

	"github.com/teddynote/parser-client/constants"
	"github.com/teddynote/parser-client/internal/common"
)

// JobStatus fetches the current snapshot of a job. Non-2xx responses wrap
// ErrService with the status code and body attached.
func (c *Client) JobStatus(ctx context.Context, jobID string) (*Job, error) {
	if jobID == "" {
		return nil, fmt.Errorf("job id must not be empty: %w", common.ErrInvalidInput)
	}
	job := &Job{}
	if err := c.getJSON(ctx, c.jobsURL+"/"+jobID, job, common.ErrService, "job status"); err != nil {
		return nil, err
	}
	if job.ID == "" {
		job.ID = jobID
	}
	return job, nil
}

// WaitForCompletion polls the job status every interval until the job
// reaches a terminal state or maxWait elapses. At most ceil(maxWait/interval)
// requests are issued. Returns the final snapshot on completion; a failed
// job wraps ErrJobFailed carrying the server-reported message; exceeding the
// budget wraps ErrTimeout. Cancelling ctx aborts the wait between polls.
func (c *Client) WaitForCompletion(ctx context.Context, jobID string, interval, maxWait time.Duration) (*Job, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("poll interval must be > 0: %w", common.ErrInvalidInput)
	}
	if maxWait < interval {
		return nil, fmt.Errorf("max wait must be >= interval: %w", common.ErrInvalidInput)
	}

	c.logger.Info("client.poll.start",
		"job_id", jobID,
		"interval", interval.String(),
		"max_wait", maxWait.String(),
	)

	start := time.Now()
	attempt := 0
	for {
		attempt++
		job, err := c.JobStatus(ctx, jobID)
		if err != nil {
			return nil, err
		}

		switch job.State() {
		case constants.JobStatusCompleted:
			c.logger.Info("client.poll.completed",
				"job_id", jobID,
				"attempts", attempt,
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
			return job, nil
		case constants.JobStatusFailed:
			c.logger.Error("client.poll.job_failed",
				"job_id", jobID, "message", job.Message, "attempts", attempt)
			if job.Message != "" {
				return job, fmt.Errorf("job %s: %s: %w", jobID, job.Message, common.ErrJobFailed)
			}
			return job, fmt.Errorf("job %s: %w", jobID, common.ErrJobFailed)
		}

		c.logger.Debug("client.poll.tick",
			"job_id", jobID,
			"attempt", attempt,
			"status", job.Status,
			"normalized", string(job.State()),
		)

		if time.Since(start)+interval > maxWait {
			c.logger.Error("client.poll.timeout",
				"job_id", jobID, "attempts", attempt, "max_wait", maxWait.String())
			return nil, fmt.Errorf("job %s still %s after %s: %w",
				jobID, job.Status, maxWait, common.ErrTimeout)
		}

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, common.WrapError(ctx.Err(), "wait for job "+jobID)
		case <-timer.C:
		}
	}
}
