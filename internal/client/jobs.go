package client

import (
	"context"

	"github.com/teddynote/parser-client/internal/common"
)

// ListJobs returns every job the service knows about, in the order the
// server returned them. Non-2xx responses wrap ErrService.
func (c *Client) ListJobs(ctx context.Context) ([]Job, error) {
	var jobs []Job
	if err := c.getJSON(ctx, c.jobsURL, &jobs, common.ErrService, "list jobs"); err != nil {
		return nil, err
	}
	c.logger.Info("client.jobs.listed", "count", len(jobs))
	return jobs, nil
}
