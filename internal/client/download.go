package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/teddynote/parser-client/constants"
	"github.com/teddynote/parser-client/internal/archive"
	"github.com/teddynote/parser-client/internal/common"
)

// DownloadResult streams the result archive of a completed job to
// <destDir>/<jobID>.zip. With extract set it also unpacks the archive into
// <destDir>/<jobID>/ and returns that directory as the second path;
// otherwise the second path is empty. An existing archive is only replaced
// when overwrite is set. Partial extraction output is left in place when
// extraction fails.
func (c *Client) DownloadResult(ctx context.Context, jobID, destDir string, extract, overwrite bool) (string, string, error) {
	job, err := c.JobStatus(ctx, jobID)
	if err != nil {
		return "", "", err
	}
	switch job.State() {
	case constants.JobStatusCompleted:
	case constants.JobStatusFailed:
		if job.Message != "" {
			return "", "", fmt.Errorf("job %s: %s: %w", jobID, job.Message, common.ErrJobFailed)
		}
		return "", "", fmt.Errorf("job %s: %w", jobID, common.ErrJobFailed)
	default:
		return "", "", fmt.Errorf("job %s is not completed (status %q): %w",
			jobID, job.Status, common.ErrDownload)
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", "", fmt.Errorf("create %s: %v: %w", destDir, err, common.ErrDownload)
	}

	zipPath := filepath.Join(destDir, jobID+".zip")
	if _, err := os.Stat(zipPath); err == nil && !overwrite {
		return "", "", fmt.Errorf("%s already exists (pass overwrite to replace): %w",
			zipPath, common.ErrDownload)
	}

	if err := c.streamResult(ctx, jobID, zipPath); err != nil {
		return "", "", err
	}

	if !extract {
		return zipPath, "", nil
	}

	extractDir := filepath.Join(destDir, jobID)
	if _, err := archive.Extract(zipPath, extractDir); err != nil {
		return zipPath, "", err
	}
	c.logger.Info("client.download.extracted", "job_id", jobID, "dir", extractDir)
	return zipPath, extractDir, nil
}

// streamResult copies the archive body straight to disk so large results
// never sit in memory whole.
func (c *Client) streamResult(ctx context.Context, jobID, zipPath string) error {
	reqID := uuid.New().String()
	start := time.Now()

	url := c.jobsURL + "/" + jobID + "/result"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return common.WrapError(err, "build download request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("client.download.send_error", "req_id", reqID, "job_id", jobID, "error", err)
		return fmt.Errorf("download result for %s: %v: %w", jobID, err, common.ErrConnection)
	}
	defer closeBody(resp.Body, c.logger, reqID)

	if resp.StatusCode/100 != 2 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 8<<10))
		return common.NewAPIError(common.ErrDownload, resp.StatusCode, string(raw), "download result")
	}

	out, err := os.Create(zipPath)
	if err != nil {
		return fmt.Errorf("create %s: %v: %w", zipPath, err, common.ErrDownload)
	}
	written, copyErr := io.Copy(out, resp.Body)
	if cerr := out.Close(); copyErr == nil {
		copyErr = cerr
	}
	if copyErr != nil {
		return fmt.Errorf("write %s after %d bytes: %v: %w", zipPath, written, copyErr, common.ErrDownload)
	}

	c.logger.Info("client.download.ok",
		"req_id", reqID,
		"job_id", jobID,
		"path", zipPath,
		"bytes", written,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return nil
}
