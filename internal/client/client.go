// Package client implements the HTTP client for the remote document-parsing
// service: PDF submission, job status polling, result download and job
// listing. All calls are blocking; the only state shared between calls is
// the connection configuration fixed at construction time.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/teddynote/parser-client/constants"
	"github.com/teddynote/parser-client/internal/common"
)

// Job is a transient snapshot of a server-side parse job. Status holds the
// raw string the server reported; use State for branching.
// CreatedAt stays a string because the service does not commit to one
// timestamp format.
type Job struct {
	ID        string `json:"job_id"`
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
	Progress  int    `json:"progress,omitempty"`
	Filename  string `json:"filename,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

// State normalizes the raw server status. Unknown statuses map to pending.
func (j *Job) State() constants.JobStatus {
	return constants.Normalize(j.Status)
}

// HealthStatus is the liveness report of the parser service.
type HealthStatus struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp,omitempty"`
	Detail    string `json:"detail,omitempty"`
}

// Client talks to one parser service. Safe to reuse across calls; construct
// once and treat as immutable.
type Client struct {
	baseURL    string
	healthURL  string
	parseURL   string
	jobsURL    string
	upstageKey string
	openaiKey  string
	defaults   common.ParseConfig
	httpClient *http.Client
	logger     *slog.Logger
}

// New builds a Client from cfg. A nil cfg loads configuration from the
// environment. Missing API keys are logged as warnings here and rejected at
// submission time.
func New(cfg *common.Config, logger *slog.Logger) *Client {
	if cfg == nil {
		cfg = common.LoadConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.API.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	base := strings.TrimRight(cfg.API.BaseURL, "/")
	c := &Client{
		baseURL:    base,
		healthURL:  base + "/health",
		parseURL:   base + "/parse",
		jobsURL:    base + "/jobs",
		upstageKey: cfg.API.UpstageAPIKey,
		openaiKey:  cfg.API.OpenAIAPIKey,
		defaults:   cfg.Parse,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}

	if c.upstageKey == "" {
		logger.Warn("client.init.missing_key", "key", "UPSTAGE_API_KEY")
	}
	if c.openaiKey == "" {
		logger.Warn("client.init.missing_key", "key", "OPENAI_API_KEY")
	}
	return c
}

// BaseURL returns the normalized service URL the client was built with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Health queries the liveness endpoint. A reachable server never produces an
// error regardless of the health it reports; only network failures wrap
// ErrConnection.
func (c *Client) Health(ctx context.Context) (*HealthStatus, error) {
	reqID := uuid.New().String()
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.healthURL, nil)
	if err != nil {
		return nil, common.WrapError(err, "build health request")
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("client.health.unreachable", "req_id", reqID, "error", err)
		return nil, fmt.Errorf("health check %s: %v: %w", c.healthURL, err, common.ErrConnection)
	}
	defer closeBody(resp.Body, c.logger, reqID)

	raw, _ := io.ReadAll(resp.Body)

	hs := &HealthStatus{}
	if err := json.Unmarshal(raw, hs); err != nil || hs.Status == "" {
		// Body is not the expected shape; report reachability from the code.
		if resp.StatusCode/100 == 2 {
			hs.Status = "ok"
		} else {
			hs.Status = "degraded"
		}
		hs.Detail = strings.TrimSpace(string(raw))
	}

	c.logger.Info("client.health.ok",
		"req_id", reqID,
		"status", hs.Status,
		"http_status", resp.StatusCode,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return hs, nil
}

// getJSON performs a GET and decodes a 2xx JSON body into out. Network
// failures wrap ErrConnection; non-2xx responses wrap kind with the status
// code and body attached.
func (c *Client) getJSON(ctx context.Context, url string, out any, kind error, op string) error {
	reqID := uuid.New().String()
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return common.WrapError(err, "build request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("client.request.send_error", "req_id", reqID, "op", op, "url", url, "error", err)
		return fmt.Errorf("%s: %v: %w", op, err, common.ErrConnection)
	}
	defer closeBody(resp.Body, c.logger, reqID)

	raw, _ := io.ReadAll(resp.Body)

	c.logger.Debug("client.request.response",
		"req_id", reqID,
		"op", op,
		"url", url,
		"status", resp.StatusCode,
		"bytes", len(raw),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode/100 != 2 {
		return common.NewAPIError(kind, resp.StatusCode, string(raw), op)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%s: decode response: %v: %w", op, err, kind)
	}
	return nil
}

func closeBody(body io.ReadCloser, logger *slog.Logger, reqID string) {
	if err := body.Close(); err != nil {
		logger.Warn("client.response_body_close_error", "req_id", reqID, "error", err)
	}
}
