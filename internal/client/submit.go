package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/teddynote/parser-client/internal/common"
)

// ParseOptions overrides the client's default parsing options for a single
// submission. Nil pointer fields fall back to the defaults.
type ParseOptions struct {
	Language     string
	IncludeImage *bool
	BatchSize    int
	TestPage     *int
}

// SubmitPDF uploads the PDF at pdfPath for parsing and returns the accepted
// job. opts may be nil. Errors wrap ErrSubmission when the file is missing
// or unreadable, the API keys are absent, the server rejects the upload, or
// the response carries no job id.
func (c *Client) SubmitPDF(ctx context.Context, pdfPath string, opts *ParseOptions) (*Job, error) {
	reqID := uuid.New().String()
	start := time.Now()

	info, err := os.Stat(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %v: %w", pdfPath, err, common.ErrSubmission)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory: %w", pdfPath, common.ErrSubmission)
	}
	if c.upstageKey == "" || c.openaiKey == "" {
		return nil, fmt.Errorf("UPSTAGE_API_KEY and OPENAI_API_KEY are required: %w", common.ErrSubmission)
	}

	lang, img, batch, testPage := c.resolveOptions(opts)

	f, err := os.Open(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %v: %w", pdfPath, err, common.ErrSubmission)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			c.logger.Warn("client.submit.file_close_error", "req_id", reqID, "error", cerr)
		}
	}()

	// Stream the multipart body through a pipe so the PDF is never held in
	// memory whole.
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		err := writeSubmitForm(mw, f, filepath.Base(pdfPath), lang, img, batch, testPage)
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(mw.Close())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.parseURL, pr)
	if err != nil {
		return nil, common.WrapError(err, "build submit request")
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("X-UPSTAGE-API-KEY", c.upstageKey)
	req.Header.Set("X-OPENAI-API-KEY", c.openaiKey)

	c.logger.Info("client.submit.start",
		"req_id", reqID,
		"file", filepath.Base(pdfPath),
		"size_bytes", info.Size(),
		"language", lang,
		"include_image", img,
		"batch_size", batch,
		"test_page", testPage,
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("client.submit.send_error", "req_id", reqID, "error", err)
		return nil, fmt.Errorf("submit %s: %v: %w", pdfPath, err, common.ErrConnection)
	}
	defer closeBody(resp.Body, c.logger, reqID)

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode/100 != 2 {
		c.logger.Error("client.submit.rejected",
			"req_id", reqID, "status", resp.StatusCode, "body", string(raw))
		return nil, common.NewAPIError(common.ErrSubmission, resp.StatusCode, string(raw), "submit pdf")
	}

	job := &Job{}
	if err := json.Unmarshal(raw, job); err != nil {
		return nil, fmt.Errorf("decode submit response: %v: %w", err, common.ErrSubmission)
	}
	if job.ID == "" {
		return nil, fmt.Errorf("submit response carries no job_id: %w", common.ErrSubmission)
	}
	if job.Filename == "" {
		job.Filename = filepath.Base(pdfPath)
	}

	c.logger.Info("client.submit.ok",
		"req_id", reqID,
		"job_id", job.ID,
		"status", job.Status,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return job, nil
}

func (c *Client) resolveOptions(opts *ParseOptions) (lang string, img bool, batch int, testPage *int) {
	lang = c.defaults.Language
	img = c.defaults.IncludeImage
	batch = c.defaults.BatchSize
	testPage = c.defaults.TestPage
	if opts == nil {
		return lang, img, batch, testPage
	}
	if opts.Language != "" {
		lang = opts.Language
	}
	if opts.IncludeImage != nil {
		img = *opts.IncludeImage
	}
	if opts.BatchSize > 0 {
		batch = opts.BatchSize
	}
	if opts.TestPage != nil {
		testPage = opts.TestPage
	}
	return lang, img, batch, testPage
}

func writeSubmitForm(mw *multipart.Writer, f io.Reader, filename, lang string, img bool, batch int, testPage *int) error {
	hdr := textproto.MIMEHeader{}
	hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	hdr.Set("Content-Type", "application/pdf")
	part, err := mw.CreatePart(hdr)
	if err != nil {
		return fmt.Errorf("create file part: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return fmt.Errorf("copy pdf into form: %w", err)
	}

	fields := map[string]string{
		"language":      lang,
		"include_image": strconv.FormatBool(img),
		"batch_size":    strconv.Itoa(batch),
	}
	if testPage != nil {
		fields["test_page"] = strconv.Itoa(*testPage)
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return fmt.Errorf("write field %s: %w", k, err)
		}
	}
	return nil
}
