package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/teddynote/parser-client/internal/archive"
	"github.com/teddynote/parser-client/internal/client"
	"github.com/teddynote/parser-client/internal/common"
	"github.com/teddynote/parser-client/internal/export"
	"github.com/teddynote/parser-client/internal/history"
)

func runParse(args []string) error {
	fs := flag.NewFlagSet("parse", flag.ExitOnError)
	cf := addClientFlags(fs)
	language := fs.String("language", "", "document language (default: PARSER_LANGUAGE or Korean)")
	includeImage := fs.Bool("include-image", true, "include images in the parse result")
	batchSize := fs.Int("batch-size", 0, "page batch size (default: PARSER_BATCH_SIZE or 30)")
	testPage := fs.Int("test-page", 0, "only parse the first N pages (0 = all)")
	wait := fs.Bool("wait", false, "block until the job reaches a terminal state")
	interval := fs.Duration("interval", 0, "poll interval (default: PARSER_POLL_INTERVAL or 2s)")
	maxWait := fs.Duration("max-wait", 0, "polling budget (default: PARSER_POLL_MAX_WAIT or 2m)")
	download := fs.Bool("download", false, "download the result after a successful wait")
	saveDir := fs.String("save-dir", "parser_results", "directory for downloaded results")
	extract := fs.Bool("extract", false, "extract the downloaded archive")
	verify := fs.Bool("verify", false, "validate metadata.json after extraction")
	overwrite := fs.Bool("overwrite", false, "replace an existing archive")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: parserctl parse [flags] <pdf-path>")
	}
	pdfPath := fs.Arg(0)

	c, cfg, logger, err := cf.buildClient()
	if err != nil {
		return err
	}

	opts := &client.ParseOptions{
		Language:  *language,
		BatchSize: *batchSize,
	}
	// Only treat -include-image as an override when it was actually passed,
	// so PARSER_INCLUDE_IMAGE keeps its say otherwise.
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "include-image" {
			opts.IncludeImage = includeImage
		}
	})
	if *testPage > 0 {
		opts.TestPage = testPage
	}

	ctx := context.Background()
	job, err := c.SubmitPDF(ctx, pdfPath, opts)
	if err != nil {
		return err
	}
	fmt.Printf("submitted %s as job %s\n", filepath.Base(pdfPath), job.ID)

	lang := opts.Language
	if lang == "" {
		lang = cfg.Parse.Language
	}
	rememberSubmission(ctx, cfg, logger, job, lang)

	if !*wait {
		return nil
	}

	pollEvery := cfg.Poll.Interval
	if *interval > 0 {
		pollEvery = *interval
	}
	budget := cfg.Poll.MaxWait
	if *maxWait > 0 {
		budget = *maxWait
	}

	final, err := c.WaitForCompletion(ctx, job.ID, pollEvery, budget)
	if final != nil {
		rememberStatus(ctx, cfg, logger, final.ID, final.Status)
	}
	if err != nil {
		return err
	}
	fmt.Printf("job %s completed\n", final.ID)

	if !*download {
		return nil
	}
	return downloadAndReport(ctx, c, cfg, logger, final.ID, *saveDir, *extract, *verify, *overwrite)
}

func runDownload(args []string) error {
	fs := flag.NewFlagSet("download", flag.ExitOnError)
	cf := addClientFlags(fs)
	saveDir := fs.String("save-dir", "parser_results", "directory for downloaded results")
	extract := fs.Bool("extract", false, "extract the downloaded archive")
	verify := fs.Bool("verify", false, "validate metadata.json after extraction")
	overwrite := fs.Bool("overwrite", false, "replace an existing archive")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: parserctl download [flags] <job-id>")
	}
	jobID := fs.Arg(0)

	c, cfg, logger, err := cf.buildClient()
	if err != nil {
		return err
	}
	return downloadAndReport(context.Background(), c, cfg, logger, jobID, *saveDir, *extract, *verify, *overwrite)
}

func downloadAndReport(ctx context.Context, c *client.Client, cfg *common.Config, logger *slog.Logger, jobID, saveDir string, extract, verify, overwrite bool) error {
	zipPath, extractDir, err := c.DownloadResult(ctx, jobID, saveDir, extract, overwrite)
	if err != nil {
		return err
	}
	rememberStatus(ctx, cfg, logger, jobID, "completed")

	fmt.Printf("archive: %s\n", zipPath)
	if extractDir == "" {
		return nil
	}
	fmt.Printf("extracted: %s\n", extractDir)

	if verify {
		switch err := archive.VerifyMetadata(extractDir); {
		case err == nil:
			fmt.Println("metadata: ok")
		case errors.Is(err, archive.ErrNoMetadata):
			logger.Warn("result.verify.no_metadata", "job_id", jobID, "dir", extractDir)
		default:
			return err
		}
	}
	return nil
}

func writeJobsXLSX(jobs []client.Job, path string) error {
	data, err := export.JobsXLSX(jobs)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	fmt.Printf("exported %d job(s) to %s\n", len(jobs), path)
	return nil
}

// openHistory opens the local submission history store.
func openHistory(cfg *common.Config, logger *slog.Logger) (*history.Store, error) {
	return history.Open(cfg.History.DBPath, logger)
}

// rememberSubmission records a submission locally. History is best-effort:
// failures are logged, never surfaced, so a broken local DB cannot block the
// actual work.
func rememberSubmission(ctx context.Context, cfg *common.Config, logger *slog.Logger, job *client.Job, language string) {
	store, err := openHistory(cfg, logger)
	if err != nil {
		logger.Warn("history.open_error", "error", err)
		return
	}
	defer store.Close()

	if err := store.Record(ctx, job.ID, job.Filename, language, job.Status); err != nil {
		logger.Warn("history.record_error", "job_id", job.ID, "error", err)
	}
}

func rememberStatus(ctx context.Context, cfg *common.Config, logger *slog.Logger, jobID, status string) {
	store, err := openHistory(cfg, logger)
	if err != nil {
		logger.Warn("history.open_error", "error", err)
		return
	}
	defer store.Close()

	if err := store.UpdateStatus(ctx, jobID, status); err != nil {
		logger.Warn("history.update_error", "job_id", jobID, "error", err)
	}
}
