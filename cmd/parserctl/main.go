// Command parserctl drives the remote document-parsing service from the
// command line: submit PDFs, check job status, download results, list jobs
// on the server and show the local submission history.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/teddynote/parser-client/internal/client"
	"github.com/teddynote/parser-client/internal/common"
)

const usage = `usage: parserctl <command> [flags]

commands:
  health     check server liveness
  parse      submit a PDF for parsing (optionally wait and download)
  status     show the status of one job
  download   download (and optionally extract) a completed job's result
  jobs       list all jobs known to the server
  history    list past submissions recorded locally

run 'parserctl <command> -h' for command flags
`

func main() {
	// A missing .env is fine; explicit environment always wins over the file.
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cmd, args := os.Args[1], os.Args[2:]
	var err error
	switch cmd {
	case "health":
		err = runHealth(args)
	case "parse":
		err = runParse(args)
	case "status":
		err = runStatus(args)
	case "download":
		err = runDownload(args)
	case "jobs":
		err = runJobs(args)
	case "history":
		err = runHistory(args)
	case "-h", "--help", "help":
		fmt.Print(usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// clientFlags are the connection flags every subcommand shares. Flag values
// override the environment, which overrides the built-in defaults.
type clientFlags struct {
	apiURL     *string
	upstageKey *string
	openaiKey  *string
	timeout    *time.Duration
	debug      *bool
}

func addClientFlags(fs *flag.FlagSet) *clientFlags {
	return &clientFlags{
		apiURL:     fs.String("api-url", "", "API server URL (default: PARSER_API_URL or http://localhost:9997)"),
		upstageKey: fs.String("upstage-api-key", "", "Upstage API key (default: UPSTAGE_API_KEY)"),
		openaiKey:  fs.String("openai-api-key", "", "OpenAI API key (default: OPENAI_API_KEY)"),
		timeout:    fs.Duration("timeout", 0, "per-request timeout (default: PARSER_TIMEOUT or 60s)"),
		debug:      fs.Bool("debug", false, "enable debug logging"),
	}
}

// buildClient resolves configuration and constructs the client plus the
// logger every subcommand uses.
func (cf *clientFlags) buildClient() (*client.Client, *common.Config, *slog.Logger, error) {
	level := slog.LevelInfo
	if *cf.debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if *cf.apiURL != "" {
		cfg.API.BaseURL = *cf.apiURL
	}
	if *cf.upstageKey != "" {
		cfg.API.UpstageAPIKey = *cf.upstageKey
	}
	if *cf.openaiKey != "" {
		cfg.API.OpenAIAPIKey = *cf.openaiKey
	}
	if *cf.timeout > 0 {
		cfg.API.Timeout = *cf.timeout
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, nil, err
	}
	return client.New(cfg, logger), cfg, logger, nil
}

func runHealth(args []string) error {
	fs := flag.NewFlagSet("health", flag.ExitOnError)
	cf := addClientFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	c, _, _, err := cf.buildClient()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	hs, err := c.Health(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("server %s: %s", c.BaseURL(), hs.Status)
	if hs.Detail != "" {
		fmt.Printf(" (%s)", hs.Detail)
	}
	fmt.Println()
	return nil
}

func runStatus(args []string) error {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	cf := addClientFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: parserctl status [flags] <job-id>")
	}
	jobID := fs.Arg(0)

	c, cfg, logger, err := cf.buildClient()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	job, err := c.JobStatus(ctx, jobID)
	if err != nil {
		return err
	}
	rememberStatus(ctx, cfg, logger, job.ID, job.Status)

	fmt.Printf("job %s: %s", job.ID, job.Status)
	if job.Message != "" {
		fmt.Printf(" (%s)", job.Message)
	}
	fmt.Println()
	return nil
}

func runJobs(args []string) error {
	fs := flag.NewFlagSet("jobs", flag.ExitOnError)
	cf := addClientFlags(fs)
	exportPath := fs.String("export", "", "write the listing to this XLSX file instead of stdout")
	if err := fs.Parse(args); err != nil {
		return err
	}
	c, _, _, err := cf.buildClient()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	jobs, err := c.ListJobs(ctx)
	if err != nil {
		return err
	}

	if *exportPath != "" {
		return writeJobsXLSX(jobs, *exportPath)
	}

	fmt.Printf("%d job(s)\n", len(jobs))
	for _, j := range jobs {
		line := fmt.Sprintf("  %s  %s", j.ID, j.Status)
		if j.Filename != "" {
			line += "  " + j.Filename
		}
		fmt.Println(line)
	}
	return nil
}

func runHistory(args []string) error {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	cf := addClientFlags(fs)
	limit := fs.Int("limit", 20, "maximum entries to show (0 = all)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	_, cfg, logger, err := cf.buildClient()
	if err != nil {
		return err
	}

	store, err := openHistory(cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	entries, err := store.List(ctx, *limit)
	if err != nil {
		return err
	}
	fmt.Printf("%d submission(s)\n", len(entries))
	for _, e := range entries {
		fmt.Printf("  %s  %-12s %s  %s\n",
			e.SubmittedAt.Format(time.RFC3339), e.LastStatus, e.JobID, e.Filename)
	}
	return nil
}
