package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/gmsas95/docuscan/internal/api"
	"github.com/gmsas95/docuscan/internal/config"
	"github.com/gmsas95/docuscan/internal/credentials"
	"github.com/gmsas95/docuscan/internal/errors"
	"github.com/gmsas95/docuscan/internal/metrics"
	"github.com/gmsas95/docuscan/internal/ocr"
	"github.com/gmsas95/docuscan/internal/pipeline"
	"github.com/gmsas95/docuscan/internal/pricing"
	"github.com/gmsas95/docuscan/internal/retry"
	"github.com/gmsas95/docuscan/internal/store"
	"github.com/gmsas95/docuscan/internal/watch"
)

var version = "dev"

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	errorStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	faintStyle = lipgloss.NewStyle().Faint(true)
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "process":
		runProcess(os.Args[2:])
	case "watch":
		runWatch(os.Args[2:])
	case "serve":
		runServe(os.Args[2:])
	case "history":
		runHistory(os.Args[2:])
	case "auth":
		runAuth(os.Args[2:])
	case "version":
		fmt.Printf("docuscan %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		// Bare file argument is shorthand for process.
		runProcess(os.Args[1:])
	}
}

func printUsage() {
	fmt.Println(titleStyle.Render("docuscan — document OCR via a remote provider"))
	fmt.Println(`
Usage:
  docuscan process <file>   Process a PDF or image file
  docuscan watch <dir>      Process new files dropped into a directory
  docuscan serve            Run the local HTTP API
  docuscan history          Show recent processing runs
  docuscan auth             Store the provider API key
  docuscan version          Print the version

Flags for process/watch:
  -images                   Include embedded page images in the output
  -tables string            Table format: markdown or html
  -header-footer            Extract header/footer regions
  -format string            Output format: markdown, json, or yaml (process only)
  -config string            Path to config file
  -data string              Path to data directory`)
}

type app struct {
	cfg          *config.Config
	logger       *zap.Logger
	history      *store.Store
	metrics      *metrics.Metrics
	orchestrator *pipeline.Orchestrator
}

func buildApp(configPath, dataDir string, progress pipeline.ProgressSink) (*app, error) {
	cfg, err := config.Load(configPath, dataDir)
	if err != nil {
		return nil, err
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		return nil, err
	}

	history, err := store.New(cfg)
	if err != nil {
		logger.Warn("History disabled", zap.Error(err))
		history = nil
	}

	creds := credentials.Chain{
		credentials.Env("DOCUSCAN_PROVIDER_API_KEY"),
		credentials.Static(cfg.Provider.APIKey),
		credentials.NewFileStore(cfg.Storage.DataDir),
	}

	uploader := ocr.NewUploader(
		cfg.Provider.BaseURL,
		time.Duration(cfg.Provider.UploadTimeout)*time.Second,
		time.Duration(cfg.Provider.SignTimeout)*time.Second,
		logger,
	)
	executor := ocr.NewExecutor(ocr.ExecutorConfig{
		BaseURL:           cfg.Provider.BaseURL,
		Timeout:           time.Duration(cfg.Provider.SubmitTimeout) * time.Second,
		RequestsPerMinute: cfg.Provider.RequestsPerMinute,
	}, logger)

	m := metrics.Default()
	orchestrator := pipeline.New(pipeline.Config{
		Preparer:    ocr.NewPreparer(uploader, logger),
		Executor:    executor,
		Credentials: creds,
		Cost:        pricing.Default(),
		Policy: retry.Policy{
			MaxAttempts: cfg.Retry.MaxAttempts,
			BaseDelay:   time.Duration(cfg.Retry.BaseDelay) * time.Second,
		},
		Metrics:  m,
		History:  history,
		Progress: progress,
		Logger:   logger,
	})

	return &app{
		cfg:          cfg,
		logger:       logger,
		history:      history,
		metrics:      m,
		orchestrator: orchestrator,
	}, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runProcess(args []string) {
	fs := flag.NewFlagSet("process", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	dataDir := fs.String("data", "", "Path to data directory")
	includeImages := fs.Bool("images", false, "Include embedded page images")
	tableFormat := fs.String("tables", "", "Table format: markdown or html")
	headerFooter := fs.Bool("header-footer", false, "Extract header/footer regions")
	format := fs.String("format", "markdown", "Output format: markdown, json, or yaml")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fail("no input file given")
	}
	path := fs.Arg(0)

	progress := func(p ocr.Progress) {
		fmt.Fprintln(os.Stderr, faintStyle.Render(
			fmt.Sprintf("processing page %d of %d...", p.CurrentPage, p.TotalPages)))
	}

	a, err := buildApp(*configPath, *dataDir, progress)
	if err != nil {
		fail(err.Error())
	}
	defer a.logger.Sync()

	ctx, stop := signalContext()
	defer stop()

	docType, mime := ocr.Classify(path)
	doc := ocr.Document{
		ID:       uuid.NewString(),
		Path:     path,
		Name:     filepath.Base(path),
		Type:     docType,
		MIMEType: mime,
	}
	settings := ocr.Settings{
		IncludeImages:       *includeImages,
		TableFormat:         ocr.TableFormat(*tableFormat),
		ExtractHeaderFooter: *headerFooter,
	}

	result, err := a.orchestrator.Process(ctx, doc, settings)
	if err != nil {
		failWithKind(err)
	}

	if err := printResult(result, *format); err != nil {
		fail(err.Error())
	}
	fmt.Fprintln(os.Stderr, faintStyle.Render(fmt.Sprintf(
		"%d pages | %s | %s | model %s",
		len(result.Pages), result.Cost, result.Duration.Round(time.Millisecond), result.Model)))
}

func printResult(result *ocr.Result, format string) error {
	switch format {
	case "json":
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
	case "yaml":
		data, err := yaml.Marshal(result)
		if err != nil {
			return err
		}
		fmt.Print(string(data))
	default:
		var sb strings.Builder
		for _, page := range result.Pages {
			sb.WriteString(page.Markdown)
			sb.WriteString("\n\n")
		}
		markdown := sb.String()

		if term.IsTerminal(int(os.Stdout.Fd())) {
			rendered, err := glamour.Render(markdown, "dark")
			if err == nil {
				fmt.Print(rendered)
				return nil
			}
		}
		fmt.Print(markdown)
	}
	return nil
}

func runWatch(args []string) {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	dataDir := fs.String("data", "", "Path to data directory")
	includeImages := fs.Bool("images", false, "Include embedded page images")
	tableFormat := fs.String("tables", "", "Table format: markdown or html")
	headerFooter := fs.Bool("header-footer", false, "Extract header/footer regions")
	fs.Parse(args)

	a, err := buildApp(*configPath, *dataDir, nil)
	if err != nil {
		fail(err.Error())
	}
	defer a.logger.Sync()

	dir := a.cfg.Watch.Dir
	if fs.NArg() > 0 {
		dir = fs.Arg(0)
	}
	if dir == "" {
		fail("no watch directory given")
	}

	ctx, stop := signalContext()
	defer stop()

	settings := ocr.Settings{
		IncludeImages:       *includeImages,
		TableFormat:         ocr.TableFormat(*tableFormat),
		ExtractHeaderFooter: *headerFooter,
	}
	watcher := watch.New(a.orchestrator, settings, a.logger)
	if err := watcher.Run(ctx, dir); err != nil && ctx.Err() == nil {
		fail(err.Error())
	}
}

func runServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	dataDir := fs.String("data", "", "Path to data directory")
	fs.Parse(args)

	a, err := buildApp(*configPath, *dataDir, nil)
	if err != nil {
		fail(err.Error())
	}
	defer a.logger.Sync()

	server := api.New(a.cfg, a.orchestrator, a.history, a.metrics, a.logger)
	// Late-bound so WebSocket clients see progress from API-triggered jobs.
	a.orchestrator.SetProgress(server.BroadcastProgress)

	ctx, stop := signalContext()
	defer stop()

	go func() {
		<-ctx.Done()
		a.orchestrator.Cancel()
		server.Shutdown()
	}()

	if err := server.Start(); err != nil {
		fail(err.Error())
	}
}

func runHistory(args []string) {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	dataDir := fs.String("data", "", "Path to data directory")
	limit := fs.Int("n", 20, "Number of records to show")
	fs.Parse(args)

	a, err := buildApp(*configPath, *dataDir, nil)
	if err != nil {
		fail(err.Error())
	}
	defer a.logger.Sync()

	if a.history == nil {
		fail("history is disabled")
	}
	records, err := a.history.ListRecent(*limit)
	if err != nil {
		fail(err.Error())
	}
	if len(records) == 0 {
		fmt.Println("no processing history")
		return
	}

	fmt.Println(titleStyle.Render("Recent processing runs"))
	for _, rec := range records {
		line := fmt.Sprintf("%s  %-10s %-30s %3d pages  %.4f %s  %s",
			rec.CompletedAt.Format("2006-01-02 15:04"),
			rec.Status,
			rec.DocumentName,
			rec.Pages,
			rec.CostValue, rec.CostCurrency,
			time.Duration(rec.DurationMS)*time.Millisecond,
		)
		if rec.ErrorKind != "" {
			line += "  [" + rec.ErrorKind + "]"
		}
		fmt.Println(line)
	}
}

func runAuth(args []string) {
	fs := flag.NewFlagSet("auth", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	dataDir := fs.String("data", "", "Path to data directory")
	fs.Parse(args)

	cfg, err := config.Load(*configPath, *dataDir)
	if err != nil {
		fail(err.Error())
	}

	fmt.Print("Provider API key: ")
	key, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		fail(err.Error())
	}
	if len(strings.TrimSpace(string(key))) == 0 {
		fail("empty API key")
	}

	fileStore := credentials.NewFileStore(cfg.Storage.DataDir)
	if err := fileStore.Save(string(key)); err != nil {
		fail(err.Error())
	}
	fmt.Println("API key saved to " + fileStore.Path)
}

func fail(msg string) {
	fmt.Fprintln(os.Stderr, errorStyle.Render("error: ")+msg)
	os.Exit(1)
}

func failWithKind(err error) {
	kind := errors.KindOf(err)
	out := errorStyle.Render("error: ") + errors.Description(kind)
	if s := errors.Suggestion(kind); s != "" {
		out += "\n" + faintStyle.Render("hint: "+s)
	}
	fmt.Fprintln(os.Stderr, out)
	if kind == errors.KindCancelled {
		os.Exit(130)
	}
	os.Exit(1)
}
