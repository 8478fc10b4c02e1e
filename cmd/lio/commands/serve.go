package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/YouMingYeh/lio/pkg/lio/assistant"
	"github.com/YouMingYeh/lio/pkg/lio/blob"
	"github.com/YouMingYeh/lio/pkg/lio/config"
	"github.com/YouMingYeh/lio/pkg/lio/line"
	"github.com/YouMingYeh/lio/pkg/lio/llm"
	"github.com/YouMingYeh/lio/pkg/lio/scheduler"
	"github.com/YouMingYeh/lio/pkg/lio/store"
)

// newServeCmd creates the `lio serve` command that starts the webhook
// server and the reminder runner.
func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the LINE webhook server",
		Long: `Start Lio as a daemon: serve the LINE webhook, process messages
through the reply pipeline, and run scheduled reminders.

Examples:
  lio serve
  lio serve --config ./config.yaml`,
		RunE: runServe,
	}
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	// ── Load config ──
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	// ── Configure logger ──
	verbose, _ := cmd.Root().PersistentFlags().GetBool("verbose")
	logLevel := slog.LevelInfo
	if verbose || cfg.Logging.Level == "debug" {
		logLevel = slog.LevelDebug
	}

	var handler slog.Handler
	if cfg.Logging.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	} else {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	}
	logger := slog.New(handler)

	if cfg.LINE.ChannelSecret == "" || cfg.LINE.ChannelToken == "" {
		return fmt.Errorf("LINE credentials missing: set LINE_CHANNEL_SECRET and LINE_CHANNEL_ACCESS_TOKEN")
	}
	if cfg.LLM.APIKey == "" {
		return fmt.Errorf("LLM API key missing: set OPENAI_API_KEY")
	}

	// ── Open storage ──
	db, err := store.Open(cfg.Storage.DatabasePath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	users := store.NewUserStore(db)
	messages := store.NewMessageStore(db)
	tasks := store.NewTaskStore(db)
	jobs := store.NewJobStore(db)
	memories := store.NewMemoryStore(db)
	feedback := store.NewFeedbackStore(db)

	uploader := blob.NewSupabaseUploader(
		cfg.Storage.Blob.ProjectURL,
		cfg.Storage.Blob.ServiceKey,
		cfg.Storage.Blob.Bucket,
		logger,
	)

	// ── LLM client ──
	client := llm.NewClient(llm.Options{
		BaseURL:     cfg.LLM.BaseURL,
		APIKey:      cfg.LLM.APIKey,
		Model:       cfg.LLM.Model,
		SearchModel: cfg.LLM.SearchModel,
		SpeechModel: cfg.LLM.SpeechModel,
		ImageModel:  cfg.LLM.ImageModel,
	}, logger)

	// ── Assemble the pipeline ──
	location, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Warn("unknown timezone, falling back to UTC", "timezone", cfg.Timezone)
		location = time.UTC
	}

	toolset := assistant.NewToolset(
		tasks, jobs, memories, feedback,
		client,
		assistant.NewWebLoader(logger),
		location,
		logger,
	)

	retry := assistant.DefaultRetryPolicy()
	if cfg.Pipeline.MaxAttempts > 0 {
		retry.MaxAttempts = cfg.Pipeline.MaxAttempts
	}

	asst := assistant.New(assistant.Deps{
		Context:       assistant.NewContextBuilder(cfg.Name, cfg.Language, cfg.Timezone),
		Planner:       assistant.NewPlanner(client, logger),
		Generator:     assistant.NewGenerator(client, cfg.Pipeline.MaxTurns, time.Duration(cfg.Pipeline.TurnTimeoutSeconds)*time.Second, logger),
		Toolset:       toolset,
		Media:         assistant.NewSynthesizer(client, client, uploader, logger),
		Messages:      messages,
		Tasks:         tasks,
		Retry:         retry,
		HistoryWindow: cfg.Pipeline.HistoryWindow,
	}, logger)

	channel, err := line.NewChannel(cfg.LINE, asst, users, uploader, logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ── Reminder runner ──
	if cfg.Scheduler.Enabled {
		sched := scheduler.New(jobs, users, channel, cfg.Timezone, cfg.Scheduler.PollInterval, logger)
		go sched.Run(ctx)
	}

	// ── HTTP server ──
	mux := http.NewServeMux()
	mux.Handle(cfg.LINE.WebhookPath, channel)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if err := db.Ping(); err != nil {
			http.Error(w, "db unavailable", http.StatusServiceUnavailable)
			return
		}
		fmt.Fprintln(w, "ok")
	})

	server := &http.Server{
		Addr:              cfg.LINE.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("lio running",
			"name", cfg.Name,
			"addr", cfg.LINE.ListenAddr,
			"webhook_path", cfg.LINE.WebhookPath,
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// ── Wait for shutdown ──
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		return fmt.Errorf("http server: %w", err)
	case <-sigChan:
	}

	logger.Info("shutdown signal received, stopping...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown timed out, forcing exit", "error", err)
	} else {
		logger.Info("shutdown complete")
	}
	return nil
}

// resolveConfig loads the config from the --config flag or the default
// search path.
func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	configPath, _ := cmd.Root().PersistentFlags().GetString("config")
	if configPath != "" {
		cfg, err := config.LoadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("loading config %s: %w", configPath, err)
		}
		return cfg, nil
	}
	return config.Load(), nil
}
