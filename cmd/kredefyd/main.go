// Kredefy decision engine server — exposes the HTTP API and drives the
// agent pipelines behind loan, vouch and chat requests.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/kredefy/backend/pkg/agent"
	"github.com/kredefy/backend/pkg/api"
	"github.com/kredefy/backend/pkg/blockchain"
	"github.com/kredefy/backend/pkg/config"
	"github.com/kredefy/backend/pkg/gamification"
	"github.com/kredefy/backend/pkg/llm"
	"github.com/kredefy/backend/pkg/messaging"
	"github.com/kredefy/backend/pkg/metrics"
	"github.com/kredefy/backend/pkg/oracle"
	"github.com/kredefy/backend/pkg/orchestrator"
	"github.com/kredefy/backend/pkg/payments"
	"github.com/kredefy/backend/pkg/resilience"
	"github.com/kredefy/backend/pkg/services"
	"github.com/kredefy/backend/pkg/store"
	"github.com/kredefy/backend/pkg/tts"
	"github.com/kredefy/backend/pkg/version"
	"github.com/kredefy/backend/pkg/voting"
)

// newBreaker builds a breaker with the metrics transition hook attached.
func newBreaker(name string, cfg resilience.BreakerConfig) *resilience.Breaker {
	b := resilience.NewBreaker(name, cfg)
	b.OnStateChange(metrics.ObserveBreakerTransition)
	return b
}

func main() {
	envPath := flag.String("env-file",
		os.Getenv("ENV_FILE"),
		"Path to an optional .env file")
	tunablesPath := flag.String("tunables",
		"kredefy.yaml",
		"Path to the YAML tunables file")
	flag.Parse()

	if *envPath != "" {
		if err := godotenv.Load(*envPath); err != nil {
			slog.Warn("Could not load .env file, continuing with existing environment",
				"path", *envPath, "error", err)
		}
	}

	ctx := context.Background()

	// 1. Initialize configuration
	cfg, err := config.Initialize(*tunablesPath)
	if err != nil {
		slog.Error("Failed to initialize configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting Kredefy",
		"version", version.Full(),
		"http_port", cfg.Settings.HTTPPort,
		"environment", cfg.Settings.Environment)

	// 2. Connect to PostgreSQL and run migrations
	db, err := store.New(ctx, cfg.Settings.Database)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := db.Close(); err != nil {
			slog.Error("Error closing database", "error", err)
		}
	}()
	slog.Info("Connected to PostgreSQL database")

	// 3. External clients, each behind its own breaker.
	// The chain relayer and the LLM trip faster: both sit on the hot
	// request path and fail loudly when their upstream is down.
	llmClient := llm.NewClient(cfg.Settings.LLM,
		newBreaker("llm", resilience.BreakerConfig{FailureThreshold: 3}))
	gateway := payments.NewClient(cfg.Settings.Payments,
		newBreaker("payments", resilience.DefaultBreaker))
	notifier := messaging.NewClient(cfg.Settings.Messaging,
		newBreaker("messaging", resilience.DefaultBreaker))
	chain := blockchain.NewClient(cfg.Settings.Chain,
		newBreaker("blockchain", resilience.BreakerConfig{FailureThreshold: 3}))
	voice := tts.NewClient(cfg.Settings.TTS, cfg.Tunables.TTSVoices,
		newBreaker("tts", resilience.DefaultBreaker))
	slog.Info("External clients initialized")

	// 4. Agents and orchestrator
	tasks := resilience.NewTaskManager()
	signer := oracle.NewSigner(cfg.Settings.OracleSigningKey)
	brain, err := orchestrator.New(db, chain, tasks,
		agent.NewNova(llmClient),
		agent.NewRiskOracle(signer),
		agent.NewFraudGuard(),
		agent.NewTrustAnalyzer(),
		agent.NewLoanAdvisor(),
		agent.NewActionAgent(),
	)
	if err != nil {
		slog.Error("Failed to build orchestrator", "error", err)
		os.Exit(1)
	}

	// 5. Domain services
	voteConfig := voting.Config{
		ApprovalThreshold: cfg.Tunables.ApprovalThreshold,
		MinVoters:         cfg.Tunables.MinVoters,
	}
	rewards := gamification.NewEngine(db, cfg.Tunables.Badges)
	vouching := services.NewVouchingService(db, chain, notifier, tasks, cfg.Tunables.VouchLevels)
	loans := services.NewLoanService(db, brain, gateway, chain, notifier, tasks, voteConfig)
	repayments := services.NewPaymentService(db, chain, vouching, rewards, tasks)
	slog.Info("Services initialized")

	// 6. HTTP server
	server := api.NewServer(api.ServerConfig{
		JWTSecret:          cfg.Settings.JWTSecret,
		RateLimitPerMinute: cfg.Tunables.RateLimitPerMinute,
		CORSOrigins:        cfg.Settings.CORSOrigins,
	}, brain, loans, vouching, repayments, gateway, voice, db.DB())

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + cfg.Settings.HTTPPort
		slog.Info("HTTP server listening", "addr", addr)
		if err := server.Start(addr); err != nil {
			errCh <- err
		}
	}()

	// 7. Wait for shutdown signal or server error
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	select {
	case sig := <-sigCh:
		slog.Info("Shutdown signal received", "signal", sig)
	case err := <-errCh:
		slog.Error("Server error triggered shutdown", "error", err)
	}

	// 8. Graceful shutdown: stop accepting requests, then drain the
	// background notarization and notification tasks.
	httpCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := server.Shutdown(httpCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	tasks.Shutdown(10 * time.Second)

	slog.Info("Shutdown complete")
}
