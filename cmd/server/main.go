package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"token-alert-bot/internal/alert"
	"token-alert-bot/internal/bot"
	"token-alert-bot/internal/cache"
	"token-alert-bot/internal/config"
	"token-alert-bot/internal/db"
	"token-alert-bot/internal/handler"
	"token-alert-bot/internal/job"
	"token-alert-bot/internal/journal"
	"token-alert-bot/internal/provider"
	"token-alert-bot/internal/repository"
	"token-alert-bot/internal/service"
	"token-alert-bot/pkg/logging"
	"token-alert-bot/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const serviceName = "token-alert-bot"

// chatBot is the Telegram side of the process.
type chatBot interface {
	service.Messenger
	Register(ctx context.Context, sessions bot.SessionController, actions bot.ActionHandler)
	Start()
	Stop()
}

var (
	loadEnvFunc      = godotenv.Load
	loadConfigFunc   = config.Load
	setupLoggingFunc = logging.Setup
	initPostgresFunc = db.InitPostgres
	initRedisFunc    = cache.InitRedis
	initTracerFunc   = tracing.InitTracer
	newBotFunc       = func(token string) (chatBot, error) {
		return bot.New(bot.Options{Token: token})
	}
	startBotFunc           = func(b chatBot) { go b.Start() }
	newHandlerFunc         = handler.New
	newRouterFunc          = gin.Default
	setupSignalNotify      = signal.Notify
	waitForSignalFunc      = func(quit <-chan os.Signal) { <-quit }
	startHTTPServerFunc    = func(srv *http.Server) error { return srv.ListenAndServe() }
	shutdownHTTPServerFunc = func(srv *http.Server, ctx context.Context) error { return srv.Shutdown(ctx) }
)

func main() {
	_ = loadEnvFunc()

	cfg := loadConfigFunc()
	setupLoggingFunc(cfg.LogLevel, cfg.LogFormat)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tp, tracer, err := initTracerFunc(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize tracer")
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("error shutting down tracer provider")
		}
	}()

	// Alert journal: Postgres when configured, memory otherwise.
	var alertJournal journal.Journal = journal.NewMemory(cfg.JournalCapacity)
	if cfg.DatabaseURL != "" {
		pool, err := initPostgresFunc(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to postgres")
		}
		defer pool.Close()
		repo := repository.NewAlertRepository(pool, tracer)
		if err := repo.RunMigrations(ctx); err != nil {
			log.Fatal().Err(err).Msg("failed to run migrations")
		}
		alertJournal = repo
	}

	// Providers
	timeout := time.Duration(cfg.ProviderTimeoutSecs) * time.Second
	feed := provider.NewFeedProvider(tracer, provider.FeedOptions{
		URL:               cfg.FeedURL,
		Timeout:           timeout,
		MaxPerMinute:      cfg.ProviderMaxRPM,
		ValidateAddresses: cfg.FeedValidateAddresses,
	})
	safety := provider.NewSafetyProvider(tracer, provider.SafetyOptions{
		BaseURL:          cfg.SafetyURL,
		Timeout:          timeout,
		MaxPerMinute:     cfg.ProviderMaxRPM,
		AcceptedStatuses: cfg.SafetyAcceptStatuses,
	})
	enrichment := provider.NewEnrichmentProvider(tracer, provider.EnrichmentOptions{
		BaseURL:      cfg.EnrichmentURL,
		Timeout:      timeout,
		MaxPerMinute: cfg.ProviderMaxRPM,
	})

	var analyzer service.Analyzer = enrichment
	if cfg.RedisURL != "" {
		client, err := initRedisFunc(ctx, cfg.RedisURL)
		if err != nil {
			log.Warn().Err(err).Msg("analysis cache disabled")
		} else {
			defer client.Close()
			ttl := time.Duration(cfg.AnalysisCacheTTLSecs) * time.Second
			analyzer = service.NewCachedAnalyzer(tracer, enrichment, client, ttl)
		}
	}

	interval := time.Duration(cfg.PollIntervalSecs) * time.Second

	// Telegram bot, pipeline and sessions
	sessions := job.NewSessions(tracer, nil, interval)
	b, err := newBotFunc(cfg.TelegramBotToken)
	switch {
	case errors.Is(err, bot.ErrNoToken):
		log.Warn().Msg("TELEGRAM_BOT_TOKEN not set, skipping Telegram bot startup")
		b = nil
	case err != nil:
		log.Fatal().Err(err).Msg("failed to create Telegram bot")
	default:
		pipeline := service.NewPipelineService(
			tracer, feed, safety, analyzer,
			alert.NewComposer(cfg.TokenLinkBase),
			b, alertJournal,
			service.PipelineConfig{Workers: cfg.PipelineWorkers, MarkPolicy: cfg.LedgerMarkPolicy},
		)
		sessions = job.NewSessions(tracer, pipeline, interval)
		b.Register(ctx, sessions, service.NewActionService(tracer, b, alertJournal))
		startBotFunc(b)
	}

	// Create handlers and routes
	h := newHandlerFunc(tracer, sessions, alertJournal, cfg.APIKey)

	r := newRouterFunc()
	r.Use(otelgin.Middleware(serviceName))
	h.RegisterRoutes(r)

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	go func() {
		if err := startHTTPServerFunc(srv); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("listen")
		}
	}()
	log.Info().Str("addr", cfg.HTTPAddr).Msg("http server started")

	quit := make(chan os.Signal, 1)
	setupSignalNotify(quit, syscall.SIGINT, syscall.SIGTERM)
	waitForSignalFunc(quit)
	log.Info().Msg("shutting down")

	if b != nil {
		b.Stop()
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := sessions.StopAll(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("pipeline sessions did not finish in time")
	}
	if err := shutdownHTTPServerFunc(srv, shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exiting")
}
