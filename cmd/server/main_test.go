package main

import (
	"context"
	"net/http"
	"os"
	"sync"
	"testing"
	"time"

	"token-alert-bot/internal/bot"
	"token-alert-bot/internal/config"
	"token-alert-bot/internal/domain"
	"token-alert-bot/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

type fakeBot struct {
	mu         sync.Mutex
	registered bool
	started    bool
	stopped    bool
}

func (b *fakeBot) SendText(context.Context, domain.ChatID, string, [2]domain.Action) (domain.MessageRef, error) {
	return domain.MessageRef{}, nil
}

func (b *fakeBot) SendImageWithCaption(context.Context, domain.ChatID, string, string, [2]domain.Action) (domain.MessageRef, error) {
	return domain.MessageRef{}, nil
}

func (b *fakeBot) AcknowledgeAction(context.Context, string) error { return nil }

func (b *fakeBot) RetractActionControls(context.Context, domain.MessageRef) (bool, error) {
	return true, nil
}

func (b *fakeBot) ReplyText(context.Context, domain.ChatID, string) error { return nil }

func (b *fakeBot) Register(ctx context.Context, sessions bot.SessionController, actions bot.ActionHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.registered = sessions != nil && actions != nil
}

func (b *fakeBot) Start() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.started = true
}

func (b *fakeBot) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stopped = true
}

func runMain(t *testing.T) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		main()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("main did not exit")
	}
}

func TestMainBootstrap(t *testing.T) {
	gin.SetMode(gin.TestMode)
	fb := &fakeBot{}
	restore := stubServerDeps(&config.Config{TelegramBotToken: "token"}, fb)
	defer restore()

	runMain(t)

	fb.mu.Lock()
	defer fb.mu.Unlock()
	assert.True(t, fb.registered)
	assert.True(t, fb.started)
	assert.True(t, fb.stopped)
}

func TestMainWithoutTelegramToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	restore := stubServerDeps(&config.Config{}, nil)
	defer restore()

	var created bool
	newBotFunc = func(token string) (chatBot, error) {
		created = true
		return bot.New(bot.Options{Token: token})
	}

	runMain(t)
	assert.True(t, created)
}

func stubServerDeps(cfg *config.Config, fb *fakeBot) func() {
	origLoadEnv := loadEnvFunc
	origLoadConfig := loadConfigFunc
	origSetupLogging := setupLoggingFunc
	origInitPostgres := initPostgresFunc
	origInitRedis := initRedisFunc
	origInitTracer := initTracerFunc
	origNewBot := newBotFunc
	origStartBot := startBotFunc
	origNewRouter := newRouterFunc
	origSetupSignal := setupSignalNotify
	origWait := waitForSignalFunc
	origStartHTTP := startHTTPServerFunc
	origShutdownHTTP := shutdownHTTPServerFunc

	cfg.PollIntervalSecs = 1
	cfg.PipelineWorkers = 1
	cfg.LedgerMarkPolicy = service.MarkOnAttempt
	cfg.HTTPAddr = ":0"

	loadEnvFunc = func(...string) error { return nil }
	loadConfigFunc = func() *config.Config { return cfg }
	setupLoggingFunc = func(string, string) {}
	initTracerFunc = func(ctx context.Context) (*sdktrace.TracerProvider, trace.Tracer, error) {
		tp := sdktrace.NewTracerProvider()
		return tp, tp.Tracer("test"), nil
	}
	newBotFunc = func(string) (chatBot, error) { return fb, nil }
	startBotFunc = func(b chatBot) { b.Start() }
	newRouterFunc = func(...gin.OptionFunc) *gin.Engine { return gin.New() }
	setupSignalNotify = func(c chan<- os.Signal, sig ...os.Signal) {}
	waitForSignalFunc = func(<-chan os.Signal) {}
	startHTTPServerFunc = func(*http.Server) error { return http.ErrServerClosed }
	shutdownHTTPServerFunc = func(*http.Server, context.Context) error { return nil }

	return func() {
		loadEnvFunc = origLoadEnv
		loadConfigFunc = origLoadConfig
		setupLoggingFunc = origSetupLogging
		initPostgresFunc = origInitPostgres
		initRedisFunc = origInitRedis
		initTracerFunc = origInitTracer
		newBotFunc = origNewBot
		startBotFunc = origStartBot
		newRouterFunc = origNewRouter
		setupSignalNotify = origSetupSignal
		waitForSignalFunc = origWait
		startHTTPServerFunc = origStartHTTP
		shutdownHTTPServerFunc = origShutdownHTTP
	}
}
