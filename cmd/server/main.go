package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Rationaloptimist140/skills-market-signalgate/internal/bot"
	"github.com/Rationaloptimist140/skills-market-signalgate/internal/cache"
	"github.com/Rationaloptimist140/skills-market-signalgate/internal/config"
	"github.com/Rationaloptimist140/skills-market-signalgate/internal/handler"
	"github.com/Rationaloptimist140/skills-market-signalgate/internal/logger"
	"github.com/Rationaloptimist140/skills-market-signalgate/internal/provider"
	"github.com/Rationaloptimist140/skills-market-signalgate/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	_ "github.com/Rationaloptimist140/skills-market-signalgate/docs"
)

const (
	serviceName = "signalgate-api"
	version     = "1.0.0"
)

var (
	loadEnvFunc            = godotenv.Load
	newLoggerFunc          = logger.New
	loadConfigFunc         = config.Load
	initTracerFunc         = tracing.InitTracer
	initRedisFunc          = cache.InitRedis
	newProviderFunc        = provider.NewSignalGateProvider
	newHandlerFunc         = handler.New
	startTelegramBotFunc   = bot.StartTelegramBot
	newRouterFunc          = gin.Default
	setupSignalNotify      = signal.Notify
	waitForSignalFunc      = func(quit <-chan os.Signal) { <-quit }
	startHTTPServerFunc    = func(srv *http.Server) error { return srv.ListenAndServe() }
	shutdownHTTPServerFunc = func(srv *http.Server, ctx context.Context) error { return srv.Shutdown(ctx) }
)

// @title           SignalGate Sentiment API
// @version         1.0
// @description     Crypto market sentiment for BTC, ETH and SOL, paid per call over x402.

// @host      localhost:8080
// @BasePath  /

// @securityDefinitions.apikey  ApiKeyAuth
// @in                          header
// @name                        X-API-Key
func main() {
	_ = loadEnvFunc()

	log, err := newLoggerFunc(logger.OptionsFromEnv())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	cfg := loadConfigFunc(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tp, tracer, err := initTracerFunc(ctx, serviceName, version)
	if err != nil {
		log.Fatal("failed to initialize tracer", zap.Error(err))
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			log.Warn("error shutting down tracer provider", zap.Error(err))
		}
	}()

	sentiment := newProviderFunc(cfg.SignalGate(), tracer, log)
	h := newHandlerFunc(tracer, log, sentiment)

	// Payment ledger is optional
	if cfg.RedisURL != "" {
		client, err := initRedisFunc(ctx, cfg.RedisURL, log)
		if err != nil {
			log.Fatal("failed to connect payment ledger", zap.Error(err))
		}
		defer client.Close()
		ledger := cache.NewPaymentLedger(client, cfg.LedgerMaxEntries)
		sentiment.SetPaymentRecorder(ledger)
		h.SetPaymentHistory(ledger)
	}

	stopBot, err := startTelegramBotFunc(cfg.TelegramBotToken, sentiment, log)
	if err != nil {
		log.Error("Telegram bot disabled", zap.Error(err))
		stopBot = func() {}
	}
	defer stopBot()

	r := newRouterFunc()
	r.Use(otelgin.Middleware(serviceName))
	h.RegisterRoutes(r, cfg.APIKey)
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := startHTTPServerFunc(srv); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		setupSignalNotify(quit, syscall.SIGINT, syscall.SIGTERM)
		signaled := make(chan struct{})
		go func() {
			waitForSignalFunc(quit)
			close(signaled)
		}()

		select {
		case <-signaled:
			log.Info("Shutting down server...")
		case <-gctx.Done():
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		return shutdownHTTPServerFunc(srv, shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatal("server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exiting")
}
