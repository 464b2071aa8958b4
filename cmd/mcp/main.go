package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/Rationaloptimist140/skills-market-signalgate/internal/cache"
	"github.com/Rationaloptimist140/skills-market-signalgate/internal/config"
	"github.com/Rationaloptimist140/skills-market-signalgate/internal/logger"
	"github.com/Rationaloptimist140/skills-market-signalgate/internal/provider"
	"github.com/Rationaloptimist140/skills-market-signalgate/internal/skill"
	"github.com/Rationaloptimist140/skills-market-signalgate/pkg/tracing"

	"github.com/joho/godotenv"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	serviceName = "signalgate-skill"
	version     = "1.0.0"
)

var (
	loadEnvFunc       = godotenv.Load
	newLoggerFunc     = logger.New
	loadConfigFunc    = config.Load
	initTracerFunc    = tracing.InitTracer
	initRedisFunc     = cache.InitRedis
	newProviderFunc   = provider.NewSignalGateProvider
	notifyContextFunc = signal.NotifyContext
	runStdioFunc      = func(ctx context.Context, server *mcp.Server) error {
		return server.Run(ctx, &mcp.StdioTransport{})
	}
	listenAndServeFunc = func(srv *http.Server) error { return srv.ListenAndServe() }
	shutdownFunc       = func(srv *http.Server, ctx context.Context) error { return srv.Shutdown(ctx) }
	exitFunc           = os.Exit
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "signalgate-skill: %v\n", err)
		exitFunc(1)
	}
}

func run() error {
	_ = loadEnvFunc()

	// stdout belongs to the stdio transport; the logger writes to stderr.
	log, err := newLoggerFunc(logger.OptionsFromEnv())
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	cfg := loadConfigFunc(log)

	ctx, stop := notifyContextFunc(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp, tracer, err := initTracerFunc(ctx, serviceName, version)
	if err != nil {
		return fmt.Errorf("init tracer: %w", err)
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			log.Warn("error shutting down tracer provider", zap.Error(err))
		}
	}()

	sentiment := newProviderFunc(cfg.SignalGate(), tracer, log)
	if cfg.RedisURL != "" {
		client, err := initRedisFunc(ctx, cfg.RedisURL, log)
		if err != nil {
			return fmt.Errorf("connect payment ledger: %w", err)
		}
		defer client.Close()
		sentiment.SetPaymentRecorder(cache.NewPaymentLedger(client, cfg.LedgerMaxEntries))
	}

	sk := skill.New(sentiment, sentiment.Config().Terms, time.Duration(cfg.MCPRequestTimeoutSecs)*time.Second, log)
	server, err := skill.NewServer(sk, version)
	if err != nil {
		return fmt.Errorf("build mcp server: %w", err)
	}

	switch cfg.MCPTransport {
	case "http":
		return serveHTTP(ctx, cfg, server, log)
	default:
		log.Info("MCP skill serving on stdio", zap.String("tool", skill.Name))
		if err := runStdioFunc(ctx, server); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("stdio transport: %w", err)
		}
		return nil
	}
}

func serveHTTP(ctx context.Context, cfg *config.Config, server *mcp.Server, log *zap.Logger) error {
	srv := &http.Server{
		Addr: net.JoinHostPort(cfg.MCPHTTPBind, strconv.Itoa(cfg.MCPHTTPPort)),
		Handler: skill.NewHTTPHandler(server, skill.HTTPOptions{
			AuthToken:  cfg.MCPAuthToken,
			RatePerMin: cfg.MCPRateLimitPerMin,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}
	if cfg.MCPAuthToken == "" {
		log.Warn("MCP_AUTH_TOKEN not set, HTTP transport is unauthenticated")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("MCP skill listening", zap.String("addr", srv.Addr), zap.String("tool", skill.Name))
		if err := listenAndServeFunc(srv); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down MCP skill...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return shutdownFunc(srv, shutdownCtx)
	})
	return g.Wait()
}
