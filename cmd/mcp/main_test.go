package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"testing"

	"github.com/Rationaloptimist140/skills-market-signalgate/internal/config"
	"github.com/Rationaloptimist140/skills-market-signalgate/internal/logger"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

func stubMCPDeps(t *testing.T, cfg *config.Config) {
	t.Helper()
	origLoadEnv := loadEnvFunc
	origNewLogger := newLoggerFunc
	origLoadConfig := loadConfigFunc
	origInitTracer := initTracerFunc
	origNotify := notifyContextFunc
	origStdio := runStdioFunc
	origListen := listenAndServeFunc
	origShutdown := shutdownFunc
	origExit := exitFunc
	t.Cleanup(func() {
		loadEnvFunc = origLoadEnv
		newLoggerFunc = origNewLogger
		loadConfigFunc = origLoadConfig
		initTracerFunc = origInitTracer
		notifyContextFunc = origNotify
		runStdioFunc = origStdio
		listenAndServeFunc = origListen
		shutdownFunc = origShutdown
		exitFunc = origExit
	})

	loadEnvFunc = func(...string) error { return nil }
	newLoggerFunc = func(logger.Options) (*zap.Logger, error) { return zap.NewNop(), nil }
	loadConfigFunc = func(*zap.Logger) *config.Config { return cfg }
	initTracerFunc = func(ctx context.Context, service, version string) (*sdktrace.TracerProvider, trace.Tracer, error) {
		tp := sdktrace.NewTracerProvider()
		return tp, tp.Tracer("test"), nil
	}
	// Behave as if a shutdown signal already arrived.
	notifyContextFunc = func(parent context.Context, _ ...os.Signal) (context.Context, context.CancelFunc) {
		ctx, cancel := context.WithCancel(parent)
		cancel()
		return ctx, cancel
	}
}

func TestRunStdio(t *testing.T) {
	stubMCPDeps(t, &config.Config{MCPTransport: "stdio", MCPRequestTimeoutSecs: 25})

	var got *mcp.Server
	runStdioFunc = func(ctx context.Context, server *mcp.Server) error {
		got = server
		<-ctx.Done()
		return ctx.Err()
	}

	require.NoError(t, run())
	assert.NotNil(t, got)
}

func TestRunStdioFailure(t *testing.T) {
	stubMCPDeps(t, &config.Config{MCPTransport: "stdio"})
	runStdioFunc = func(context.Context, *mcp.Server) error { return errors.New("broken pipe") }

	err := run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken pipe")
}

func TestRunHTTP(t *testing.T) {
	stubMCPDeps(t, &config.Config{MCPTransport: "http", MCPHTTPBind: "127.0.0.1", MCPHTTPPort: 8090, MCPRateLimitPerMin: 60})

	var addr string
	shutdownCalled := false
	listenAndServeFunc = func(srv *http.Server) error {
		addr = srv.Addr
		return http.ErrServerClosed
	}
	shutdownFunc = func(*http.Server, context.Context) error {
		shutdownCalled = true
		return nil
	}

	require.NoError(t, run())
	assert.Equal(t, "127.0.0.1:8090", addr)
	assert.True(t, shutdownCalled)
}

func TestRunHTTPListenError(t *testing.T) {
	stubMCPDeps(t, &config.Config{MCPTransport: "http", MCPHTTPBind: "127.0.0.1", MCPHTTPPort: 8090})
	listenAndServeFunc = func(*http.Server) error { return errors.New("address in use") }
	shutdownFunc = func(*http.Server, context.Context) error { return nil }

	err := run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "address in use")
}

func TestMainExitsOnError(t *testing.T) {
	stubMCPDeps(t, &config.Config{})
	newLoggerFunc = func(logger.Options) (*zap.Logger, error) { return nil, errors.New("bad level") }

	code := -1
	exitFunc = func(c int) { code = c }

	main()
	assert.Equal(t, 1, code)
}
