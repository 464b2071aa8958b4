package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewDefaultsToInfo(t *testing.T) {
	log, err := New(Options{})
	require.NoError(t, err)
	assert.True(t, log.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, log.Core().Enabled(zapcore.DebugLevel))
}

func TestNewParsesLevel(t *testing.T) {
	log, err := New(Options{Level: "debug"})
	require.NoError(t, err)
	assert.True(t, log.Core().Enabled(zapcore.DebugLevel))

	log, err = New(Options{Level: "nonsense"})
	require.NoError(t, err)
	assert.False(t, log.Core().Enabled(zapcore.DebugLevel))
}

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "skill.log")
	log, err := New(Options{Level: "info", File: path})
	require.NoError(t, err)

	log.Info("payment recorded")
	_ = log.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), `"msg":"payment recorded"`), string(data))
}

func TestRotatingFileDefaults(t *testing.T) {
	lj := newRotatingFile(Options{File: "x.log"})
	assert.Equal(t, 50, lj.MaxSize)
	assert.Equal(t, 5, lj.MaxBackups)
	assert.Equal(t, 14, lj.MaxAge)
}

func TestOptionsFromEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", " DEBUG ")
	t.Setenv("LOG_FILE", "/var/log/signalgate.log")

	opts := OptionsFromEnv()
	assert.Equal(t, "debug", opts.Level)
	assert.Equal(t, "/var/log/signalgate.log", opts.File)
}
