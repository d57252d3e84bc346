package logger

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"INFO", zapcore.InfoLevel},
		{"warning", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"verbose", zapcore.InfoLevel},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseLevel(tt.in), "parseLevel(%q)", tt.in)
	}
}

func TestNew_FileOutputJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "devis.log")

	l, err := New(Config{Level: "warn", Format: "json", Output: path})
	require.NoError(t, err)

	l.Info("mirror: dropped")
	l.Warn("mirror: kv unavailable", zap.String("id", "d1"))
	require.NoError(t, l.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.NotContains(t, out, "dropped")
	assert.Contains(t, out, `"msg":"mirror: kv unavailable"`)
	assert.Contains(t, out, `"id":"d1"`)
}

func TestNew_BadFile(t *testing.T) {
	_, err := New(Config{Output: filepath.Join(t.TempDir(), "missing", "dir", "x.log")})
	assert.Error(t, err)
}

func TestInstall_RedirectsStdLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "std.log")
	l, err := New(Config{Level: "info", Format: "json", Output: path})
	require.NoError(t, err)

	restore := Install(l)
	log.Printf("collections: created %q", "quotes")
	zap.S().Infof("services: %d rows", 3)
	restore()
	require.NoError(t, l.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), `collections: created \"quotes\"`), string(data))
	assert.Contains(t, string(data), "services: 3 rows")
}
