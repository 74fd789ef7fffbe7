package logger

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLevel("debug"))
	assert.Equal(t, zapcore.WarnLevel, parseLevel("warn"))
	assert.Equal(t, zapcore.ErrorLevel, parseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("info"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("verbose"))
}

func TestZapWrapper_Fields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := NewZapAdapter(zap.New(core)).
		With(map[string]interface{}{"taskType": "generate-prescription"}).
		WithError(errors.New("upstream 500"))

	log.Warn("falling back", map[string]interface{}{"requestId": "req-1", "cause": errors.New("boom")})

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "falling back", entry.Message)

	ctx := entry.ContextMap()
	assert.Equal(t, "generate-prescription", ctx["taskType"])
	assert.Equal(t, "req-1", ctx["requestId"])
	assert.Equal(t, "upstream 500", ctx["error"])
	assert.Equal(t, "boom", ctx["cause"])
}

func TestNewWithOutput_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "service.log")

	zl, err := NewWithOutput("info", "json", path)
	require.NoError(t, err)

	NewZapAdapter(zl).Info("hello", map[string]interface{}{"k": "v"})
	_ = zl.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"hello"`)
	assert.Contains(t, string(data), `"k":"v"`)
}

func TestNoOpLogger(t *testing.T) {
	log := NewNoOpLogger()
	assert.NotPanics(t, func() {
		log.Debug("d", nil)
		log.Info("i", nil)
		log.Error("e", map[string]interface{}{"x": 1})
	})
}
