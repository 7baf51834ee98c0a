package logging

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    zapcore.Level
		wantErr bool
	}{
		{"debug", zapcore.DebugLevel, false},
		{"INFO", zapcore.InfoLevel, false},
		{"", zapcore.InfoLevel, false},
		{"warning", zapcore.WarnLevel, false},
		{"error", zapcore.ErrorLevel, false},
		{"loud", zapcore.InfoLevel, true},
	}

	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestLoggerFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := NewWithZap(zap.New(core)).WithFields(Fields{"component": "test"})

	logger.Debug("debug entry", Fields{"frames": 12})
	logger.Error(errors.New("boom"), "failed entry")

	entries := logs.All()
	require.Len(t, entries, 2)

	assert.Equal(t, "debug entry", entries[0].Message)
	ctx := entries[0].ContextMap()
	assert.Equal(t, "test", ctx["component"])
	assert.EqualValues(t, 12, ctx["frames"])

	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
	assert.Equal(t, "boom", entries[1].ContextMap()["error"])
}

func TestDefaultLogger(t *testing.T) {
	prev := NewDefaultLogger()
	defer SetDefault(prev)

	core, logs := observer.New(zapcore.InfoLevel)
	SetDefault(NewWithZap(zap.New(core)))

	WithFields(Fields{"k": "v"}).Info("hello")
	WithFields(nil).Debug("filtered out")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "v", logs.All()[0].ContextMap()["k"])
}

func TestConfigureRejectsUnknownFormat(t *testing.T) {
	_, err := Configure(Config{Level: "info", Format: "xml"})
	assert.Error(t, err)
}
