package logger

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestFromZap(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	log := FromZap(zap.New(core)).With(zap.String("component", "catalog"))

	log.Debug("hidden")
	log.Info("category saved", zap.Int("level", 3))
	log.Warn("rejected")

	entries := logs.All()
	require.Len(t, entries, 2)
	require.Equal(t, "category saved", entries[0].Message)
	require.Equal(t, "catalog", entries[0].ContextMap()["component"])
	require.EqualValues(t, 3, entries[0].ContextMap()["level"])
	require.Equal(t, zapcore.WarnLevel, entries[1].Level)
}

func TestNewZapLogger(t *testing.T) {
	for _, cfg := range []*ZapLoggerConfig{
		{IsDevelopment: true, Encoding: "console", Level: "debug"},
		{Encoding: "json", Level: "not-a-level", DisableCaller: true, DisableStacktrace: true},
	} {
		log := NewZapLogger(cfg)
		require.NotNil(t, log)
		log.Info("ready")
	}
}
