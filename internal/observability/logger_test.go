package observability

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_JSONDefault(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "info", "json")

	logger.Debug("hidden")
	logger.Info("provider attempt", "provider", "cwa", "kind", "horizon")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "provider attempt", line["msg"])
	assert.Equal(t, "cwa", line["provider"])
}

func TestNewLogger_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "debug", "text")
	logger.Debug("resolving", "query", "台北101")

	assert.Contains(t, buf.String(), "level=DEBUG")
	assert.Contains(t, buf.String(), "query=台北101")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelWarn, parseLevel("WARNING"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel("verbose"))
}

func TestMetricsForTestingAreIndependent(t *testing.T) {
	a := NewMetricsForTesting()
	b := NewMetricsForTesting()

	a.ProviderAttempts.WithLabelValues("cwa", "ok").Inc()

	assert.InDelta(t, 1, testutil.ToFloat64(a.ProviderAttempts.WithLabelValues("cwa", "ok")), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(b.ProviderAttempts.WithLabelValues("cwa", "ok")), 0)
}
