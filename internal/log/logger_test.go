package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"bogus":   slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseLevel(in), "input %q", in)
	}
}

func TestJSONLoggerCarriesComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelInfo, Format: "json", Component: ComponentHTTP, Output: &buf})

	logger.Info("hello", "k", "v")
	logger.Debug("hidden")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, "hello", rec["msg"])
	assert.Equal(t, ComponentHTTP, rec[FieldComponent])
	assert.Equal(t, "v", rec["k"])
}

func TestWithComponentReplacesTag(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Format: "json", Component: ComponentApp, Output: &buf}).WithComponent(ComponentImport)
	assert.Equal(t, ComponentImport, logger.Component())

	logger.Info("x")
	assert.Equal(t, 1, strings.Count(buf.String(), `"component"`))
	assert.Contains(t, buf.String(), `"component":"import"`)
}

func TestFromContextFallsBackToDefault(t *testing.T) {
	l := FromContext(context.Background())
	require.NotNil(t, l)
	assert.Equal(t, "unknown", l.Component())

	custom := New(DefaultConfig())
	assert.Same(t, custom, FromContext(NewContext(context.Background(), custom)))
}

func TestRequestIDMiddleware(t *testing.T) {
	var buf bytes.Buffer
	base := New(Config{Format: "json", Output: &buf})

	h := Middleware(base)(RequestIDMiddleware(func(*http.Request) string { return "req-1" })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			FromContext(r.Context()).Info("inside")
		})))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Contains(t, buf.String(), `"request_id":"req-1"`)
}

func TestStructuredLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(New(Config{Format: "json", Output: &buf}))
	ctx := context.Background()
	req := httptest.NewRequest(http.MethodPost, "/transactions?x=1", nil)

	sl.LogHTTPEnd(ctx, req, http.StatusInternalServerError, 12, "10.0.0.1")
	assert.Contains(t, buf.String(), `"level":"ERROR"`)
	assert.Contains(t, buf.String(), `"status_code":500`)
	assert.Contains(t, buf.String(), `"success":false`)

	buf.Reset()
	sl.LogTransactionCreated(ctx, "id-1", "Salary", "income", 500000, "Job")
	assert.Contains(t, buf.String(), `"transaction_id":"id-1"`)
	assert.Contains(t, buf.String(), `"value_cents":500000`)

	buf.Reset()
	sl.LogImportCompleted(ctx, "a.csv", 2, 1)
	assert.Contains(t, buf.String(), `"imported":2`)
	assert.Contains(t, buf.String(), `"skipped":1`)

	buf.Reset()
	sl.LogError(ctx, "boom", errors.New("bad"), OpDelete, nil)
	assert.Contains(t, buf.String(), `"error":"bad"`)
	assert.Contains(t, buf.String(), `"operation":"delete"`)
}
