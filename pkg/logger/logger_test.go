package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var entries []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		entries = append(entries, entry)
	}
	return entries
}

func TestLoggerOutput(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(Config{Level: InfoLevel, Format: "json", Service: "test-service", Output: &buf})

	log.Info("test message", StringField("test_key", "test_value"))

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "test message", entries[0]["msg"])
	assert.Equal(t, "test-service", entries[0]["service"])
	assert.Equal(t, "test_value", entries[0]["test_key"])
	assert.Equal(t, "info", entries[0]["level"])
}

func TestLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(Config{Level: WarnLevel, Output: &buf})

	log.Debug("debug message")
	log.Info("info message")
	log.Warn("warn message")
	log.Error("error message")

	out := buf.String()
	assert.NotContains(t, out, "debug message")
	assert.NotContains(t, out, "info message")
	assert.Contains(t, out, "warn message")
	assert.Contains(t, out, "error message")
}

func TestLoggerImmutability(t *testing.T) {
	var buf bytes.Buffer
	base := NewLogger(Config{Level: InfoLevel, Output: &buf})
	child := base.WithFields(StringField("key1", "value1"))

	base.Info("from base")
	child.Info("from child")

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 2)
	assert.NotContains(t, entries[0], "key1")
	assert.Equal(t, "value1", entries[1]["key1"])
}

func TestFieldHelpers(t *testing.T) {
	tests := []struct {
		name     string
		field    LogField
		expected LogField
	}{
		{"StringField", StringField("test", "value"), LogField{Key: "test", Value: "value"}},
		{"IntField", IntField("count", 42), LogField{Key: "count", Value: "42"}},
		{"Int64Field", Int64Field("big", 1 << 40), LogField{Key: "big", Value: "1099511627776"}},
		{"BoolField", BoolField("ok", false), LogField{Key: "ok", Value: "false"}},
		{"DurationField", DurationField("duration", 5*time.Second), LogField{Key: "duration", Value: "5s"}},
		{"AnyField", AnyField("payload", map[string]int{"a": 1}), LogField{Key: "payload", Value: "map[a:1]"}},
		{"ErrorField", ErrorField(errors.New("boom")), LogField{Key: "error", Value: "boom"}},
		{"ErrorField nil", ErrorField(nil), LogField{Key: "error", Value: "<nil>"}},
		{"CorrelationIDField", CorrelationIDField("test-id"), LogField{Key: "correlation_id", Value: "test-id"}},
		{"HTTPStatusField", HTTPStatusField(200), LogField{Key: "http_status", Value: "200"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.field)
		})
	}
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DebugLevel, ParseLevel("debug"))
	assert.Equal(t, WarnLevel, ParseLevel("WARNING"))
	assert.Equal(t, ErrorLevel, ParseLevel(" error "))
	assert.Equal(t, InfoLevel, ParseLevel("verbose"))
	assert.Equal(t, "warn", WarnLevel.String())
}

func TestEnsureCorrelationID(t *testing.T) {
	ctx, id := EnsureCorrelationID(context.Background())
	_, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, id, GetCorrelationIDFromContext(ctx))

	ctx2, id2 := EnsureCorrelationID(ctx)
	assert.Equal(t, id, id2)
	assert.Equal(t, ctx, ctx2)
}

func TestGetLoggerFromContextFields(t *testing.T) {
	var buf bytes.Buffer
	base := NewLogger(Config{Level: InfoLevel, Output: &buf})

	ctx := WithCorrelationIDContext(context.Background(), "corr-9")
	ctx = WithFieldsContext(ctx, StringField("aws_request_id", "req-1"))
	ctx = WithFieldsContext(ctx, StringField("stage", "prod"))

	GetLoggerFromContext(ctx, base).Info("handled")
	GetLoggerFromContext(context.Background(), base).Info("plain")

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 2)
	assert.Equal(t, "corr-9", entries[0]["correlation_id"])
	assert.Equal(t, "req-1", entries[0]["aws_request_id"])
	assert.Equal(t, "prod", entries[0]["stage"])
	assert.NotContains(t, entries[1], "aws_request_id")
}

func TestEnsureHTTPCorrelationID(t *testing.T) {
	t.Run("preserves existing valid correlation ID", func(t *testing.T) {
		existingID := uuid.New().String()
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set(CorrelationIDHeader, existingID)

		updated, id := EnsureHTTPCorrelationID(req)

		assert.Equal(t, existingID, id)
		assert.Equal(t, existingID, GetCorrelationIDFromContext(updated.Context()))
	})

	t.Run("replaces invalid correlation ID", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set(CorrelationIDHeader, "invalid-uuid")

		updated, id := EnsureHTTPCorrelationID(req)

		assert.NotEqual(t, "invalid-uuid", id)
		_, err := uuid.Parse(id)
		assert.NoError(t, err)
		assert.Equal(t, id, updated.Header.Get(CorrelationIDHeader))
	})
}

func TestHTTPMiddleware(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(Config{Level: InfoLevel, Format: "json", Output: &buf})

	handler := log.HTTPMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("error"))
	}))

	id := uuid.New().String()
	req := httptest.NewRequest(http.MethodPost, "/slack/events", nil)
	req.Header.Set(CorrelationIDHeader, id)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "HTTP response sent", entries[0]["msg"])
	assert.Equal(t, "500", entries[0]["http_status"])
	assert.Equal(t, "5", entries[0]["response_bytes"])
	assert.Equal(t, "/slack/events", entries[0]["http_path"])
	assert.Equal(t, id, entries[0]["correlation_id"])
}
