package slack

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lewisedginton/slack_echo_bot/pkg/logger"
)

const testSigningSecret = "8f742231b10e8888abcd99yyyzzz85a5"

func signRequest(t *testing.T, req *http.Request, secret, body string, ts time.Time) {
	t.Helper()
	timestamp := strconv.FormatInt(ts.Unix(), 10)
	mac := hmac.New(sha256.New, []byte(secret))
	_, err := fmt.Fprintf(mac, "v0:%s:%s", timestamp, body)
	require.NoError(t, err)
	req.Header.Set("X-Slack-Request-Timestamp", timestamp)
	req.Header.Set("X-Slack-Signature", "v0="+hex.EncodeToString(mac.Sum(nil)))
}

func newTestWebhook(poster Poster, verifier *Verifier, maxBody int64) *Webhook {
	log := logger.NewNopLogger()
	return NewWebhook(NewHandler(poster, log), verifier, log, maxBody)
}

func TestWebhookChallenge(t *testing.T) {
	wh := newTestWebhook(&fakePoster{}, nil, 0)

	rr := httptest.NewRecorder()
	wh.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/slack/events",
		strings.NewReader(`{"type":"url_verification","challenge":"abc"}`)))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"challenge":"abc"}`, rr.Body.String())
}

func TestWebhookEcho(t *testing.T) {
	poster := &fakePoster{}
	wh := newTestWebhook(poster, nil, 0)

	rr := httptest.NewRecorder()
	wh.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/slack/events",
		strings.NewReader(`{"type":"event_callback","event":{"type":"message","user":"U123","text":"ping","channel":"C456"}}`)))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, rr.Body.String())
	assert.Empty(t, rr.Header().Get("Content-Type"))
	assert.Equal(t, []postedMessage{{Channel: "C456", Text: "Hello, <@U123>! You said: ping"}}, poster.Calls())
}

func TestWebhookMalformed(t *testing.T) {
	poster := &fakePoster{}
	wh := newTestWebhook(poster, nil, 0)

	rr := httptest.NewRecorder()
	wh.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/slack/events", strings.NewReader(`{`)))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, ErrorProcessingEvent, rr.Body.String())
	assert.Empty(t, poster.Calls())
}

func TestWebhookBodyTooLarge(t *testing.T) {
	poster := &fakePoster{}
	wh := newTestWebhook(poster, nil, 16)

	rr := httptest.NewRecorder()
	wh.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/slack/events",
		strings.NewReader(`{"type":"event_callback","event":{"type":"message"}}`)))

	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
	assert.Empty(t, poster.Calls())
}

func TestWebhookSignature(t *testing.T) {
	body := `{"type":"event_callback","event":{"type":"message","user":"U1","text":"signed","channel":"C1"}}`

	testCases := []struct {
		name       string
		sign       func(*http.Request)
		wantStatus int
		wantCalls  int
	}{
		{
			name:       "valid signature",
			sign:       func(r *http.Request) { signRequest(t, r, testSigningSecret, body, time.Now()) },
			wantStatus: http.StatusOK,
			wantCalls:  1,
		},
		{
			name:       "wrong secret",
			sign:       func(r *http.Request) { signRequest(t, r, "other-secret", body, time.Now()) },
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "stale timestamp",
			sign:       func(r *http.Request) { signRequest(t, r, testSigningSecret, body, time.Now().Add(-10*time.Minute)) },
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "missing headers",
			sign:       func(*http.Request) {},
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			poster := &fakePoster{}
			wh := newTestWebhook(poster, NewVerifier(testSigningSecret), 0)

			req := httptest.NewRequest(http.MethodPost, "/slack/events", strings.NewReader(body))
			tc.sign(req)

			rr := httptest.NewRecorder()
			wh.ServeHTTP(rr, req)

			assert.Equal(t, tc.wantStatus, rr.Code)
			assert.Len(t, poster.Calls(), tc.wantCalls)
		})
	}
}

func TestVerifierDisabled(t *testing.T) {
	var nilVerifier *Verifier
	assert.False(t, nilVerifier.Enabled())
	assert.NoError(t, nilVerifier.Verify(http.Header{}, []byte("{}")))

	v := NewVerifier("")
	assert.False(t, v.Enabled())
	assert.NoError(t, v.Verify(http.Header{}, []byte("{}")))
	assert.True(t, NewVerifier("s").Enabled())
}
