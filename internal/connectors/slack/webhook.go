package slack

import (
	"errors"
	"io"
	"net/http"

	"github.com/lewisedginton/slack_echo_bot/pkg/logger"
)

// DefaultMaxBodyBytes bounds webhook bodies when no limit is configured.
const DefaultMaxBodyBytes int64 = 1 << 20

// Webhook serves Events API deliveries over HTTP.
type Webhook struct {
	handler      *Handler
	verifier     *Verifier
	log          logger.Logger
	maxBodyBytes int64
}

// NewWebhook wraps handler as an http.Handler. verifier may be nil.
func NewWebhook(handler *Handler, verifier *Verifier, log logger.Logger, maxBodyBytes int64) *Webhook {
	if maxBodyBytes <= 0 {
		maxBodyBytes = DefaultMaxBodyBytes
	}
	return &Webhook{
		handler:      handler,
		verifier:     verifier,
		log:          log,
		maxBodyBytes: maxBodyBytes,
	}
}

func (wh *Webhook) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := logger.GetLoggerFromContext(r.Context(), wh.log)

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, wh.maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			log.Warn("Slack event body too large", logger.Int64Field("limit_bytes", tooLarge.Limit))
			http.Error(w, http.StatusText(http.StatusRequestEntityTooLarge), http.StatusRequestEntityTooLarge)
			return
		}
		log.Error(ErrorProcessingEvent, logger.ErrorField(err))
		write(w, textResponse(ErrorProcessingEvent))
		return
	}

	if err := wh.verifier.Verify(r.Header, body); err != nil {
		log.Warn("Rejected unsigned Slack request", logger.ErrorField(err))
		http.Error(w, "invalid signature", http.StatusUnauthorized)
		return
	}

	write(w, wh.handler.Handle(r.Context(), body))
}

func write(w http.ResponseWriter, resp Response) {
	if resp.ContentType != "" {
		w.Header().Set("Content-Type", resp.ContentType)
	}
	w.WriteHeader(resp.StatusCode)
	if resp.Body != "" {
		_, _ = io.WriteString(w, resp.Body)
	}
}
