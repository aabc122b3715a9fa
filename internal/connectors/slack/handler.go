package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/lewisedginton/slack_echo_bot/pkg/logger"
)

const (
	// ErrorProcessingEvent is the body for malformed deliveries and unexpected failures.
	ErrorProcessingEvent = "Error processing event"
	// ErrorPostingMessage is the body when Slack rejects chat.postMessage.
	ErrorPostingMessage = "Error posting message to Slack API"

	contentTypeJSON = "application/json"
	contentTypeText = "text/plain; charset=utf-8"
)

// Outcome labels how a delivery was handled.
type Outcome string

const (
	OutcomeChallenge      Outcome = "challenge"
	OutcomeReplied        Outcome = "replied"
	OutcomeBotMessage     Outcome = "bot_message"
	OutcomeIgnored        Outcome = "ignored"
	OutcomeInvalidPayload Outcome = "invalid_payload"
	OutcomeAPIError       Outcome = "api_error"
	OutcomeFailed         Outcome = "failed"
)

// Response is what the caller should send back to Slack.
// An empty ContentType means no Content-Type header.
type Response struct {
	StatusCode  int
	Body        string
	ContentType string
}

// Recorder receives one outcome per handled delivery.
type Recorder interface {
	RecordDelivery(outcome string)
}

type nopRecorder struct{}

func (nopRecorder) RecordDelivery(string) {}

// Handler decides what to do with a delivery and performs at most one post.
type Handler struct {
	poster   Poster
	log      logger.Logger
	recorder Recorder
}

// HandlerOption customises a Handler.
type HandlerOption func(*Handler)

// WithRecorder reports each delivery outcome to r.
func WithRecorder(r Recorder) HandlerOption {
	return func(h *Handler) {
		if r != nil {
			h.recorder = r
		}
	}
}

// NewHandler returns a Handler replying through poster.
func NewHandler(poster Poster, log logger.Logger, opts ...HandlerOption) *Handler {
	h := &Handler{
		poster:   poster,
		log:      log,
		recorder: nopRecorder{},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ReplyText builds the echo reply for user and text.
func ReplyText(user, text string) string {
	return fmt.Sprintf("Hello, <@%s>! You said: %s", user, text)
}

// Handle processes one raw delivery body. It never returns an error or panics;
// every failure is folded into a 500 Response.
func (h *Handler) Handle(ctx context.Context, body []byte) (resp Response) {
	log := logger.GetLoggerFromContext(ctx, h.log)

	defer func() {
		if r := recover(); r != nil {
			log.Error(ErrorProcessingEvent, logger.StringField("panic_error", fmt.Sprintf("%v", r)))
			resp = h.finish(OutcomeFailed, textResponse(ErrorProcessingEvent))
		}
	}()

	log.Info("Slack event", logger.StringField("payload", string(body)))

	delivery, err := ParseDelivery(body)
	if err != nil {
		log.Error(ErrorProcessingEvent, logger.ErrorField(err))
		return h.finish(OutcomeInvalidPayload, textResponse(ErrorProcessingEvent))
	}

	switch d := delivery.(type) {
	case ChallengeRequest:
		return h.challenge(log, d)
	case EventCallback:
		return h.reply(ctx, log, d)
	case Other:
		log.Debug("Ignoring delivery",
			logger.StringField("type", d.Type),
			logger.StringField("event_type", d.EventType))
	}
	return h.finish(OutcomeIgnored, emptyResponse())
}

func (h *Handler) challenge(log logger.Logger, req ChallengeRequest) Response {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(map[string]json.RawMessage{"challenge": req.Challenge}); err != nil {
		log.Error(ErrorProcessingEvent, logger.ErrorField(err))
		return h.finish(OutcomeFailed, textResponse(ErrorProcessingEvent))
	}

	log.Info("Answered URL verification challenge")
	return h.finish(OutcomeChallenge, Response{
		StatusCode:  http.StatusOK,
		Body:        string(bytes.TrimRight(buf.Bytes(), "\n")),
		ContentType: contentTypeJSON,
	})
}

func (h *Handler) reply(ctx context.Context, log logger.Logger, ev EventCallback) Response {
	log = log.WithFields(
		logger.StringField("event_type", string(ev.Kind)),
		logger.StringField("channel", ev.Channel),
		logger.StringField("user", ev.User),
	)

	if ev.FromBot() {
		log.Debug("Ignoring bot message", logger.StringField("bot_id", ev.BotID))
		return h.finish(OutcomeBotMessage, emptyResponse())
	}

	err := h.poster.PostMessage(ctx, ev.Channel, ReplyText(ev.User, ev.Text))
	if err == nil {
		log.Info("Echo reply posted")
		return h.finish(OutcomeReplied, emptyResponse())
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		log.Error(ErrorPostingMessage,
			logger.StringField("slack_error", apiErr.Code),
			logger.AnyField("slack_messages", apiErr.Messages))
		return h.finish(OutcomeAPIError, textResponse(ErrorPostingMessage))
	}

	log.Error(ErrorProcessingEvent, logger.ErrorField(err))
	return h.finish(OutcomeFailed, textResponse(ErrorProcessingEvent))
}

func (h *Handler) finish(outcome Outcome, resp Response) Response {
	h.recorder.RecordDelivery(string(outcome))
	return resp
}

func emptyResponse() Response {
	return Response{StatusCode: http.StatusOK}
}

func textResponse(body string) Response {
	return Response{
		StatusCode:  http.StatusInternalServerError,
		Body:        body,
		ContentType: contentTypeText,
	}
}
