package slack

import (
	"context"
	"net/http"

	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"

	"github.com/lewisedginton/slack_echo_bot/pkg/logger"
)

type acker interface {
	Ack(req socketmode.Request, payload ...interface{})
}

// SocketReceiver feeds Socket Mode Events API envelopes into a Handler.
// It needs an APIPoster built with an app-level token.
type SocketReceiver struct {
	client  *socketmode.Client
	acker   acker
	handler *Handler
	log     logger.Logger
}

// NewSocketReceiver opens Socket Mode on the poster's Web API client.
func NewSocketReceiver(poster *APIPoster, handler *Handler, log logger.Logger, debug bool) *SocketReceiver {
	client := socketmode.New(poster.Client(), socketmode.OptionDebug(debug))
	return &SocketReceiver{
		client:  client,
		acker:   client,
		handler: handler,
		log:     log,
	}
}

// Run connects and dispatches envelopes until ctx is cancelled.
func (s *SocketReceiver) Run(ctx context.Context) error {
	s.log.Info("Starting Slack Socket Mode receiver")

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case envelope, ok := <-s.client.Events:
				if !ok {
					return
				}
				s.dispatch(ctx, envelope)
			}
		}
	}()

	return s.client.RunContext(ctx)
}

func (s *SocketReceiver) dispatch(ctx context.Context, envelope socketmode.Event) {
	switch envelope.Type {
	case socketmode.EventTypeConnecting:
		s.log.Info("Connecting to Slack with Socket Mode")

	case socketmode.EventTypeConnectionError:
		s.log.Warn("Socket Mode connection failed", logger.AnyField("data", envelope.Data))

	case socketmode.EventTypeConnected:
		s.log.Info("Connected to Slack with Socket Mode")

	case socketmode.EventTypeHello:

	case socketmode.EventTypeEventsAPI:
		if envelope.Request == nil {
			s.log.Warn("Events API envelope without request")
			return
		}
		s.acker.Ack(*envelope.Request)

		ctx, correlationID := logger.EnsureCorrelationID(ctx)
		log := s.log.WithCorrelationID(correlationID)
		if ev, ok := envelope.Data.(slackevents.EventsAPIEvent); ok {
			log.Debug("Event received", logger.StringField("type", ev.Type))
		}

		resp := s.handler.Handle(ctx, envelope.Request.Payload)
		if resp.StatusCode != http.StatusOK {
			log.Warn("Failed to handle event", logger.StringField("reason", resp.Body))
		}

	case socketmode.EventTypeInteractive, socketmode.EventTypeSlashCommand:
		if envelope.Request != nil {
			s.acker.Ack(*envelope.Request)
		}
		s.log.Debug("Acknowledged unsupported envelope", logger.StringField("type", string(envelope.Type)))

	default:
		s.log.Debug("Unsupported event type received", logger.StringField("type", string(envelope.Type)))
	}
}
