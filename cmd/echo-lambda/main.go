// Command echo-lambda serves the Slack Events API webhook from AWS Lambda
// behind an API Gateway proxy integration.
package main

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-lambda-go/lambdacontext"

	appconfig "github.com/lewisedginton/slack_echo_bot/internal/config"
	slackconnector "github.com/lewisedginton/slack_echo_bot/internal/connectors/slack"
	"github.com/lewisedginton/slack_echo_bot/pkg/logger"
)

// proxyHandler adapts API Gateway proxy events to the event handler.
type proxyHandler struct {
	handler  *slackconnector.Handler
	verifier *slackconnector.Verifier
	log      logger.Logger
}

func (p *proxyHandler) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	ctx, _ = logger.EnsureCorrelationID(ctx)
	if lc, ok := lambdacontext.FromContext(ctx); ok {
		ctx = logger.WithFieldsContext(ctx, logger.StringField("aws_request_id", lc.AwsRequestID))
	}
	log := logger.GetLoggerFromContext(ctx, p.log)

	body := []byte(req.Body)
	if req.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(req.Body)
		if err != nil {
			log.Error(slackconnector.ErrorProcessingEvent, logger.ErrorField(err))
			return toProxyResponse(slackconnector.Response{
				StatusCode:  http.StatusInternalServerError,
				Body:        slackconnector.ErrorProcessingEvent,
				ContentType: "text/plain; charset=utf-8",
			}), nil
		}
		body = decoded
	}

	if err := p.verifier.Verify(headers(req), body); err != nil {
		log.Warn("Rejected unsigned Slack request", logger.ErrorField(err))
		return toProxyResponse(slackconnector.Response{
			StatusCode:  http.StatusUnauthorized,
			Body:        "invalid signature",
			ContentType: "text/plain; charset=utf-8",
		}), nil
	}

	return toProxyResponse(p.handler.Handle(ctx, body)), nil
}

// headers merges single and multi-value headers into an http.Header.
func headers(req events.APIGatewayProxyRequest) http.Header {
	h := make(http.Header, len(req.Headers)+len(req.MultiValueHeaders))
	for k, vs := range req.MultiValueHeaders {
		for _, v := range vs {
			h.Add(k, v)
		}
	}
	for k, v := range req.Headers {
		if h.Get(k) == "" {
			h.Set(k, v)
		}
	}
	return h
}

func toProxyResponse(resp slackconnector.Response) events.APIGatewayProxyResponse {
	out := events.APIGatewayProxyResponse{
		StatusCode: resp.StatusCode,
		Body:       resp.Body,
	}
	if resp.ContentType != "" {
		out.Headers = map[string]string{"Content-Type": resp.ContentType}
	}
	return out
}

func newProxyHandler(cfg *appconfig.AppConfig, log logger.Logger) *proxyHandler {
	poster := slackconnector.NewAPIPoster(slackconnector.PosterConfig{
		BotToken: cfg.Slack.BotToken,
		APIURL:   cfg.Slack.APIURL,
		Debug:    cfg.Slack.Debug,
	})
	verifier := slackconnector.NewVerifier(cfg.Slack.SigningSecret)
	if !verifier.Enabled() {
		log.Warn("SLACK_SIGNING_SECRET is not set, Slack request signatures will not be verified")
	}
	return &proxyHandler{
		handler:  slackconnector.NewHandler(poster, log),
		verifier: verifier,
		log:      log,
	}
}

func main() {
	cfg, err := appconfig.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(cfg.LoggerConfig())
	lambda.Start(newProxyHandler(cfg, log).Handle)
}
