package slack

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/slack-go/slack/slackevents"
)

// ErrNullPayload is returned for a body that is the JSON literal null.
var ErrNullPayload = errors.New("payload is null")

var (
	typeEventCallback = string(slackevents.CallbackEvent)
	typeMessage       = string(slackevents.Message)
	typeAppMention    = string(slackevents.AppMention)
)

// Delivery is one decoded Events API request body: a ChallengeRequest,
// an EventCallback or Other.
type Delivery interface {
	isDelivery()
}

// ChallengeRequest is the endpoint verification handshake. Challenge holds
// the raw JSON value so it can be echoed back verbatim.
type ChallengeRequest struct {
	Challenge json.RawMessage
}

// EventKind is the inner event type of an EventCallback.
type EventKind string

const (
	KindMessage    EventKind = "message"
	KindAppMention EventKind = "app_mention"
)

// EventCallback is a message or app_mention event the bot may answer.
type EventCallback struct {
	Kind    EventKind
	Channel string
	User    string
	Text    string
	BotID   string
}

// FromBot reports whether the event was posted by a bot, this one included.
func (e EventCallback) FromBot() bool {
	return e.BotID != ""
}

// Other is any delivery the bot acknowledges without acting on.
type Other struct {
	Type      string
	EventType string
}

func (ChallengeRequest) isDelivery() {}
func (EventCallback) isDelivery()    {}
func (Other) isDelivery()            {}

// ParseDelivery decodes a request body. It fails only when the body is not
// JSON at all or is null; every other unrecognised shape is Other.
func ParseDelivery(body []byte) (Delivery, error) {
	if !json.Valid(body) {
		return nil, fmt.Errorf("failed to parse JSON payload (%d bytes)", len(body))
	}

	trimmed := bytes.TrimSpace(body)
	if bytes.Equal(trimmed, []byte("null")) {
		return nil, ErrNullPayload
	}
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return Other{}, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return nil, fmt.Errorf("failed to decode JSON object: %w", err)
	}

	if challenge, ok := fields["challenge"]; ok && truthy(challenge) {
		return ChallengeRequest{Challenge: challenge}, nil
	}

	outerType := stringValue(fields["type"])
	if outerType != typeEventCallback {
		return Other{Type: outerType}, nil
	}

	raw, ok := fields["event"]
	if !ok {
		return Other{Type: outerType}, nil
	}

	var inner map[string]json.RawMessage
	if err := json.Unmarshal(raw, &inner); err != nil || inner == nil {
		// null or not an object
		return Other{Type: outerType}, nil
	}

	innerType := stringValue(inner["type"])
	switch innerType {
	case typeMessage, typeAppMention:
		ev := EventCallback{
			Kind:    EventKind(innerType),
			Channel: textValue(inner["channel"]),
			User:    textValue(inner["user"]),
			Text:    textValue(inner["text"]),
		}
		if botID := inner["bot_id"]; truthy(botID) {
			ev.BotID = textValue(botID)
			if ev.BotID == "" {
				// truthy values such as [] render empty
				ev.BotID = string(botID)
			}
		}
		return ev, nil
	default:
		return Other{Type: outerType, EventType: innerType}, nil
	}
}

// truthy applies JavaScript truthiness to a JSON value: null, false, 0 and ""
// are falsy, everything else (including empty objects and arrays) is truthy.
func truthy(raw json.RawMessage) bool {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return false
	}
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t != ""
	default:
		return true
	}
}

// textValue renders a JSON value the way a template literal would: strings
// as-is, other scalars by their literal text. Missing and null give "".
func textValue(raw json.RawMessage) string {
	var v any
	if raw == nil || json.Unmarshal(raw, &v) != nil || v == nil {
		return ""
	}
	return jsString(v)
}

func jsString(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case []any:
		parts := make([]string, len(t))
		for i, e := range t {
			if e != nil {
				parts[i] = jsString(e)
			}
		}
		return strings.Join(parts, ",")
	default:
		return "[object Object]"
	}
}

func stringValue(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}
