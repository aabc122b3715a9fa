package slack

import (
	"fmt"
	"net/http"

	"github.com/slack-go/slack"
)

// Verifier checks the X-Slack-Signature header against the app's signing secret.
// A Verifier with no secret accepts everything.
type Verifier struct {
	secret string
}

// NewVerifier returns a Verifier for signingSecret.
func NewVerifier(signingSecret string) *Verifier {
	return &Verifier{secret: signingSecret}
}

// Enabled reports whether a signing secret is configured.
func (v *Verifier) Enabled() bool {
	return v != nil && v.secret != ""
}

// Verify returns an error when the request was not signed by Slack or is stale.
func (v *Verifier) Verify(header http.Header, body []byte) error {
	if !v.Enabled() {
		return nil
	}

	sv, err := slack.NewSecretsVerifier(header, v.secret)
	if err != nil {
		return fmt.Errorf("invalid signature headers: %w", err)
	}
	if _, err := sv.Write(body); err != nil {
		return fmt.Errorf("failed to hash body: %w", err)
	}
	if err := sv.Ensure(); err != nil {
		return fmt.Errorf("signature mismatch: %w", err)
	}
	return nil
}
