package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/iris/pkg/utils/errutil"
	"github.com/secmon-lab/iris/pkg/utils/logging"
	"github.com/secmon-lab/iris/pkg/utils/safe"
	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
)

// verifySlackSignature checks a v0 request signature with slack-go's verifier.
// Requests more than five minutes old or ahead are rejected.
func verifySlackSignature(signingSecret, timestamp, signature string, body []byte) error {
	if timestamp == "" {
		return goerr.New("missing timestamp")
	}
	if signature == "" {
		return goerr.New("missing signature")
	}

	header := http.Header{}
	header.Set("X-Slack-Request-Timestamp", timestamp)
	header.Set("X-Slack-Signature", signature)

	sv, err := slack.NewSecretsVerifier(header, signingSecret)
	if err != nil {
		return goerr.Wrap(err, "invalid signature headers", goerr.V("timestamp", timestamp))
	}
	if _, err := sv.Write(body); err != nil {
		return goerr.Wrap(err, "failed to compute HMAC")
	}
	if err := sv.Ensure(); err != nil {
		return goerr.Wrap(err, "signature mismatch")
	}

	return nil
}

// SlackSignatureMiddleware creates a middleware that verifies Slack request signatures
func SlackSignatureMiddleware(signingSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			// Read body
			body, err := io.ReadAll(r.Body)
			if err != nil {
				errutil.HandleHTTP(ctx, w, goerr.Wrap(err, "failed to read request body"), http.StatusBadRequest)
				return
			}
			defer safe.Close(ctx, r.Body)

			// Get headers
			timestamp := r.Header.Get("X-Slack-Request-Timestamp")
			signature := r.Header.Get("X-Slack-Signature")

			// Verify signature
			if err := verifySlackSignature(signingSecret, timestamp, signature, body); err != nil {
				errutil.HandleHTTP(ctx, w, goerr.Wrap(err, "slack signature verification failed"), http.StatusUnauthorized)
				return
			}

			// Restore the body for the next handler
			r.Body = io.NopCloser(bytes.NewBuffer(body))
			next.ServeHTTP(w, r)
		})
	}
}

// EventHandler processes a parsed Events API callback
type EventHandler interface {
	HandleEvent(ctx context.Context, event *slackevents.EventsAPIEvent) error
}

// SlackWebhookHandler handles Slack Events API webhook requests
type SlackWebhookHandler struct {
	events EventHandler
}

// NewSlackWebhookHandler creates a new Slack webhook handler
func NewSlackWebhookHandler(events EventHandler) *SlackWebhookHandler {
	return &SlackWebhookHandler{
		events: events,
	}
}

// ServeHTTP handles Slack webhook requests. Callbacks are processed before the
// response is written so that an internal failure is reported as 500.
func (h *SlackWebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.From(ctx)

	// Read body (already verified by middleware when a signing secret is set)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		errutil.HandleHTTP(ctx, w, goerr.Wrap(err, "failed to read request body"), http.StatusBadRequest)
		return
	}

	// Parse event
	eventsAPIEvent, err := slackevents.ParseEvent(json.RawMessage(body), slackevents.OptionNoVerifyToken())
	if err != nil {
		errutil.HandleHTTP(ctx, w, goerr.Wrap(err, "failed to parse slack event"), http.StatusBadRequest)
		return
	}

	switch eventsAPIEvent.Type {
	case slackevents.URLVerification:
		var challenge *slackevents.ChallengeResponse
		if err := json.Unmarshal(body, &challenge); err != nil {
			errutil.HandleHTTP(ctx, w, goerr.Wrap(err, "failed to unmarshal challenge"), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(challenge.Challenge)); err != nil {
			logger.Error("failed to write challenge response", "error", err)
		}

	case slackevents.CallbackEvent:
		logger.Info("processing slack callback event",
			"type", eventsAPIEvent.InnerEvent.Type,
			"team_id", eventsAPIEvent.TeamID,
		)
		if err := h.events.HandleEvent(ctx, &eventsAPIEvent); err != nil {
			errutil.HandleHTTP(ctx, w, goerr.Wrap(err, "failed to handle slack event"), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)

	default:
		logger.Warn("unknown slack event type", "type", eventsAPIEvent.Type)
		w.WriteHeader(http.StatusOK)
	}
}
