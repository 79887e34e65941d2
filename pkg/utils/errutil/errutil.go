package errutil

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/getsentry/sentry-go"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/iris/pkg/utils/logging"
	"github.com/slack-go/slack"
)

// ErrorResponse is the JSON body written for every failed API request
type ErrorResponse struct {
	Success        bool   `json:"success"`
	Error          string `json:"error"`
	SlackErrorCode string `json:"slack_error_code,omitempty"`
}

// SlackErrorCode extracts the Slack Web API error string (e.g. "channel_not_found")
// from err. It returns an empty string if err did not come from a Slack API response.
func SlackErrorCode(err error) string {
	var slackErr slack.SlackErrorResponse
	if errors.As(err, &slackErr) {
		return slackErr.Err
	}
	var slackErrPtr *slack.SlackErrorResponse
	if errors.As(err, &slackErrPtr) && slackErrPtr != nil {
		return slackErrPtr.Err
	}
	return ""
}

// Handle logs the error with a message. The error is returned as-is so that
// callers can keep propagating it.
func Handle(ctx context.Context, err error, msg string) error {
	if err == nil {
		return nil
	}

	logger := logging.From(ctx)

	var ge *goerr.Error
	if errors.As(err, &ge) {
		logger.Error(msg,
			"error", err.Error(),
			"values", ge.Values(),
			"stack", ge.Stacks(),
		)
	} else {
		logger.Error(msg, "error", err.Error())
	}

	return err
}

// HandleHTTP logs the error and writes a JSON error response.
// 5xx errors are also reported to Sentry when a client is configured.
func HandleHTTP(ctx context.Context, w http.ResponseWriter, err error, statusCode int) {
	if err == nil {
		return
	}

	logger := logging.From(ctx)

	var ge *goerr.Error
	if errors.As(err, &ge) {
		logger.Error("HTTP error",
			"status", statusCode,
			"error", err.Error(),
			"values", ge.Values(),
			"stack", ge.Stacks(),
		)
	} else {
		logger.Error("HTTP error",
			"status", statusCode,
			"error", err.Error(),
		)
	}

	if statusCode >= http.StatusInternalServerError {
		report(ctx, err)
	}

	resp := ErrorResponse{
		Success:        false,
		Error:          err.Error(),
		SlackErrorCode: SlackErrorCode(err),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.Error("failed to write error response", "error", err)
	}
}

func report(ctx context.Context, err error) {
	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	if hub.Client() == nil {
		return
	}

	evID := hub.CaptureException(err)
	if evID != nil {
		logging.From(ctx).Info("error reported to sentry", "event_id", *evID)
	}
}
