package usecase

import "errors"

// Sentinel errors for use case layer
var (
	// Request errors
	ErrTokenRequired    = errors.New("token is required")
	ErrTextRequired     = errors.New("text is required")
	ErrChannelsRequired = errors.New("channels is required")

	// Event errors
	ErrInvalidEventPayload = errors.New("invalid event payload")
)

// Context keys for error values
const (
	ChannelIDKey = "channel_id"
	UserIDKey    = "user_id"
)
