package slack

import (
	"context"

	"github.com/secmon-lab/iris/pkg/domain/model"
	slackmodel "github.com/secmon-lab/iris/pkg/domain/model/slack"
	"github.com/slack-go/slack"
)

// Service is the upstream Slack Web API as seen by the gateway.
// Every method is a single call-through; nothing is retried.
type Service interface {
	// ListChannels retrieves every non-archived public and private channel visible to the token
	ListChannels(ctx context.Context) ([]*model.Channel, error)

	// ListChannelMembers retrieves the user IDs of all members of a channel
	ListChannelMembers(ctx context.Context, channelID string) ([]string, error)

	// GetUserInfo retrieves a single user (users.info)
	GetUserInfo(ctx context.Context, userID string) (*slack.User, error)

	// ListUsers retrieves every user of the workspace (users.list), deleted users included
	ListUsers(ctx context.Context) ([]slack.User, error)

	// GetConversationHistory retrieves one page of channel history
	GetConversationHistory(ctx context.Context, channelID string, filter model.HistoryFilter) (*History, error)

	// GetConversationReplies retrieves every message of a thread, root message included,
	// in the order returned by Slack
	GetConversationReplies(ctx context.Context, channelID, threadTS string) ([]*slackmodel.Message, error)

	// PostMessage posts a plain text message and returns its timestamp
	PostMessage(ctx context.Context, channelID, text string) (string, error)

	// GetTeamInfo identifies the workspace of the token (auth.test)
	GetTeamInfo(ctx context.Context) (*model.TeamInfo, error)
}

// Factory produces a Service scoped to one token. Services built for different
// tokens never share state.
type Factory interface {
	New(token string) (Service, error)
}

// History is one page of conversations.history
type History struct {
	Messages   []*slackmodel.Message
	HasMore    bool
	NextCursor string
}
