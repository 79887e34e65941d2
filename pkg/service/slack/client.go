package slack

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/iris/pkg/domain/model"
	slackmodel "github.com/secmon-lab/iris/pkg/domain/model/slack"
	"github.com/slack-go/slack"
)

const (
	// DefaultPageSize is the page size used for cursor-paginated list methods
	DefaultPageSize = 200
)

// client implements Service interface
type client struct {
	api      *slack.Client
	pageSize int
}

type config struct {
	apiURL     string
	httpClient *http.Client
	pageSize   int
}

// Option is a functional option for client configuration
type Option func(*config)

// WithAPIURL overrides the Slack Web API base URL (e.g. for a proxy or a test server).
// A trailing slash is added if missing.
func WithAPIURL(apiURL string) Option {
	return func(c *config) {
		if apiURL != "" && !strings.HasSuffix(apiURL, "/") {
			apiURL += "/"
		}
		c.apiURL = apiURL
	}
}

// WithHTTPClient sets the HTTP client used for upstream calls
func WithHTTPClient(hc *http.Client) Option {
	return func(c *config) {
		c.httpClient = hc
	}
}

// WithPageSize sets the page size for paginated list methods
func WithPageSize(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

func newConfig(opts []Option) *config {
	cfg := &config{pageSize: DefaultPageSize}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// New creates a new Slack service with the provided bot token
func New(token string, opts ...Option) (Service, error) {
	return newClient(token, newConfig(opts))
}

func newClient(token string, cfg *config) (*client, error) {
	if token == "" {
		return nil, goerr.New("Slack token is required")
	}

	var slackOpts []slack.Option
	if cfg.apiURL != "" {
		slackOpts = append(slackOpts, slack.OptionAPIURL(cfg.apiURL))
	}
	if cfg.httpClient != nil {
		slackOpts = append(slackOpts, slack.OptionHTTPClient(cfg.httpClient))
	}

	return &client{
		api:      slack.New(token, slackOpts...),
		pageSize: cfg.pageSize,
	}, nil
}

// factory builds a fresh client for every token
type factory struct {
	cfg *config
}

// NewFactory returns a Factory applying opts to every client it creates
func NewFactory(opts ...Option) Factory {
	return &factory{cfg: newConfig(opts)}
}

func (f *factory) New(token string) (Service, error) {
	return newClient(token, f.cfg)
}

// ListChannels retrieves every non-archived public and private channel visible to the token
func (c *client) ListChannels(ctx context.Context) ([]*model.Channel, error) {
	var channels []*model.Channel
	var cursor string

	for {
		params := &slack.GetConversationsParameters{
			Types:           []string{"public_channel", "private_channel"},
			ExcludeArchived: true,
			Limit:           c.pageSize,
			Cursor:          cursor,
		}

		convs, nextCursor, err := c.api.GetConversationsContext(ctx, params)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to get conversations")
		}

		for _, conv := range convs {
			channels = append(channels, &model.Channel{
				ID:   conv.ID,
				Name: conv.Name,
			})
		}

		if nextCursor == "" {
			break
		}
		cursor = nextCursor
	}

	return channels, nil
}

// ListChannelMembers retrieves the user IDs of all members of a channel
func (c *client) ListChannelMembers(ctx context.Context, channelID string) ([]string, error) {
	var members []string
	var cursor string

	for {
		ids, nextCursor, err := c.api.GetUsersInConversationContext(ctx, &slack.GetUsersInConversationParameters{
			ChannelID: channelID,
			Cursor:    cursor,
			Limit:     c.pageSize,
		})
		if err != nil {
			return nil, goerr.Wrap(err, "failed to get conversation members", goerr.V("channel_id", channelID))
		}

		members = append(members, ids...)

		if nextCursor == "" {
			break
		}
		cursor = nextCursor
	}

	return members, nil
}

// GetUserInfo retrieves user information for the given user ID
func (c *client) GetUserInfo(ctx context.Context, userID string) (*slack.User, error) {
	user, err := c.api.GetUserInfoContext(ctx, userID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get user info", goerr.V("user_id", userID))
	}
	return user, nil
}

// ListUsers retrieves every user of the workspace
func (c *client) ListUsers(ctx context.Context) ([]slack.User, error) {
	users, err := c.api.GetUsersContext(ctx, slack.GetUsersOptionLimit(c.pageSize))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list users")
	}
	return users, nil
}

// GetConversationHistory retrieves one page of channel history
func (c *client) GetConversationHistory(ctx context.Context, channelID string, filter model.HistoryFilter) (*History, error) {
	resp, err := c.api.GetConversationHistoryContext(ctx, &slack.GetConversationHistoryParameters{
		ChannelID: channelID,
		Cursor:    filter.Cursor,
		Inclusive: filter.Inclusive,
		Latest:    filter.Latest,
		Limit:     filter.Limit,
		Oldest:    filter.Oldest,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get conversation history", goerr.V("channel_id", channelID))
	}

	history := &History{
		Messages:   make([]*slackmodel.Message, len(resp.Messages)),
		HasMore:    resp.HasMore,
		NextCursor: resp.ResponseMetaData.NextCursor,
	}
	for i, m := range resp.Messages {
		history.Messages[i] = slackmodel.NewMessageFromAPI(channelID, m)
	}

	return history, nil
}

// GetConversationReplies retrieves every page of a thread
func (c *client) GetConversationReplies(ctx context.Context, channelID, threadTS string) ([]*slackmodel.Message, error) {
	var messages []*slackmodel.Message
	var cursor string

	for {
		msgs, hasMore, nextCursor, err := c.api.GetConversationRepliesContext(ctx, &slack.GetConversationRepliesParameters{
			ChannelID: channelID,
			Timestamp: threadTS,
			Cursor:    cursor,
			Limit:     c.pageSize,
		})
		if err != nil {
			return nil, goerr.Wrap(err, "failed to get conversation replies",
				goerr.V("channel_id", channelID),
				goerr.V("thread_ts", threadTS),
			)
		}

		for _, m := range msgs {
			messages = append(messages, slackmodel.NewMessageFromAPI(channelID, m))
		}

		if !hasMore || nextCursor == "" {
			break
		}
		cursor = nextCursor
	}

	return messages, nil
}

// PostMessage posts a plain text message and returns its timestamp
func (c *client) PostMessage(ctx context.Context, channelID, text string) (string, error) {
	_, ts, err := c.api.PostMessageContext(ctx, channelID, slack.MsgOptionText(text, false))
	if err != nil {
		return "", goerr.Wrap(err, "failed to post message", goerr.V("channel_id", channelID))
	}
	return ts, nil
}

// GetTeamInfo identifies the workspace of the token through auth.test
func (c *client) GetTeamInfo(ctx context.Context) (*model.TeamInfo, error) {
	resp, err := c.api.AuthTestContext(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to call auth.test")
	}

	domain, err := DomainFromURL(resp.URL)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to resolve team domain", goerr.V("team_id", resp.TeamID))
	}

	return &model.TeamInfo{
		ID:     resp.TeamID,
		Domain: domain,
	}, nil
}

// DomainFromURL extracts the workspace domain from a team URL
// ("https://acme.slack.com/" -> "acme", "https://acme.enterprise.slack.com/" -> "acme.enterprise")
func DomainFromURL(teamURL string) (string, error) {
	u, err := url.Parse(teamURL)
	if err != nil {
		return "", goerr.Wrap(err, "invalid team URL", goerr.V("url", teamURL))
	}

	host := u.Hostname()
	domain, ok := strings.CutSuffix(host, ".slack.com")
	if !ok || domain == "" {
		return "", goerr.New("unexpected team URL", goerr.V("url", teamURL))
	}

	return domain, nil
}
