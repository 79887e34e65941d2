package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/iris/pkg/domain/model"
	slackmodel "github.com/secmon-lab/iris/pkg/domain/model/slack"
	slacksvc "github.com/secmon-lab/iris/pkg/service/slack"
	"github.com/secmon-lab/iris/pkg/utils/errutil"
	"github.com/secmon-lab/iris/pkg/utils/logging"
	"golang.org/x/sync/errgroup"
)

// DefaultHistoryLimit is the conversations.history page size used when the caller gives none
const DefaultHistoryLimit = 100

// Workspace serves gateway operations for one Slack token
type Workspace struct {
	slack        slacksvc.Service
	identities   *IdentityCache
	team         *TeamResolver
	formatter    *model.Formatter
	concurrency  int
	defaultLimit int
}

// WorkspaceOption configures a Workspace
type WorkspaceOption func(*Workspace)

// WithFormatter sets the timestamp formatter of normalized messages
func WithFormatter(f *model.Formatter) WorkspaceOption {
	return func(w *Workspace) {
		w.formatter = f
	}
}

// WithConcurrency limits the number of concurrent upstream calls per fan-out.
// Zero or less means unlimited.
func WithConcurrency(n int) WorkspaceOption {
	return func(w *Workspace) {
		w.concurrency = n
	}
}

// WithDefaultLimit sets the history limit used when a filter has none
func WithDefaultLimit(n int) WorkspaceOption {
	return func(w *Workspace) {
		w.defaultLimit = n
	}
}

// WithTeamResolver replaces the resolver created from the service
func WithTeamResolver(r *TeamResolver) WorkspaceOption {
	return func(w *Workspace) {
		w.team = r
	}
}

// NewWorkspace creates a Workspace. identities is shared across workspaces; the team
// resolver belongs to this workspace unless one is given.
func NewWorkspace(svc slacksvc.Service, identities *IdentityCache, opts ...WorkspaceOption) *Workspace {
	w := &Workspace{
		slack:        svc,
		identities:   identities,
		formatter:    model.NewFormatter(model.DefaultTimeFormat, nil),
		defaultLimit: DefaultHistoryLimit,
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.team == nil {
		w.team = NewTeamResolver(svc)
	}
	if w.identities == nil {
		w.identities = NewIdentityCache()
	}
	return w
}

// Team returns the workspace identity, nil if it cannot be resolved
func (w *Workspace) Team(ctx context.Context) *model.TeamInfo {
	return w.team.Get(ctx)
}

// newGroup returns a fan-out group. Tasks never return errors: failures are
// recorded in the results so that siblings keep running.
func (w *Workspace) newGroup() *errgroup.Group {
	eg := &errgroup.Group{}
	if w.concurrency > 0 {
		eg.SetLimit(w.concurrency)
	}
	return eg
}

// Normalize reshapes a raw message: the author is resolved through the identity cache,
// the timestamp is formatted and the permalink is built from domain. raw is not modified.
func (w *Workspace) Normalize(ctx context.Context, raw *slackmodel.Message, channelID, domain string) *model.NormalizedMessage {
	var author *model.UserProfile
	if raw.UserID() == "" && (raw.BotID() != "" || raw.Username() != "") {
		author = model.NewBotProfile(raw.BotID(), raw.Username())
	} else {
		author = w.identities.Resolve(ctx, w.slack, raw.UserID())
	}

	text := raw.Text()
	if raw.Subtype() == model.ChannelJoinSubtype {
		text = fmt.Sprintf("%s has joined the channel", author.DisplayName)
	}

	return &model.NormalizedMessage{
		User:      author,
		Text:      text,
		Timestamp: w.formatter.Format(raw.TS()),
		TS:        raw.TS(),
		Subtype:   raw.Subtype(),
		Link:      model.BuildLink(domain, channelID, raw.TS()),
		Replies:   []*model.NormalizedMessage{},
	}
}

// normalizeAll normalizes msgs concurrently and keeps their order. Threads are
// flattened for messages with replies when withReplies is set.
func (w *Workspace) normalizeAll(ctx context.Context, msgs []*slackmodel.Message, channelID, domain string, withReplies bool) []*model.NormalizedMessage {
	results := make([]*model.NormalizedMessage, len(msgs))

	eg := w.newGroup()
	for i, raw := range msgs {
		eg.Go(func() error {
			msg := w.Normalize(ctx, raw, channelID, domain)
			if withReplies && raw.HasReplies() {
				replies := w.flattenThread(ctx, channelID, raw.TS(), domain)
				if replies.Degraded {
					msg.ReplyError = replies.Reason
				} else {
					msg.Replies = replies.Messages
				}
			}
			results[i] = msg
			return nil
		})
	}
	_ = eg.Wait()

	return results
}

// FlattenThread returns the normalized replies of the thread rooted at parentTS,
// root message excluded. An upstream failure degrades the result instead of failing.
func (w *Workspace) FlattenThread(ctx context.Context, channelID, parentTS string) model.Replies {
	return w.flattenThread(ctx, channelID, parentTS, model.DomainOf(w.team.Get(ctx)))
}

func (w *Workspace) flattenThread(ctx context.Context, channelID, parentTS, domain string) model.Replies {
	msgs, err := w.slack.GetConversationReplies(ctx, channelID, parentTS)
	if err != nil {
		logging.From(ctx).Warn("failed to fetch thread replies",
			"channel_id", channelID,
			"thread_ts", parentTS,
			"error", err.Error(),
		)
		return model.Replies{
			Messages: []*model.NormalizedMessage{},
			Degraded: true,
			Reason:   err.Error(),
		}
	}

	replies := make([]*slackmodel.Message, 0, len(msgs))
	for _, msg := range msgs {
		if msg.TS() == parentTS {
			continue
		}
		replies = append(replies, msg)
	}

	return model.Replies{
		Messages: w.normalizeAll(ctx, replies, channelID, domain, false),
	}
}

// CrawlChannel fetches and normalizes one page of a channel's history
func (w *Workspace) CrawlChannel(ctx context.Context, channelID string, filter model.HistoryFilter) (*model.ChannelMessages, error) {
	return w.crawlChannel(ctx, channelID, filter, model.DomainOf(w.team.Get(ctx)))
}

func (w *Workspace) crawlChannel(ctx context.Context, channelID string, filter model.HistoryFilter, domain string) (*model.ChannelMessages, error) {
	if filter.Limit <= 0 {
		filter.Limit = w.defaultLimit
	}

	history, err := w.slack.GetConversationHistory(ctx, channelID, filter)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to crawl channel", goerr.V(ChannelIDKey, channelID))
	}

	return &model.ChannelMessages{
		ChannelID:  channelID,
		Messages:   w.normalizeAll(ctx, history.Messages, channelID, domain, true),
		HasMore:    history.HasMore,
		NextCursor: history.NextCursor,
	}, nil
}

// Crawl crawls every channel concurrently. The result has one entry per channel in
// input order; a failing channel yields an entry with an error and no messages
// without affecting the others.
func (w *Workspace) Crawl(ctx context.Context, channelIDs []string, filter model.HistoryFilter) []*model.ChannelMessages {
	domain := model.DomainOf(w.team.Get(ctx))
	results := make([]*model.ChannelMessages, len(channelIDs))

	eg := w.newGroup()
	for i, channelID := range channelIDs {
		eg.Go(func() error {
			result, err := w.crawlChannel(ctx, channelID, filter, domain)
			if err != nil {
				errutil.Handle(ctx, err, "channel crawl failed")
				result = &model.ChannelMessages{
					ChannelID:      channelID,
					Messages:       []*model.NormalizedMessage{},
					Error:          err.Error(),
					SlackErrorCode: errutil.SlackErrorCode(err),
				}
			}
			results[i] = result
			return nil
		})
	}
	_ = eg.Wait()

	return results
}

// ListChannels returns every channel visible to the token
func (w *Workspace) ListChannels(ctx context.Context) ([]*model.Channel, error) {
	channels, err := w.slack.ListChannels(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list channels")
	}
	return channels, nil
}

// ListChannelMembers returns the profiles of a channel's members in membership order
func (w *Workspace) ListChannelMembers(ctx context.Context, channelID string) ([]*model.UserProfile, error) {
	memberIDs, err := w.slack.ListChannelMembers(ctx, channelID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list channel members", goerr.V(ChannelIDKey, channelID))
	}

	profiles := make([]*model.UserProfile, len(memberIDs))
	eg := w.newGroup()
	for i, userID := range memberIDs {
		eg.Go(func() error {
			profiles[i] = w.identities.Resolve(ctx, w.slack, userID)
			return nil
		})
	}
	_ = eg.Wait()

	return profiles, nil
}

// SearchUsers lists the workspace users, refreshes the identity cache with them and
// returns those matching every given criterion. email matches the email address and
// name matches any of the name fields, both as case-insensitive substrings. Deleted
// users are skipped.
func (w *Workspace) SearchUsers(ctx context.Context, email, name string) ([]*model.UserProfile, error) {
	users, err := w.slack.ListUsers(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list users")
	}

	email = strings.ToLower(email)
	name = strings.ToLower(name)

	matched := make([]*model.UserProfile, 0, len(users))
	for i := range users {
		if users[i].Deleted {
			continue
		}

		profile := model.NewUserProfile(&users[i])
		w.identities.Put(profile)

		if email != "" && !strings.Contains(strings.ToLower(profile.EmailAddress()), email) {
			continue
		}
		if name != "" && !matchName(profile, name) {
			continue
		}
		matched = append(matched, profile)
	}

	return matched, nil
}

func matchName(p *model.UserProfile, name string) bool {
	for _, field := range []string{p.Name, p.RealName, p.DisplayName} {
		if strings.Contains(strings.ToLower(field), name) {
			return true
		}
	}
	return false
}

// SendMessage posts text to a channel and returns the message timestamp
func (w *Workspace) SendMessage(ctx context.Context, channelID, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", goerr.Wrap(ErrTextRequired, "cannot send empty message", goerr.V(ChannelIDKey, channelID))
	}

	ts, err := w.slack.PostMessage(ctx, channelID, text)
	if err != nil {
		return "", goerr.Wrap(err, "failed to send message", goerr.V(ChannelIDKey, channelID))
	}

	logging.From(ctx).Info("message sent", "channel_id", channelID, "ts", ts)
	return ts, nil
}
