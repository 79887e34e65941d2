package usecase_test

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/secmon-lab/iris/pkg/domain/model"
	slackmodel "github.com/secmon-lab/iris/pkg/domain/model/slack"
	slacksvc "github.com/secmon-lab/iris/pkg/service/slack"
	"github.com/slack-go/slack"
)

// mockSlackService implements slacksvc.Service with overridable behavior
type mockSlackService struct {
	listChannelsFn       func(ctx context.Context) ([]*model.Channel, error)
	listChannelMembersFn func(ctx context.Context, channelID string) ([]string, error)
	getUserInfoFn        func(ctx context.Context, userID string) (*slack.User, error)
	listUsersFn          func(ctx context.Context) ([]slack.User, error)
	historyFn            func(ctx context.Context, channelID string, filter model.HistoryFilter) (*slacksvc.History, error)
	repliesFn            func(ctx context.Context, channelID, threadTS string) ([]*slackmodel.Message, error)
	postMessageFn        func(ctx context.Context, channelID, text string) (string, error)
	getTeamInfoFn        func(ctx context.Context) (*model.TeamInfo, error)

	userInfoCalls atomic.Int32
	teamInfoCalls atomic.Int32

	mu        sync.Mutex
	filters   []model.HistoryFilter
	postTexts []string
}

var _ slacksvc.Service = (*mockSlackService)(nil)

func (m *mockSlackService) ListChannels(ctx context.Context) ([]*model.Channel, error) {
	if m.listChannelsFn != nil {
		return m.listChannelsFn(ctx)
	}
	return nil, nil
}

func (m *mockSlackService) ListChannelMembers(ctx context.Context, channelID string) ([]string, error) {
	if m.listChannelMembersFn != nil {
		return m.listChannelMembersFn(ctx, channelID)
	}
	return nil, nil
}

func (m *mockSlackService) GetUserInfo(ctx context.Context, userID string) (*slack.User, error) {
	m.userInfoCalls.Add(1)
	if m.getUserInfoFn != nil {
		return m.getUserInfoFn(ctx, userID)
	}
	return &slack.User{ID: userID, Name: userID}, nil
}

func (m *mockSlackService) ListUsers(ctx context.Context) ([]slack.User, error) {
	if m.listUsersFn != nil {
		return m.listUsersFn(ctx)
	}
	return nil, nil
}

func (m *mockSlackService) GetConversationHistory(ctx context.Context, channelID string, filter model.HistoryFilter) (*slacksvc.History, error) {
	m.mu.Lock()
	m.filters = append(m.filters, filter)
	m.mu.Unlock()

	if m.historyFn != nil {
		return m.historyFn(ctx, channelID, filter)
	}
	return &slacksvc.History{}, nil
}

func (m *mockSlackService) GetConversationReplies(ctx context.Context, channelID, threadTS string) ([]*slackmodel.Message, error) {
	if m.repliesFn != nil {
		return m.repliesFn(ctx, channelID, threadTS)
	}
	return nil, nil
}

func (m *mockSlackService) PostMessage(ctx context.Context, channelID, text string) (string, error) {
	m.mu.Lock()
	m.postTexts = append(m.postTexts, text)
	m.mu.Unlock()

	if m.postMessageFn != nil {
		return m.postMessageFn(ctx, channelID, text)
	}
	return "1700000000.000100", nil
}

func (m *mockSlackService) GetTeamInfo(ctx context.Context) (*model.TeamInfo, error) {
	m.teamInfoCalls.Add(1)
	if m.getTeamInfoFn != nil {
		return m.getTeamInfoFn(ctx)
	}
	return &model.TeamInfo{ID: "T1", Domain: "acme"}, nil
}

// mockFactory records the tokens it was asked for
type mockFactory struct {
	mu     sync.Mutex
	tokens []string
	newFn  func(token string) (slacksvc.Service, error)
}

func (f *mockFactory) New(token string) (slacksvc.Service, error) {
	f.mu.Lock()
	f.tokens = append(f.tokens, token)
	f.mu.Unlock()

	if f.newFn != nil {
		return f.newFn(token)
	}
	return &mockSlackService{}, nil
}

func newUser(id, name, displayName, email string) *slack.User {
	return &slack.User{
		ID:       id,
		Name:     name,
		RealName: name,
		Profile: slack.UserProfile{
			DisplayName: displayName,
			Email:       email,
		},
	}
}
