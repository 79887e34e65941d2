package usecase

import (
	"github.com/m-mizutani/goerr/v2"
	slacksvc "github.com/secmon-lab/iris/pkg/service/slack"
)

type UseCases struct {
	identities *IdentityCache
	factory    slacksvc.Factory
	botService slacksvc.Service
	bot        *Workspace
	wsOpts     []WorkspaceOption
	Event      *EventUseCase
}

type Option func(*UseCases)

// WithBotService sets the service of the server's own token, used when a request
// carries no token of its own
func WithBotService(svc slacksvc.Service) Option {
	return func(uc *UseCases) {
		uc.botService = svc
	}
}

// WithFactory sets the factory building services for request tokens
func WithFactory(f slacksvc.Factory) Option {
	return func(uc *UseCases) {
		uc.factory = f
	}
}

// WithWorkspaceOptions applies opts to every Workspace built by the use cases
func WithWorkspaceOptions(opts ...WorkspaceOption) Option {
	return func(uc *UseCases) {
		uc.wsOpts = append(uc.wsOpts, opts...)
	}
}

// WithIdentityCache replaces the process-wide identity cache
func WithIdentityCache(c *IdentityCache) Option {
	return func(uc *UseCases) {
		uc.identities = c
	}
}

func New(opts ...Option) *UseCases {
	uc := &UseCases{
		identities: NewIdentityCache(),
		factory:    slacksvc.NewFactory(),
	}

	for _, opt := range opts {
		opt(uc)
	}

	if uc.botService != nil {
		uc.bot = NewWorkspace(uc.botService, uc.identities, uc.wsOpts...)
	}

	var lookup UserLookup
	if uc.botService != nil {
		lookup = uc.botService
	}
	uc.Event = NewEventUseCase(uc.identities, lookup)

	return uc
}

// Identities returns the process-wide identity cache
func (uc *UseCases) Identities() *IdentityCache {
	return uc.identities
}

// Workspace returns the workspace for a request. A non-empty token gets a freshly
// built workspace that is not shared with other requests; otherwise the bot
// workspace is used. ErrTokenRequired is returned when neither is available.
func (uc *UseCases) Workspace(token string) (*Workspace, error) {
	if token == "" {
		if uc.bot == nil {
			return nil, ErrTokenRequired
		}
		return uc.bot, nil
	}

	svc, err := uc.factory.New(token)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create slack service for request token")
	}
	return NewWorkspace(svc, uc.identities, uc.wsOpts...), nil
}
