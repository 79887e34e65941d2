package usecase

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/iris/pkg/domain/model"
	slackmodel "github.com/secmon-lab/iris/pkg/domain/model/slack"
	"github.com/secmon-lab/iris/pkg/utils/logging"
	"github.com/slack-go/slack/slackevents"
)

// EventUseCase keeps the identity cache in sync with Slack Events API callbacks
type EventUseCase struct {
	identities *IdentityCache
	lookup     UserLookup
}

// NewEventUseCase creates an EventUseCase. lookup may be nil, in which case members
// joining a channel are not resolved.
func NewEventUseCase(identities *IdentityCache, lookup UserLookup) *EventUseCase {
	return &EventUseCase{
		identities: identities,
		lookup:     lookup,
	}
}

// HandleEvent processes an event callback. Unsupported events are logged and ignored.
func (uc *EventUseCase) HandleEvent(ctx context.Context, event *slackevents.EventsAPIEvent) error {
	logger := logging.From(ctx)

	if event.Type != slackevents.CallbackEvent {
		logger.Warn("unsupported slack event type", "type", event.Type)
		return nil
	}

	switch data := event.InnerEvent.Data.(type) {
	case *slackevents.UserChangeEvent:
		profile := model.NewUserProfileFromEvent(&data.User)
		if profile.ID == "" {
			return goerr.Wrap(ErrInvalidEventPayload, "user_change without user id")
		}
		uc.identities.Put(profile)
		logger.Info("user profile updated", "user_id", profile.ID)

	case *slackevents.TeamJoinEvent:
		profile := model.NewUserProfile(data.User)
		if profile == nil || profile.ID == "" {
			return goerr.Wrap(ErrInvalidEventPayload, "team_join without user")
		}
		uc.identities.Put(profile)
		logger.Info("user joined team", "user_id", profile.ID)

	case *slackevents.MemberJoinedChannelEvent:
		if uc.lookup == nil {
			logger.Info("member joined channel, no bot token to resolve", "user_id", data.User, "channel_id", data.Channel)
			return nil
		}
		profile := uc.identities.Resolve(ctx, uc.lookup, data.User)
		logger.Info("member joined channel",
			"user_id", data.User,
			"channel_id", data.Channel,
			"resolved", !profile.IsFallback(),
		)

	case *slackevents.MessageEvent:
		msg := slackmodel.NewMessage(ctx, event)
		logger.Info("message event",
			"channel_id", msg.ChannelID(),
			"user_id", msg.UserID(),
			"ts", msg.TS(),
			"subtype", msg.Subtype(),
		)

	default:
		logger.Warn("unsupported slack event", "type", event.InnerEvent.Type)
	}

	return nil
}
