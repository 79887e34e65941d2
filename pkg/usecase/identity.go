package usecase

import (
	"context"
	"fmt"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/iris/pkg/domain/model"
	"github.com/secmon-lab/iris/pkg/utils/logging"
	"github.com/slack-go/slack"
	"golang.org/x/sync/singleflight"
)

// UserLookup fetches a single user from Slack (users.info)
type UserLookup interface {
	GetUserInfo(ctx context.Context, userID string) (*slack.User, error)
}

// IdentityCache maps user IDs to profiles for the lifetime of the process.
// Entries are never evicted. Fallback profiles of failed lookups are not stored,
// so a later request retries the lookup.
type IdentityCache struct {
	mu       sync.RWMutex
	profiles map[string]*model.UserProfile
	group    singleflight.Group
}

// NewIdentityCache creates an empty IdentityCache
func NewIdentityCache() *IdentityCache {
	return &IdentityCache{
		profiles: make(map[string]*model.UserProfile),
	}
}

// Resolve returns the cached profile of userID, fetching it through lookup on a miss.
// Concurrent misses for the same ID through the same lookup share one upstream call,
// which runs detached from any single caller's cancellation. Resolve never fails:
// any lookup error or a cancelled ctx yields a fallback profile.
func (c *IdentityCache) Resolve(ctx context.Context, lookup UserLookup, userID string) *model.UserProfile {
	if profile, ok := c.Get(userID); ok {
		return profile
	}
	if userID == "" || lookup == nil {
		return model.NewFallbackProfile(userID)
	}

	flightCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(flightKey(lookup, userID), func() (any, error) {
		// Another flight may have stored it between Get and DoChan
		if profile, ok := c.Get(userID); ok {
			return profile, nil
		}

		user, err := lookup.GetUserInfo(flightCtx, userID)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to look up user", goerr.V(UserIDKey, userID))
		}
		profile := model.NewUserProfile(user)
		if profile == nil {
			return nil, goerr.New("empty user info", goerr.V(UserIDKey, userID))
		}

		c.Put(profile)
		return profile, nil
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		res.Err = goerr.Wrap(ctx.Err(), "user lookup abandoned", goerr.V(UserIDKey, userID))
	}
	if res.Err != nil {
		logging.From(ctx).Warn("failed to resolve user, using fallback profile",
			"user_id", userID,
			"error", res.Err.Error(),
		)
		return model.NewFallbackProfile(userID)
	}

	return res.Val.(*model.UserProfile)
}

// flightKey scopes in-flight lookups to the credential behind lookup so that one
// token's failure is never handed to callers using another token.
func flightKey(lookup UserLookup, userID string) string {
	return fmt.Sprintf("%p/%s", lookup, userID)
}

// Put stores profile, replacing any existing entry for the same ID
func (c *IdentityCache) Put(profile *model.UserProfile) {
	if profile == nil || profile.ID == "" {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.profiles[profile.ID] = profile
}

// Get returns the cached profile without fetching
func (c *IdentityCache) Get(userID string) (*model.UserProfile, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	profile, ok := c.profiles[userID]
	return profile, ok
}

// Len returns the number of cached profiles
func (c *IdentityCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.profiles)
}
