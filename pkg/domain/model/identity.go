package model

import (
	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
)

// UnknownUserName is used for every name field of a fallback profile
const UnknownUserName = "Unknown"

// UserProfile is the normalized view of a Slack user exposed by the gateway
type UserProfile struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	RealName    string  `json:"real_name"`
	DisplayName string  `json:"display_name"`
	Email       *string `json:"email"`
	Avatar      *string `json:"avatar"`
	IsBot       bool    `json:"is_bot"`
	IsAdmin     bool    `json:"is_admin"`
	TeamID      string  `json:"team_id"`
}

// NewUserProfile builds a profile from a users.info / users.list payload
func NewUserProfile(u *slack.User) *UserProfile {
	if u == nil {
		return nil
	}

	return &UserProfile{
		ID:          u.ID,
		Name:        u.Name,
		RealName:    u.RealName,
		DisplayName: displayName(u.Profile.DisplayName, u.RealName, u.Profile.RealName, u.Name),
		Email:       optional(u.Profile.Email),
		Avatar:      optional(avatar(u.Profile.Image72, u.Profile.Image48, u.Profile.Image192)),
		IsBot:       u.IsBot,
		IsAdmin:     u.IsAdmin,
		TeamID:      u.TeamID,
	}
}

// NewUserProfileFromEvent builds a profile from the user payload of a user_change event.
// user_change carries its own user type without an email field.
func NewUserProfileFromEvent(u *slackevents.User) *UserProfile {
	if u == nil {
		return nil
	}

	return &UserProfile{
		ID:          u.ID,
		Name:        u.Name,
		RealName:    u.RealName,
		DisplayName: displayName(u.Profile.DisplayName, u.RealName, u.Profile.RealName, u.Name),
		Avatar:      optional(avatar(u.Profile.Image72, u.Profile.Image48, u.Profile.Image192)),
		IsBot:       u.IsBot,
		IsAdmin:     u.IsAdmin,
		TeamID:      u.TeamID,
	}
}

// NewBotProfile synthesizes a profile for messages posted without a user ID (bot and
// integration posts). No upstream lookup is involved.
func NewBotProfile(botID, username string) *UserProfile {
	name := username
	if name == "" {
		name = botID
	}
	if name == "" {
		return NewFallbackProfile("")
	}

	return &UserProfile{
		ID:          botID,
		Name:        name,
		RealName:    name,
		DisplayName: name,
		IsBot:       true,
	}
}

// NewFallbackProfile returns the placeholder used when a user cannot be resolved
func NewFallbackProfile(userID string) *UserProfile {
	return &UserProfile{
		ID:          userID,
		Name:        UnknownUserName,
		RealName:    UnknownUserName,
		DisplayName: UnknownUserName,
	}
}

// IsFallback reports whether p is a placeholder built by NewFallbackProfile
func (p *UserProfile) IsFallback() bool {
	return p != nil && p.Name == UnknownUserName && p.RealName == UnknownUserName &&
		p.DisplayName == UnknownUserName && p.Email == nil && p.Avatar == nil
}

// EmailAddress returns the email or an empty string when it is not set
func (p *UserProfile) EmailAddress() string {
	if p == nil || p.Email == nil {
		return ""
	}
	return *p.Email
}

// TeamInfo identifies the workspace the gateway talks to
type TeamInfo struct {
	ID     string `json:"id"`
	Domain string `json:"domain"`
}

// DomainOf returns the team domain, or an empty string for a nil team.
// An empty domain produces a degenerate but well-formed link.
func DomainOf(t *TeamInfo) string {
	if t == nil {
		return ""
	}
	return t.Domain
}

func displayName(candidates ...string) string {
	for _, c := range candidates {
		if c != "" {
			return c
		}
	}
	return UnknownUserName
}

func avatar(candidates ...string) string {
	for _, c := range candidates {
		if c != "" {
			return c
		}
	}
	return ""
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
