package slack

import (
	"context"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
)

// Message is a raw Slack message as returned by the upstream API.
// It is read-only; normalization never mutates it.
type Message struct {
	channelID  string
	ts         string
	threadTS   string
	teamID     string
	userID     string
	botID      string
	username   string
	text       string
	subtype    string
	replyCount int
}

// NewMessage creates a Message from a message event of the Events API.
// It returns nil for anything other than a message event callback.
func NewMessage(ctx context.Context, ev *slackevents.EventsAPIEvent) *Message {
	if ev.Type != slackevents.CallbackEvent {
		return nil
	}

	switch evt := ev.InnerEvent.Data.(type) {
	case *slackevents.MessageEvent:
		threadTS := ""
		if evt.ThreadTimeStamp != "" && evt.ThreadTimeStamp != evt.TimeStamp {
			threadTS = evt.ThreadTimeStamp
		}
		return &Message{
			channelID: evt.Channel,
			ts:        evt.TimeStamp,
			threadTS:  threadTS,
			teamID:    ev.TeamID,
			userID:    evt.User,
			botID:     evt.BotID,
			username:  evt.Username,
			text:      evt.Text,
			subtype:   evt.SubType,
		}
	default:
		return nil
	}
}

// NewMessageFromAPI converts a conversations.history / conversations.replies entry
func NewMessageFromAPI(channelID string, m slack.Message) *Message {
	channel := m.Channel
	if channel == "" {
		channel = channelID
	}
	return &Message{
		channelID:  channel,
		ts:         m.Timestamp,
		threadTS:   m.ThreadTimestamp,
		teamID:     m.Team,
		userID:     m.User,
		botID:      m.BotID,
		username:   m.Username,
		text:       m.Text,
		subtype:    m.SubType,
		replyCount: m.ReplyCount,
	}
}

// NewMessageFromData creates a Message from raw values (used by tests and fixtures)
func NewMessageFromData(channelID, ts, threadTS, userID, text, subtype string, replyCount int) *Message {
	return &Message{
		channelID:  channelID,
		ts:         ts,
		threadTS:   threadTS,
		userID:     userID,
		text:       text,
		subtype:    subtype,
		replyCount: replyCount,
	}
}

// Getters to maintain immutability
func (m *Message) ChannelID() string {
	return m.channelID
}

func (m *Message) TS() string {
	return m.ts
}

func (m *Message) ThreadTS() string {
	return m.threadTS
}

func (m *Message) TeamID() string {
	return m.teamID
}

func (m *Message) UserID() string {
	return m.userID
}

func (m *Message) BotID() string {
	return m.botID
}

func (m *Message) Username() string {
	return m.username
}

func (m *Message) Text() string {
	return m.text
}

func (m *Message) Subtype() string {
	return m.subtype
}

func (m *Message) ReplyCount() int {
	return m.replyCount
}

// HasReplies reports whether the message is the root of a thread with replies
func (m *Message) HasReplies() bool {
	return m.replyCount > 0
}
