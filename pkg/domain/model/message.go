package model

import "fmt"

// ChannelJoinSubtype is the message subtype Slack posts when a user joins a channel
const ChannelJoinSubtype = "channel_join"

// NormalizedMessage is a message reshaped for the downstream consumer
type NormalizedMessage struct {
	User      *UserProfile         `json:"user"`
	Text      string               `json:"text"`
	Timestamp string               `json:"timestamp"`
	TS        string               `json:"ts"`
	Subtype   string               `json:"subtype,omitempty"`
	Link      string               `json:"link"`
	Replies   []*NormalizedMessage `json:"replies"`

	// ReplyError is set when the thread of this message could not be fetched
	ReplyError string `json:"reply_error,omitempty"`
}

// Line renders the message as a single display line
func (m *NormalizedMessage) Line() string {
	name := UnknownUserName
	if m.User != nil {
		name = m.User.DisplayName
	}
	return fmt.Sprintf("[%s] %s: %s", m.Timestamp, name, m.Text)
}

// Lines renders the message followed by its replies, replies indented
func (m *NormalizedMessage) Lines() []string {
	lines := make([]string, 0, 1+len(m.Replies))
	lines = append(lines, m.Line())
	for _, reply := range m.Replies {
		lines = append(lines, "    "+reply.Line())
	}
	return lines
}

// Replies is the outcome of flattening a thread. Degraded distinguishes
// "thread fetch failed" from "no replies"; Messages is empty when degraded.
type Replies struct {
	Messages []*NormalizedMessage
	Degraded bool
	Reason   string
}

// HistoryFilter carries the conversations.history query options
type HistoryFilter struct {
	Limit     int
	Oldest    string
	Latest    string
	Inclusive bool
	Cursor    string
}

// ChannelMessages is the crawl result of a single channel. A failed channel has
// an empty Messages slice and Error set.
type ChannelMessages struct {
	ChannelID      string               `json:"channel"`
	Messages       []*NormalizedMessage `json:"messages"`
	Error          string               `json:"error,omitempty"`
	SlackErrorCode string               `json:"slack_error_code,omitempty"`
	HasMore        bool                 `json:"has_more"`
	NextCursor     string               `json:"next_cursor,omitempty"`
}

// Failed reports whether the channel could not be crawled
func (c *ChannelMessages) Failed() bool {
	return c.Error != ""
}

// Lines renders every message of the channel, replies included
func (c *ChannelMessages) Lines() []string {
	lines := make([]string, 0, len(c.Messages))
	for _, msg := range c.Messages {
		lines = append(lines, msg.Lines()...)
	}
	return lines
}

// Channel is a conversation visible to the token
type Channel struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
