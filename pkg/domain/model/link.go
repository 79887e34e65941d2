package model

import (
	"fmt"
	"strings"
)

// BuildLink returns the deep link of a message. Every "." is dropped from ts;
// the format of ts is not validated.
func BuildLink(domain, channelID, ts string) string {
	return fmt.Sprintf("https://%s.slack.com/archives/%s/p%s", domain, channelID, strings.ReplaceAll(ts, ".", ""))
}
