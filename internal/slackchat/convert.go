package slackchat

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/slack-go/slack"

	"chatpulse/internal/pulse"
)

// convertMessage maps a Slack message onto the domain message type. The
// reaction count is the total number of reactions across all emoji, not the
// number of distinct emoji.
func convertMessage(msg *slack.Message) pulse.Message {
	total := 0
	for _, r := range msg.Reactions {
		total += r.Count
	}
	return pulse.Message{
		ID:            msg.Timestamp,
		UserID:        msg.User,
		BotID:         msg.BotID,
		SubType:       msg.SubType,
		Text:          msg.Text,
		ReactionCount: total,
		PostedAt:      parseTS(msg.Timestamp),
	}
}

// parseTS converts a Slack "seconds.microseconds" message timestamp into a
// UTC time. A malformed timestamp yields the zero time.
func parseTS(ts string) time.Time {
	secStr, fracStr, _ := strings.Cut(ts, ".")
	sec, err := strconv.ParseInt(secStr, 10, 64)
	if err != nil {
		return time.Time{}
	}
	var nsec int64
	if fracStr != "" {
		frac, err := strconv.ParseInt(fracStr, 10, 64)
		if err != nil {
			return time.Time{}
		}
		for i := len(fracStr); i < 9; i++ {
			frac *= 10
		}
		nsec = frac
	}
	return time.Unix(sec, nsec).UTC()
}

// formatTS renders a time as a Slack history boundary timestamp with
// microsecond precision.
func formatTS(t time.Time) string {
	return fmt.Sprintf("%d.%06d", t.Unix(), t.Nanosecond()/1000)
}
