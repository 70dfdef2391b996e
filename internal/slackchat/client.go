package slackchat

import (
	"context"
	"fmt"
	"time"

	"github.com/slack-go/slack"

	"chatpulse/internal/pulse"
)

// pageSize is the per-request item limit for paginated Web API calls.
const pageSize = 200

// Client implements pulse.ChatClient on the Slack Web API. The underlying
// slack-go client handles transport-level retry and backoff.
type Client struct {
	api *slack.Client
}

// New creates a Client authenticated with the given bot token.
func New(token string) *Client {
	return &Client{api: slack.New(token)}
}

// ListPublicChannels returns the IDs of every non-archived public channel,
// following pagination cursors.
func (c *Client) ListPublicChannels(ctx context.Context) ([]string, error) {
	var ids []string
	params := &slack.GetConversationsParameters{
		Types:           []string{"public_channel"},
		ExcludeArchived: true,
		Limit:           pageSize,
	}
	for {
		channels, cursor, err := c.api.GetConversationsContext(ctx, params)
		if err != nil {
			return nil, fmt.Errorf("listing conversations: %w", err)
		}
		for _, ch := range channels {
			ids = append(ids, ch.ID)
		}
		if cursor == "" {
			return ids, nil
		}
		params.Cursor = cursor
	}
}

// EnsureJoined reports whether the bot is a member of the channel, joining
// it first when it is not. Private and archived channels cannot be joined.
func (c *Client) EnsureJoined(ctx context.Context, channelID string) (bool, error) {
	info, err := c.api.GetConversationInfoContext(ctx, &slack.GetConversationInfoInput{ChannelID: channelID})
	if err == nil && info.IsMember {
		return true, nil
	}

	if _, _, _, err := c.api.JoinConversationContext(ctx, channelID); err != nil {
		return false, fmt.Errorf("joining channel %s: %w", channelID, err)
	}
	return true, nil
}

// FetchHistory returns the channel messages posted in [oldest, latest],
// boundary timestamps included, following pagination cursors.
func (c *Client) FetchHistory(ctx context.Context, channelID string, oldest, latest time.Time) ([]pulse.Message, error) {
	var out []pulse.Message
	params := &slack.GetConversationHistoryParameters{
		ChannelID: channelID,
		Oldest:    formatTS(oldest),
		Latest:    formatTS(latest),
		Inclusive: true,
		Limit:     pageSize,
	}
	for {
		resp, err := c.api.GetConversationHistoryContext(ctx, params)
		if err != nil {
			return nil, fmt.Errorf("fetching history for %s: %w", channelID, err)
		}
		for i := range resp.Messages {
			out = append(out, convertMessage(&resp.Messages[i]))
		}
		if !resp.HasMore || resp.ResponseMetaData.NextCursor == "" {
			return out, nil
		}
		params.Cursor = resp.ResponseMetaData.NextCursor
	}
}

// LookupUserName resolves a user ID to their real name, falling back to the
// account handle when no real name is set.
func (c *Client) LookupUserName(ctx context.Context, userID string) (string, error) {
	user, err := c.api.GetUserInfoContext(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("looking up user %s: %w", userID, err)
	}
	if user.RealName != "" {
		return user.RealName, nil
	}
	return user.Name, nil
}

// GetPermalink returns a stable link to a message.
func (c *Client) GetPermalink(ctx context.Context, channelID, postID string) (string, error) {
	link, err := c.api.GetPermalinkContext(ctx, &slack.PermalinkParameters{Channel: channelID, Ts: postID})
	if err != nil {
		return "", fmt.Errorf("getting permalink for %s: %w", postID, err)
	}
	return link, nil
}

// PostMessage posts plain text to a channel.
func (c *Client) PostMessage(ctx context.Context, channelID, text string) error {
	if _, _, err := c.api.PostMessageContext(ctx, channelID, slack.MsgOptionText(text, false)); err != nil {
		return fmt.Errorf("posting message to %s: %w", channelID, err)
	}
	return nil
}

// Compile-time check that Client implements pulse.ChatClient
var _ pulse.ChatClient = (*Client)(nil)
