package pulse

import (
	"context"
	"time"
)

// Message is one channel message as delivered by the chat platform.
type Message struct {
	ID            string // platform message identifier (channel-scoped timestamp)
	UserID        string // empty for system messages without an author
	BotID         string
	SubType       string
	Text          string
	ReactionCount int
	PostedAt      time.Time
}

// ChatClient is the chat-platform capability the batch depends on.
// Implementations carry their own retry/backoff behavior. Callers treat any
// error as a degraded result: log it and continue with the zero value.
type ChatClient interface {
	// ListPublicChannels returns the IDs of all public channels.
	ListPublicChannels(ctx context.Context) ([]string, error)

	// EnsureJoined joins the channel if the bot is not already a member.
	// Returns false when the channel cannot be read (private, archived).
	EnsureJoined(ctx context.Context, channelID string) (bool, error)

	// FetchHistory returns the channel messages posted in [oldest, latest],
	// boundary timestamps included.
	FetchHistory(ctx context.Context, channelID string, oldest, latest time.Time) ([]Message, error)

	// LookupUserName resolves a user ID to a display name.
	LookupUserName(ctx context.Context, userID string) (string, error)

	// GetPermalink returns a stable link to a message.
	GetPermalink(ctx context.Context, channelID, postID string) (string, error)

	// PostMessage posts text to a channel.
	PostMessage(ctx context.Context, channelID, text string) error
}
