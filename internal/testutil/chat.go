package testutil

import (
	"context"
	"fmt"
	"time"

	"chatpulse/internal/pulse"
)

// PostedMessage records a message the fake client was asked to post.
type PostedMessage struct {
	ChannelID string
	Text      string
}

// FakeChatClient is an in-memory ChatClient. Populate the maps before the
// run, then inspect Posted and the call counters afterwards. Error knobs
// force individual operations to fail.
type FakeChatClient struct {
	Channels   []string                    // returned by ListPublicChannels
	Members    map[string]bool             // channel membership; unknown channels are members
	History    map[string][]pulse.Message  // per-channel messages
	Names      map[string]string           // user ID to display name
	Permalinks map[string]string           // post ID to permalink
	Posted     []PostedMessage

	ListErr    error
	JoinErrs   map[string]error // per-channel EnsureJoined failures
	HistoryErr error            // fails every FetchHistory call
	LookupErr  error            // fails every LookupUserName call
	PostErr    error            // fails every PostMessage call

	LookupCalls map[string]int // LookupUserName invocations per user
}

// NewFakeChatClient creates an empty fake ready to be populated.
func NewFakeChatClient() *FakeChatClient {
	return &FakeChatClient{
		Members:     make(map[string]bool),
		History:     make(map[string][]pulse.Message),
		Names:       make(map[string]string),
		Permalinks:  make(map[string]string),
		JoinErrs:    make(map[string]error),
		LookupCalls: make(map[string]int),
	}
}

func (f *FakeChatClient) ListPublicChannels(context.Context) ([]string, error) {
	if f.ListErr != nil {
		return nil, f.ListErr
	}
	return f.Channels, nil
}

func (f *FakeChatClient) EnsureJoined(_ context.Context, channelID string) (bool, error) {
	if err := f.JoinErrs[channelID]; err != nil {
		return false, err
	}
	if member, ok := f.Members[channelID]; ok {
		return member, nil
	}
	return true, nil
}

func (f *FakeChatClient) FetchHistory(_ context.Context, channelID string, oldest, latest time.Time) ([]pulse.Message, error) {
	if f.HistoryErr != nil {
		return nil, f.HistoryErr
	}
	var out []pulse.Message
	for _, m := range f.History[channelID] {
		if m.PostedAt.Before(oldest) || m.PostedAt.After(latest) {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

func (f *FakeChatClient) LookupUserName(_ context.Context, userID string) (string, error) {
	f.LookupCalls[userID]++
	if f.LookupErr != nil {
		return "", f.LookupErr
	}
	name, ok := f.Names[userID]
	if !ok {
		return "", fmt.Errorf("unknown user: %s", userID)
	}
	return name, nil
}

func (f *FakeChatClient) GetPermalink(_ context.Context, channelID, postID string) (string, error) {
	if link, ok := f.Permalinks[postID]; ok {
		return link, nil
	}
	return fmt.Sprintf("https://example.slack.com/archives/%s/p%s", channelID, postID), nil
}

func (f *FakeChatClient) PostMessage(_ context.Context, channelID, text string) error {
	if f.PostErr != nil {
		return f.PostErr
	}
	f.Posted = append(f.Posted, PostedMessage{ChannelID: channelID, Text: text})
	return nil
}

// PostedTo returns the messages posted to a single channel.
func (f *FakeChatClient) PostedTo(channelID string) []PostedMessage {
	var out []PostedMessage
	for _, p := range f.Posted {
		if p.ChannelID == channelID {
			out = append(out, p)
		}
	}
	return out
}

// Compile-time check that FakeChatClient implements pulse.ChatClient
var _ pulse.ChatClient = (*FakeChatClient)(nil)
