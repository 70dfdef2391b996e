package pulse_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"chatpulse/internal/archive"
	"chatpulse/internal/pulse"
	"chatpulse/internal/testutil"
)

const (
	adminChannel   = "C-ADMIN"
	rankingChannel = "C-RANKING"
)

func testParams() pulse.Params {
	return pulse.Params{
		AnchorHour:       3,
		Location:         time.UTC,
		SkipBots:         true,
		SkipSubtypes:     []string{"channel_join"},
		Weights:          pulse.DefaultWeights(),
		RankingLimit:     20,
		AdminChannelID:   adminChannel,
		RankingChannelID: rankingChannel,
	}
}

// newTestService assembles a BatchService over in-memory collaborators.
// The fixed clock places the window at [2024-01-14 03:00, 2024-01-15 03:00] UTC.
func newTestService(t *testing.T, chat *testutil.FakeChatClient, classifier *testutil.FakeClassifier, params pulse.Params) (*pulse.BatchService, pulse.Store) {
	t.Helper()
	st := testutil.NewTestStore(t)
	svc := pulse.NewBatchService(st, chat, classifier, nil, pulse.NewNopLogger(), testutil.FixedClock(), pulse.NopThrottles(), params)
	return svc, st
}

func inWindow(hoursAfterStart int) time.Time {
	start := time.Date(2024, 1, 14, 3, 0, 0, 0, time.UTC)
	return start.Add(time.Duration(hoursAfterStart) * time.Hour)
}

func TestRunDaily(t *testing.T) {
	t.Run("full pipeline scores, notifies and publishes", func(t *testing.T) {
		chat := testutil.NewFakeChatClient()
		chat.Channels = []string{"C1"}
		chat.Names["U1"] = "Alice"
		chat.Names["U2"] = "Bob"
		chat.Permalinks["3.000000"] = "https://example.com/p3"
		chat.History["C1"] = []pulse.Message{
			{ID: "1.000000", UserID: "U1", Text: "great work", ReactionCount: 1, PostedAt: inWindow(1)},
			{ID: "2.000000", UserID: "U1", Text: "here is the fix", ReactionCount: 1, PostedAt: inWindow(2)},
			{ID: "3.000000", UserID: "U2", Text: "something rude", PostedAt: inWindow(3)},
		}

		classifier := testutil.NewFakeClassifier()
		classifier.Results["great work"] = pulse.Classification{IsPositive: true}
		classifier.Results["something rude"] = pulse.Classification{IsViolation: true, ViolationReason: "harassment"}

		svc, st := newTestService(t, chat, classifier, testParams())

		summary, err := svc.RunDaily(context.Background())
		if err != nil {
			t.Fatalf("RunDaily: %v", err)
		}

		if summary.PostsProcessed != 3 {
			t.Errorf("posts processed = %d, want 3", summary.PostsProcessed)
		}
		if summary.ViolationsNotified != 1 {
			t.Errorf("violations notified = %d, want 1", summary.ViolationsNotified)
		}
		if !summary.RankingPublished {
			t.Error("expected ranking to be published")
		}

		// Alice: 2 posts + 2 reactions*2 + 1 positive*3 = 9.
		alice, err := st.GetUser("U1")
		if err != nil {
			t.Fatalf("GetUser: %v", err)
		}
		if alice == nil || alice.ContributionScore != 9 {
			t.Errorf("alice score = %+v, want 9", alice)
		}

		// Bob: 1 post = 1. Violations still count as posts.
		bob, err := st.GetUser("U2")
		if err != nil {
			t.Fatalf("GetUser: %v", err)
		}
		if bob == nil || bob.ContributionScore != 1 {
			t.Errorf("bob score = %+v, want 1", bob)
		}

		notices := chat.PostedTo(adminChannel)
		if len(notices) != 1 {
			t.Fatalf("admin notices = %d, want 1", len(notices))
		}
		if !strings.Contains(notices[0].Text, "Author: Bob") {
			t.Errorf("notice missing author:\n%s", notices[0].Text)
		}
		if !strings.Contains(notices[0].Text, "Reason: harassment") {
			t.Errorf("notice missing reason:\n%s", notices[0].Text)
		}
		if !strings.Contains(notices[0].Text, "https://example.com/p3") {
			t.Errorf("notice missing permalink:\n%s", notices[0].Text)
		}

		ranking := chat.PostedTo(rankingChannel)
		if len(ranking) != 1 {
			t.Fatalf("ranking posts = %d, want 1", len(ranking))
		}
		aliceIdx := strings.Index(ranking[0].Text, "1. Alice: 9 pts")
		bobIdx := strings.Index(ranking[0].Text, "2. Bob: 1 pts")
		if aliceIdx < 0 || bobIdx < 0 || aliceIdx > bobIdx {
			t.Errorf("unexpected ranking order:\n%s", ranking[0].Text)
		}
	})

	t.Run("empty window publishes no-activity report and nothing else", func(t *testing.T) {
		chat := testutil.NewFakeChatClient()
		chat.Channels = []string{"C1"}

		svc, _ := newTestService(t, chat, testutil.NewFakeClassifier(), testParams())

		summary, err := svc.RunDaily(context.Background())
		if err != nil {
			t.Fatalf("RunDaily: %v", err)
		}
		if summary.PostsProcessed != 0 {
			t.Errorf("posts processed = %d, want 0", summary.PostsProcessed)
		}
		if summary.ViolationsNotified != 0 {
			t.Errorf("violations notified = %d, want 0", summary.ViolationsNotified)
		}

		if got := len(chat.PostedTo(adminChannel)); got != 0 {
			t.Errorf("admin notices = %d, want 0", got)
		}
		ranking := chat.PostedTo(rankingChannel)
		if len(ranking) != 1 {
			t.Fatalf("ranking posts = %d, want 1", len(ranking))
		}
		if !strings.Contains(ranking[0].Text, "No activity in the last 24 hours.") {
			t.Errorf("expected no-activity report:\n%s", ranking[0].Text)
		}
	})

	t.Run("user names are looked up once per run", func(t *testing.T) {
		chat := testutil.NewFakeChatClient()
		chat.Channels = []string{"C1", "C2"}
		chat.Names["U1"] = "Alice"
		chat.History["C1"] = []pulse.Message{
			{ID: "1.000000", UserID: "U1", Text: "a", PostedAt: inWindow(1)},
			{ID: "2.000000", UserID: "U1", Text: "b", PostedAt: inWindow(2)},
		}
		chat.History["C2"] = []pulse.Message{
			{ID: "3.000000", UserID: "U1", Text: "c", PostedAt: inWindow(3)},
		}

		svc, _ := newTestService(t, chat, testutil.NewFakeClassifier(), testParams())
		if _, err := svc.RunDaily(context.Background()); err != nil {
			t.Fatalf("RunDaily: %v", err)
		}

		if got := chat.LookupCalls["U1"]; got != 1 {
			t.Errorf("lookup calls for U1 = %d, want 1", got)
		}
	})

	t.Run("skip rules drop bot, authorless, excluded and subtype messages", func(t *testing.T) {
		params := testParams()
		params.ExcludedUsers = []string{"U9"}

		chat := testutil.NewFakeChatClient()
		chat.Channels = []string{"C1"}
		chat.Names["U1"] = "Alice"
		chat.History["C1"] = []pulse.Message{
			{ID: "1.000000", UserID: "U1", Text: "kept", PostedAt: inWindow(1)},
			{ID: "2.000000", UserID: "", Text: "no author", PostedAt: inWindow(1)},
			{ID: "3.000000", UserID: "U2", BotID: "B1", Text: "bot", PostedAt: inWindow(1)},
			{ID: "4.000000", UserID: "U9", Text: "excluded", PostedAt: inWindow(1)},
			{ID: "5.000000", UserID: "U3", SubType: "channel_join", Text: "joined", PostedAt: inWindow(1)},
		}

		classifier := testutil.NewFakeClassifier()
		svc, _ := newTestService(t, chat, classifier, params)

		summary, err := svc.RunDaily(context.Background())
		if err != nil {
			t.Fatalf("RunDaily: %v", err)
		}
		if summary.PostsProcessed != 1 {
			t.Errorf("posts processed = %d, want 1", summary.PostsProcessed)
		}
		if len(classifier.Calls) != 1 || classifier.Calls[0] != "kept" {
			t.Errorf("classifier calls = %v, want [kept]", classifier.Calls)
		}
	})

	t.Run("deny-listed channels are never fetched", func(t *testing.T) {
		params := testParams()
		params.SkippedChannels = []string{"C-SKIP"}

		chat := testutil.NewFakeChatClient()
		chat.Channels = []string{"C-SKIP", "C1"}
		chat.Names["U1"] = "Alice"
		chat.History["C-SKIP"] = []pulse.Message{
			{ID: "1.000000", UserID: "U1", Text: "hidden", PostedAt: inWindow(1)},
		}
		chat.History["C1"] = []pulse.Message{
			{ID: "2.000000", UserID: "U1", Text: "visible", PostedAt: inWindow(1)},
		}

		svc, _ := newTestService(t, chat, testutil.NewFakeClassifier(), params)
		summary, err := svc.RunDaily(context.Background())
		if err != nil {
			t.Fatalf("RunDaily: %v", err)
		}
		if summary.PostsProcessed != 1 {
			t.Errorf("posts processed = %d, want 1", summary.PostsProcessed)
		}
	})

	t.Run("configured allow-list bypasses channel enumeration", func(t *testing.T) {
		params := testParams()
		params.TargetChannels = []string{"C1"}

		chat := testutil.NewFakeChatClient()
		chat.ListErr = errors.New("should not be called")
		chat.Names["U1"] = "Alice"
		chat.History["C1"] = []pulse.Message{
			{ID: "1.000000", UserID: "U1", Text: "hello", PostedAt: inWindow(1)},
		}

		svc, _ := newTestService(t, chat, testutil.NewFakeClassifier(), params)
		summary, err := svc.RunDaily(context.Background())
		if err != nil {
			t.Fatalf("RunDaily: %v", err)
		}
		if summary.PostsProcessed != 1 {
			t.Errorf("posts processed = %d, want 1", summary.PostsProcessed)
		}
	})

	t.Run("history fetch failure degrades to an empty channel", func(t *testing.T) {
		chat := testutil.NewFakeChatClient()
		chat.Channels = []string{"C1"}
		chat.HistoryErr = errors.New("slack is down")

		svc, _ := newTestService(t, chat, testutil.NewFakeClassifier(), testParams())
		summary, err := svc.RunDaily(context.Background())
		if err != nil {
			t.Fatalf("RunDaily: %v", err)
		}
		if summary.PostsProcessed != 0 {
			t.Errorf("posts processed = %d, want 0", summary.PostsProcessed)
		}
		// The ranking still goes out.
		if got := len(chat.PostedTo(rankingChannel)); got != 1 {
			t.Errorf("ranking posts = %d, want 1", got)
		}
	})

	t.Run("classifier failure falls back to the default classification", func(t *testing.T) {
		chat := testutil.NewFakeChatClient()
		chat.Channels = []string{"C1"}
		chat.Names["U1"] = "Alice"
		chat.History["C1"] = []pulse.Message{
			{ID: "1.000000", UserID: "U1", Text: "hello", PostedAt: inWindow(1)},
		}

		classifier := testutil.NewFakeClassifier()
		classifier.Err = errors.New("model unavailable")

		svc, st := newTestService(t, chat, classifier, testParams())
		summary, err := svc.RunDaily(context.Background())
		if err != nil {
			t.Fatalf("RunDaily: %v", err)
		}
		if summary.PostsProcessed != 1 {
			t.Errorf("posts processed = %d, want 1", summary.PostsProcessed)
		}
		if summary.ViolationsNotified != 0 {
			t.Errorf("violations notified = %d, want 0", summary.ViolationsNotified)
		}

		// The post is persisted with the fail-closed default.
		alice, err := st.GetUser("U1")
		if err != nil {
			t.Fatalf("GetUser: %v", err)
		}
		if alice == nil || alice.ContributionScore != 1 {
			t.Errorf("alice score = %+v, want 1", alice)
		}
	})

	t.Run("unresolvable user names fall back to the placeholder", func(t *testing.T) {
		chat := testutil.NewFakeChatClient()
		chat.Channels = []string{"C1"}
		chat.LookupErr = errors.New("user_not_found")
		chat.History["C1"] = []pulse.Message{
			{ID: "1.000000", UserID: "U-GONE", Text: "bad post", PostedAt: inWindow(1)},
		}

		classifier := testutil.NewFakeClassifier()
		classifier.Results["bad post"] = pulse.Classification{IsViolation: true, ViolationReason: "spam"}

		svc, _ := newTestService(t, chat, classifier, testParams())
		if _, err := svc.RunDaily(context.Background()); err != nil {
			t.Fatalf("RunDaily: %v", err)
		}

		notices := chat.PostedTo(adminChannel)
		if len(notices) != 1 {
			t.Fatalf("admin notices = %d, want 1", len(notices))
		}
		if !strings.Contains(notices[0].Text, "Author: "+pulse.UnknownUserName) {
			t.Errorf("expected placeholder author:\n%s", notices[0].Text)
		}
	})

	t.Run("rerunning the same window does not inflate scores", func(t *testing.T) {
		chat := testutil.NewFakeChatClient()
		chat.Channels = []string{"C1"}
		chat.Names["U1"] = "Alice"
		chat.History["C1"] = []pulse.Message{
			{ID: "1.000000", UserID: "U1", Text: "hello", ReactionCount: 2, PostedAt: inWindow(1)},
		}

		svc, st := newTestService(t, chat, testutil.NewFakeClassifier(), testParams())

		for i := 0; i < 3; i++ {
			if _, err := svc.RunDaily(context.Background()); err != nil {
				t.Fatalf("RunDaily #%d: %v", i+1, err)
			}
		}

		alice, err := st.GetUser("U1")
		if err != nil {
			t.Fatalf("GetUser: %v", err)
		}
		// 1 post + 2 reactions*2 = 5, regardless of rerun count.
		if alice == nil || alice.ContributionScore != 5 {
			t.Errorf("alice score = %+v, want 5", alice)
		}
	})

	t.Run("archives the rendered report", func(t *testing.T) {
		chat := testutil.NewFakeChatClient()
		chat.Channels = []string{"C1"}
		chat.Names["U1"] = "Alice"
		chat.History["C1"] = []pulse.Message{
			{ID: "1.000000", UserID: "U1", Text: "hello", PostedAt: inWindow(1)},
		}

		arch := archive.NewMemoryArchive()
		st := testutil.NewTestStore(t)
		svc := pulse.NewBatchService(st, chat, testutil.NewFakeClassifier(), arch,
			pulse.NewNopLogger(), testutil.FixedClock(), pulse.NopThrottles(), testParams())

		if _, err := svc.RunDaily(context.Background()); err != nil {
			t.Fatalf("RunDaily: %v", err)
		}

		body, ok := arch.Report("reports/2024-01-15.txt")
		if !ok {
			t.Fatal("expected report to be archived")
		}
		if !strings.Contains(string(body), "1. Alice: 1 pts") {
			t.Errorf("unexpected archived report:\n%s", body)
		}
	})

	t.Run("journals the run", func(t *testing.T) {
		chat := testutil.NewFakeChatClient()
		chat.Channels = []string{"C1"}
		chat.Names["U1"] = "Alice"
		chat.History["C1"] = []pulse.Message{
			{ID: "1.000000", UserID: "U1", Text: "hello", PostedAt: inWindow(1)},
		}

		svc, st := newTestService(t, chat, testutil.NewFakeClassifier(), testParams())
		if _, err := svc.RunDaily(context.Background()); err != nil {
			t.Fatalf("RunDaily: %v", err)
		}

		runs, err := st.ListBatchRuns(10)
		if err != nil {
			t.Fatalf("ListBatchRuns: %v", err)
		}
		if len(runs) != 1 {
			t.Fatalf("runs = %d, want 1", len(runs))
		}
		if runs[0].Status != pulse.RunStatusCompleted {
			t.Errorf("status = %q, want %q", runs[0].Status, pulse.RunStatusCompleted)
		}
		if runs[0].PostsProcessed != 1 {
			t.Errorf("posts processed = %d, want 1", runs[0].PostsProcessed)
		}
		if runs[0].FinishedAt == nil {
			t.Error("expected a finish timestamp")
		}
	})
}
