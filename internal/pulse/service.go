package pulse

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Params configures a batch run.
type Params struct {
	AnchorHour       int            // daily window cutoff hour
	Location         *time.Location // timezone of the anchor; nil means local
	TargetChannels   []string       // explicit allow-list; empty means enumerate all public channels
	SkippedChannels  []string       // deny-list, applied at fetch time
	ExcludedUsers    []string
	SkipBots         bool
	SkipSubtypes     []string
	Weights          Weights
	RankingLimit     int
	AdminChannelID   string // violation notifications
	RankingChannelID string // leaderboard publication
}

// RunSummary reports what a batch run accomplished.
type RunSummary struct {
	Window             Window
	PostsProcessed     int
	ViolationsNotified int
	RankingPublished   bool
}

// BatchService drives one daily batch run end to end: window computation,
// per-channel ingestion, classification, persistence, score recomputation,
// violation notification and leaderboard publication. Strictly sequential;
// collaborator failures degrade to empty results and never abort the run.
type BatchService struct {
	store      Store
	chat       ChatClient
	classifier Classifier
	archive    Archive // nil when report archival is disabled
	logger     Logger
	clock      Clock
	throttles  Throttles
	params     Params
}

// NewBatchService creates a BatchService with the provided dependencies.
func NewBatchService(store Store, chat ChatClient, classifier Classifier, archive Archive, logger Logger, clock Clock, throttles Throttles, params Params) *BatchService {
	if params.RankingLimit <= 0 {
		params.RankingLimit = DefaultRankingLimit
	}
	if params.Location == nil {
		params.Location = time.Local
	}
	return &BatchService{
		store:      store,
		chat:       chat,
		classifier: classifier,
		archive:    archive,
		logger:     logger,
		clock:      clock,
		throttles:  throttles,
		params:     params,
	}
}

// RunDaily executes the full pipeline once. The leaderboard is always
// published, even over an empty window. The returned error covers only
// context cancellation; everything else is logged and degraded.
func (s *BatchService) RunDaily(ctx context.Context) (*RunSummary, error) {
	window := ComputeWindow(s.clock.Now(), s.params.AnchorHour, s.params.Location)
	s.logger.Info("batch started", "window_start", window.Start, "window_end", window.End)

	run, err := s.store.CreateBatchRun(window.Start, window.End, s.clock.Now())
	if err != nil {
		s.logger.Error("journaling batch run failed", "error", err)
	}

	summary := &RunSummary{Window: window}
	names := make(map[string]string) // run-scoped user name cache

	for _, channelID := range s.resolveChannels(ctx) {
		summary.PostsProcessed += s.ingestChannel(ctx, channelID, window, names)
	}
	s.logger.Info("ingestion complete", "posts", summary.PostsProcessed)

	if err := s.store.RecomputeUserScores(s.params.Weights); err != nil {
		s.logger.Error("recomputing user scores failed", "error", err)
	}

	summary.ViolationsNotified = s.notifyViolations(ctx, window, names)

	report := s.publishRanking(ctx, window)
	summary.RankingPublished = true

	s.archiveReport(ctx, window, report)

	status := RunStatusCompleted
	if ctx.Err() != nil {
		status = RunStatusFailed
	}
	if run != nil {
		if err := s.store.FinishBatchRun(run.ID, status, summary.PostsProcessed, s.clock.Now()); err != nil {
			s.logger.Error("closing batch run journal failed", "error", err)
		}
	}

	s.logger.Info("batch finished",
		"posts", summary.PostsProcessed,
		"violations_notified", summary.ViolationsNotified,
		"status", status)
	return summary, ctx.Err()
}

// resolveChannels returns the channels to ingest: the configured allow-list
// when present, otherwise every public channel the chat client can see.
func (s *BatchService) resolveChannels(ctx context.Context) []string {
	if len(s.params.TargetChannels) > 0 {
		s.logger.Info("processing configured channels only", "count", len(s.params.TargetChannels))
		return s.params.TargetChannels
	}
	channels, err := s.chat.ListPublicChannels(ctx)
	if err != nil {
		s.logger.Error("listing public channels failed", "error", err)
		return nil
	}
	s.logger.Info("processing all public channels", "count", len(channels))
	return channels
}

// ingestChannel fetches one channel's window of history and runs the
// per-message pipeline. Returns the number of posts persisted.
func (s *BatchService) ingestChannel(ctx context.Context, channelID string, window Window, names map[string]string) int {
	if s.isSkippedChannel(channelID) {
		s.logger.Info("channel skipped by configuration", "channel", channelID)
		return 0
	}

	joined, err := s.chat.EnsureJoined(ctx, channelID)
	if err != nil {
		s.logger.Warn("joining channel failed", "channel", channelID, "error", err)
		return 0
	}
	if !joined {
		s.logger.Warn("not a member of channel, skipping", "channel", channelID)
		return 0
	}

	messages, err := s.chat.FetchHistory(ctx, channelID, window.Start, window.End)
	if err != nil {
		s.logger.Error("fetching history failed", "channel", channelID, "error", err)
		messages = nil
	}
	s.wait(ctx, s.throttles.ChannelFetch)
	s.logger.Info("fetched channel history", "channel", channelID, "messages", len(messages))

	processed := 0
	for i := range messages {
		if s.ingestMessage(ctx, channelID, &messages[i], names) {
			processed++
		}
	}
	return processed
}

// ingestMessage runs the per-message pipeline: skip rules, user resolution,
// classification, persistence. Returns true when an analysis row was saved.
func (s *BatchService) ingestMessage(ctx context.Context, channelID string, msg *Message, names map[string]string) bool {
	if reason, skip := s.skipReason(msg); skip {
		s.logger.Debug("message skipped", "channel", channelID, "post", msg.ID, "reason", reason)
		return false
	}

	// One external lookup per distinct user per run.
	if _, ok := names[msg.UserID]; !ok {
		name, err := s.chat.LookupUserName(ctx, msg.UserID)
		if err != nil {
			s.logger.Warn("user lookup failed", "user", msg.UserID, "error", err)
			name = UnknownUserName
		}
		names[msg.UserID] = name
		if err := s.store.UpsertUser(msg.UserID, name); err != nil {
			s.logger.Error("upserting user failed", "user", msg.UserID, "error", err)
		}
		s.wait(ctx, s.throttles.UserLookup)
	}

	result, err := s.classifier.Classify(ctx, msg.Text)
	if err != nil {
		s.logger.Warn("classification degraded to default", "post", msg.ID, "error", err)
	}
	s.wait(ctx, s.throttles.Classify)

	analysis := &PostAnalysis{
		PostID:          msg.ID,
		UserID:          msg.UserID,
		ChannelID:       channelID,
		PostedAt:        msg.PostedAt,
		ReactionCount:   msg.ReactionCount,
		IsViolation:     result.IsViolation,
		ViolationReason: result.ViolationReason,
		IsPositive:      result.IsPositive,
		IsHelpfulAnswer: result.IsHelpfulAnswer,
	}
	if err := s.store.SaveAnalysis(analysis); err != nil {
		s.logger.Error("saving analysis failed", "post", msg.ID, "error", err)
		return false
	}
	return true
}

// skipReason applies the message exclusion rules. A missing author always
// skips; bot, excluded-user and subtype exclusion are configuration-gated.
func (s *BatchService) skipReason(msg *Message) (string, bool) {
	if msg.UserID == "" {
		return "no author", true
	}
	if s.params.SkipBots && msg.BotID != "" {
		return "bot message", true
	}
	for _, id := range s.params.ExcludedUsers {
		if id == msg.UserID {
			return "excluded user", true
		}
	}
	for _, sub := range s.params.SkipSubtypes {
		if sub != "" && sub == msg.SubType {
			return "excluded subtype", true
		}
	}
	return "", false
}

func (s *BatchService) isSkippedChannel(channelID string) bool {
	for _, id := range s.params.SkippedChannels {
		if id == channelID {
			return true
		}
	}
	return false
}

// notifyViolations sends one moderator notification per flagged post in the
// window. Author names come from the run-scoped cache; users not seen this
// run fall back to the placeholder even if they exist in the store.
func (s *BatchService) notifyViolations(ctx context.Context, window Window, names map[string]string) int {
	violations, err := s.store.QueryViolations(window.Start, window.End)
	if err != nil {
		s.logger.Error("querying violations failed", "error", err)
		return 0
	}

	sent := 0
	for _, v := range violations {
		userName, ok := names[v.UserID]
		if !ok {
			userName = UnknownUserName
		}
		permalink, err := s.chat.GetPermalink(ctx, v.ChannelID, v.PostID)
		if err != nil {
			s.logger.Warn("permalink lookup failed", "post", v.PostID, "error", err)
			permalink = ""
		}
		notice := RenderViolationNotice(userName, v.ViolationReason, permalink)
		if err := s.chat.PostMessage(ctx, s.params.AdminChannelID, notice); err != nil {
			s.logger.Error("posting violation notice failed", "post", v.PostID, "error", err)
		} else {
			sent++
		}
		s.wait(ctx, s.throttles.Notify)
	}
	return sent
}

// publishRanking posts the leaderboard for the window and returns the
// rendered report. Publication happens exactly once per run, empty or not.
func (s *BatchService) publishRanking(ctx context.Context, window Window) string {
	entries, err := s.store.QueryRanking(window.Start, window.End, s.params.RankingLimit, s.params.Weights)
	if err != nil {
		s.logger.Error("querying ranking failed", "error", err)
		entries = nil
	}

	report := RenderLeaderboard(window.Start, entries, s.params.RankingLimit)
	if err := s.chat.PostMessage(ctx, s.params.RankingChannelID, report); err != nil {
		s.logger.Error("publishing ranking failed", "error", err)
	}
	return report
}

// archiveReport writes the rendered leaderboard to the configured archive.
// Failures are logged and never fatal.
func (s *BatchService) archiveReport(ctx context.Context, window Window, report string) {
	if s.archive == nil {
		return
	}
	name := fmt.Sprintf("reports/%s.txt", window.End.Format("2006-01-02"))
	body := strings.NewReader(report)
	if err := s.archive.PutReport(ctx, name, body, int64(len(report))); err != nil {
		s.logger.Error("archiving report failed", "name", name, "error", err)
	}
}

func (s *BatchService) wait(ctx context.Context, t Throttle) {
	if t == nil {
		return
	}
	if err := t.Wait(ctx); err != nil {
		s.logger.Warn("throttle wait interrupted", "error", err)
	}
}
