package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"chatpulse/internal/archive"
	"chatpulse/internal/classify"
	"chatpulse/internal/config"
	"chatpulse/internal/pulse"
	"chatpulse/internal/slackchat"
	"chatpulse/internal/store"
)

// App wires configuration into a ready-to-run batch service and carries the
// handles the CLI commands need.
type App struct {
	Config  *config.Config
	Store   pulse.Store
	Service *pulse.BatchService
	Logger  pulse.Logger
	RunID   string

	location *time.Location
	logFile  *os.File
}

// NewApp builds the full application from a config file. Credentials are
// read from the environment: SLACK_BOT_TOKEN and GEMINI_API_KEY.
func NewApp(ctx context.Context, configPath string) (*App, error) {
	cfg, err := config.ReadFromFile(configPath)
	if err != nil {
		return nil, err
	}
	return NewAppFromConfig(ctx, cfg)
}

// NewAppFromConfig builds the application from an already loaded Config.
func NewAppFromConfig(ctx context.Context, cfg *config.Config) (*App, error) {
	runID := uuid.NewString()[:8]

	slogger, logFile, err := newLogger(cfg.LogDir, runID)
	if err != nil {
		return nil, err
	}
	logger := &slogAdapter{l: slogger}

	location := time.Local
	if cfg.Timezone != "" {
		location, err = time.LoadLocation(cfg.Timezone)
		if err != nil {
			logFile.Close()
			return nil, fmt.Errorf("loading timezone %s: %w", cfg.Timezone, err)
		}
	}

	st, err := store.NewStoreFromConfig(cfg.Database)
	if err != nil {
		logFile.Close()
		return nil, err
	}

	chat := slackchat.New(os.Getenv("SLACK_BOT_TOKEN"))

	prompt := classify.DefaultPrompt
	if cfg.Classifier.PromptPath != "" {
		data, err := os.ReadFile(cfg.Classifier.PromptPath)
		if err != nil {
			st.Close()
			logFile.Close()
			return nil, fmt.Errorf("reading prompt template: %w", err)
		}
		prompt = string(data)
	}

	classifier, err := classify.NewGemini(ctx, os.Getenv("GEMINI_API_KEY"), cfg.Classifier.Model, prompt)
	if err != nil {
		st.Close()
		logFile.Close()
		return nil, fmt.Errorf("creating classifier: %w", err)
	}

	arch, err := archive.NewArchiveFromConfig(ctx, cfg.Archive)
	if err != nil {
		st.Close()
		logFile.Close()
		return nil, err
	}

	params := pulse.Params{
		AnchorHour:       cfg.AnchorHour,
		Location:         location,
		TargetChannels:   cfg.Slack.TargetChannels,
		SkippedChannels:  cfg.Slack.SkippedChannels,
		ExcludedUsers:    cfg.Slack.ExcludedUsers,
		SkipBots:         cfg.Slack.SkipBots,
		SkipSubtypes:     cfg.Slack.SkipSubtypes,
		Weights:          weightsFromConfig(cfg.Scoring),
		RankingLimit:     cfg.Scoring.RankingLimit,
		AdminChannelID:   cfg.Slack.AdminChannelID,
		RankingChannelID: cfg.Slack.RankingChannelID,
	}

	throttles := pulse.Throttles{
		ChannelFetch: limiter(cfg.Limits.ChannelFetchMillis),
		UserLookup:   limiter(cfg.Limits.UserLookupMillis),
		Classify:     limiter(cfg.Limits.ClassifyMillis),
		Notify:       limiter(cfg.Limits.NotifyMillis),
	}

	service := pulse.NewBatchService(st, chat, classifier, arch, logger, &pulse.RealClock{}, throttles, params)

	return &App{
		Config:   cfg,
		Store:    st,
		Service:  service,
		Logger:   logger,
		RunID:    runID,
		location: location,
		logFile:  logFile,
	}, nil
}

// RunDaily executes one daily batch run.
func (a *App) RunDaily(ctx context.Context) (*pulse.RunSummary, error) {
	return a.Service.RunDaily(ctx)
}

// GrantScore applies a manual score adjustment to a user and returns their
// new lifetime total. The next batch run's recomputation will overwrite
// manual grants; this exists for operator corrections between runs.
func (a *App) GrantScore(userID, userName string, delta float64) (float64, error) {
	if err := a.Store.AccrueUserScore(userID, userName, delta); err != nil {
		return 0, err
	}
	user, err := a.Store.GetUser(userID)
	if err != nil {
		return 0, err
	}
	if user == nil {
		return 0, fmt.Errorf("user %s not found after grant", userID)
	}
	return user.ContributionScore, nil
}

// RenderReport recomputes and renders the leaderboard for the daily window
// ending on the given day, without posting or persisting anything.
func (a *App) RenderReport(day time.Time) (string, error) {
	window := pulse.ComputeWindow(day, a.Config.AnchorHour, a.location)
	weights := weightsFromConfig(a.Config.Scoring)
	limit := a.Config.Scoring.RankingLimit
	if limit <= 0 {
		limit = pulse.DefaultRankingLimit
	}

	entries, err := a.Store.QueryRanking(window.Start, window.End, limit, weights)
	if err != nil {
		return "", fmt.Errorf("querying ranking: %w", err)
	}
	return pulse.RenderLeaderboard(window.Start, entries, limit), nil
}

// History returns the most recent batch run journal entries, newest first.
func (a *App) History(limit int) ([]pulse.BatchRun, error) {
	return a.Store.ListBatchRuns(limit)
}

// Close releases the store and the log file.
func (a *App) Close() error {
	err := a.Store.Close()
	if a.logFile != nil {
		if cerr := a.logFile.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

func weightsFromConfig(s config.ScoringConfig) pulse.Weights {
	return pulse.Weights{
		PostCount:     s.PostCountWeight,
		ReactionCount: s.ReactionCountWeight,
		PositivePost:  s.PositivePostWeight,
		HelpfulAnswer: s.HelpfulAnswerWeight,
	}
}

// limiter converts a minimum-interval setting in milliseconds to a throttle.
// Zero or negative disables pacing.
func limiter(millis int) pulse.Throttle {
	if millis <= 0 {
		return pulse.NopThrottle{}
	}
	return rate.NewLimiter(rate.Every(time.Duration(millis)*time.Millisecond), 1)
}
