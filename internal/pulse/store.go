package pulse

import "time"

// User is one chat workspace member with an accumulated contribution score.
type User struct {
	UserID            string
	UserName          string
	ContributionScore float64
	UpdatedAt         time.Time
}

// PostAnalysis is the durable classification record for one message.
// At most one row exists per PostID; re-ingesting a post replaces the row.
type PostAnalysis struct {
	PostID          string
	UserID          string
	ChannelID       string
	PostedAt        time.Time
	ReactionCount   int
	IsViolation     bool
	ViolationReason string
	IsPositive      bool
	IsHelpfulAnswer bool
}

// UserStats is the per-user activity aggregate over a window.
type UserStats struct {
	UserID             string
	PostCount          int
	TotalReactions     int
	PositivePostCount  int
	HelpfulAnswerCount int
}

// ViolationPost identifies one flagged message in a window.
type ViolationPost struct {
	PostID          string
	UserID          string
	ChannelID       string
	ViolationReason string
}

// RankingEntry is one leaderboard row.
type RankingEntry struct {
	UserName   string
	TotalScore float64
}

// BatchRun is the journal record of one batch invocation.
type BatchRun struct {
	ID             int64
	WindowStart    time.Time
	WindowEnd      time.Time
	StartedAt      time.Time
	FinishedAt     *time.Time
	Status         string
	PostsProcessed int
}

// Batch run statuses.
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// Store is the durable relational store for users, per-post analysis and
// batch-run journaling. Every call is its own atomic unit; there is no
// cross-call transaction. Window queries treat [start, end] as a closed
// interval.
type Store interface {
	// UpsertUser inserts a user or refreshes their display name.
	// The contribution score is not touched.
	UpsertUser(userID, userName string) error

	// GetUser returns a user row, or nil when the user is unknown.
	GetUser(userID string) (*User, error)

	// SaveAnalysis inserts or replaces the analysis row for a post.
	SaveAnalysis(post *PostAnalysis) error

	// AccrueUserScore adds delta to a user's contribution score, creating
	// the user when absent and refreshing the display name. Additive, not
	// idempotent: replaying it double-counts.
	AccrueUserScore(userID, userName string, delta float64) error

	// RecomputeUserScores re-derives every user's lifetime contribution
	// score from the stored analysis rows. Idempotent.
	RecomputeUserScores(weights Weights) error

	// QueryUserStats aggregates analysis rows in the window per user.
	QueryUserStats(start, end time.Time) ([]UserStats, error)

	// QueryViolations returns all flagged posts in the window.
	QueryViolations(start, end time.Time) ([]ViolationPost, error)

	// QueryRanking returns the top-limit users by weighted score over the
	// window, descending; ties break on user ID so the order is stable.
	QueryRanking(start, end time.Time, limit int, weights Weights) ([]RankingEntry, error)

	// CreateBatchRun journals the start of a batch invocation.
	CreateBatchRun(windowStart, windowEnd, startedAt time.Time) (*BatchRun, error)

	// FinishBatchRun closes a batch journal entry.
	FinishBatchRun(id int64, status string, postsProcessed int, finishedAt time.Time) error

	// ListBatchRuns returns the most recent batch runs, newest first.
	ListBatchRuns(limit int) ([]BatchRun, error)

	// Close closes the underlying connection.
	Close() error
}
