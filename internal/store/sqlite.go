package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"chatpulse/internal/pulse"
	"chatpulse/internal/store/migrations"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteStore implements pulse.Store on a single SQLite file.
// Every method is its own atomic unit; there is no cross-call transaction,
// so a partial run leaves previously committed rows intact.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// Open opens (or creates) the store at path and applies pending schema
// migrations. path can be a file path or ":memory:".
func Open(path string) (*SQLiteStore, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}
	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating schema: %w", err)
	}
	return &SQLiteStore{db: db, path: path}, nil
}

// OpenConnection opens and configures a SQLite connection without touching
// the schema. Exported for tools and tests that manage migrations
// themselves.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// The batch is strictly sequential; a single connection also keeps
	// ":memory:" databases coherent across calls.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}
	return db, nil
}

// UpsertUser inserts a user or refreshes their display name. The
// contribution score is never touched here.
func (s *SQLiteStore) UpsertUser(userID, userName string) error {
	_, err := s.db.Exec(`
		INSERT INTO users (user_id, user_name) VALUES (?, ?)
		ON CONFLICT(user_id) DO UPDATE SET user_name = excluded.user_name`,
		userID, userName)
	if err != nil {
		return fmt.Errorf("upserting user %s: %w", userID, err)
	}
	return nil
}

// GetUser returns a user row, or nil when the user is unknown.
func (s *SQLiteStore) GetUser(userID string) (*pulse.User, error) {
	var u pulse.User
	err := s.db.QueryRow(`
		SELECT user_id, user_name, contribution_score, updated_at
		FROM users WHERE user_id = ?`, userID).
		Scan(&u.UserID, &u.UserName, &u.ContributionScore, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading user %s: %w", userID, err)
	}
	return &u, nil
}

// SaveAnalysis inserts or replaces the analysis row for a post. All fields
// are overwritten atomically, so re-ingesting a window is idempotent for
// analysis data.
func (s *SQLiteStore) SaveAnalysis(post *pulse.PostAnalysis) error {
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO posts_analysis
		(post_id, user_id, channel_id, posted_at, reaction_count, is_violation, violation_reason, is_positive, is_helpful_answer)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		post.PostID,
		post.UserID,
		post.ChannelID,
		post.PostedAt.UTC(),
		post.ReactionCount,
		post.IsViolation,
		post.ViolationReason,
		post.IsPositive,
		post.IsHelpfulAnswer)
	if err != nil {
		return fmt.Errorf("saving analysis for post %s: %w", post.PostID, err)
	}
	return nil
}

// AccrueUserScore adds delta to the user's contribution score, creating the
// user when absent and refreshing the display name. Additive: replaying the
// same accrual double-counts.
func (s *SQLiteStore) AccrueUserScore(userID, userName string, delta float64) error {
	_, err := s.db.Exec(`
		INSERT INTO users (user_id, user_name, contribution_score, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(user_id) DO UPDATE SET
			user_name = excluded.user_name,
			contribution_score = contribution_score + excluded.contribution_score,
			updated_at = CURRENT_TIMESTAMP`,
		userID, userName, delta)
	if err != nil {
		return fmt.Errorf("accruing score for user %s: %w", userID, err)
	}
	return nil
}

// RecomputeUserScores re-derives every user's lifetime contribution score
// from the stored analysis rows in one statement. Idempotent: re-running a
// window never double-counts.
func (s *SQLiteStore) RecomputeUserScores(weights pulse.Weights) error {
	_, err := s.db.Exec(`
		UPDATE users SET
			contribution_score = COALESCE((
				SELECT COUNT(p.post_id) * ?
					+ SUM(p.reaction_count) * ?
					+ SUM(CASE WHEN p.is_positive = 1 THEN 1 ELSE 0 END) * ?
					+ SUM(CASE WHEN p.is_helpful_answer = 1 THEN 1 ELSE 0 END) * ?
				FROM posts_analysis p
				WHERE p.user_id = users.user_id), 0),
			updated_at = CURRENT_TIMESTAMP`,
		weights.PostCount, weights.ReactionCount, weights.PositivePost, weights.HelpfulAnswer)
	if err != nil {
		return fmt.Errorf("recomputing user scores: %w", err)
	}
	return nil
}

// QueryUserStats aggregates analysis rows with posted_at in [start, end],
// grouped by user.
func (s *SQLiteStore) QueryUserStats(start, end time.Time) ([]pulse.UserStats, error) {
	rows, err := s.db.Query(`
		SELECT user_id,
			COUNT(post_id) AS post_count,
			SUM(reaction_count) AS total_reactions,
			SUM(CASE WHEN is_positive = 1 THEN 1 ELSE 0 END) AS positive_post_count,
			SUM(CASE WHEN is_helpful_answer = 1 THEN 1 ELSE 0 END) AS helpful_answer_count
		FROM posts_analysis
		WHERE posted_at BETWEEN ? AND ?
		GROUP BY user_id
		ORDER BY user_id`,
		start.UTC(), end.UTC())
	if err != nil {
		return nil, fmt.Errorf("querying user stats: %w", err)
	}
	defer rows.Close()

	var stats []pulse.UserStats
	for rows.Next() {
		var st pulse.UserStats
		if err := rows.Scan(&st.UserID, &st.PostCount, &st.TotalReactions, &st.PositivePostCount, &st.HelpfulAnswerCount); err != nil {
			return nil, fmt.Errorf("scanning user stats: %w", err)
		}
		stats = append(stats, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading user stats: %w", err)
	}
	return stats, nil
}

// QueryViolations returns all flagged posts with posted_at in [start, end].
func (s *SQLiteStore) QueryViolations(start, end time.Time) ([]pulse.ViolationPost, error) {
	rows, err := s.db.Query(`
		SELECT post_id, user_id, channel_id, COALESCE(violation_reason, '')
		FROM posts_analysis
		WHERE is_violation = 1 AND posted_at BETWEEN ? AND ?
		ORDER BY posted_at, post_id`,
		start.UTC(), end.UTC())
	if err != nil {
		return nil, fmt.Errorf("querying violations: %w", err)
	}
	defer rows.Close()

	var violations []pulse.ViolationPost
	for rows.Next() {
		var v pulse.ViolationPost
		if err := rows.Scan(&v.PostID, &v.UserID, &v.ChannelID, &v.ViolationReason); err != nil {
			return nil, fmt.Errorf("scanning violation: %w", err)
		}
		violations = append(violations, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading violations: %w", err)
	}
	return violations, nil
}

// QueryRanking aggregates the weighted contribution score per user over
// [start, end] and returns the top limit entries, highest first. Ties break
// on user_id ascending so repeated calls on identical data return the same
// order.
func (s *SQLiteStore) QueryRanking(start, end time.Time, limit int, weights pulse.Weights) ([]pulse.RankingEntry, error) {
	rows, err := s.db.Query(`
		SELECT u.user_name,
			(COUNT(p.post_id) * ?
				+ SUM(p.reaction_count) * ?
				+ SUM(CASE WHEN p.is_positive = 1 THEN 1 ELSE 0 END) * ?
				+ SUM(CASE WHEN p.is_helpful_answer = 1 THEN 1 ELSE 0 END) * ?) AS total_score
		FROM posts_analysis p
		JOIN users u ON p.user_id = u.user_id
		WHERE p.posted_at BETWEEN ? AND ?
		GROUP BY p.user_id
		ORDER BY total_score DESC, p.user_id ASC
		LIMIT ?`,
		weights.PostCount, weights.ReactionCount, weights.PositivePost, weights.HelpfulAnswer,
		start.UTC(), end.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("querying ranking: %w", err)
	}
	defer rows.Close()

	var entries []pulse.RankingEntry
	for rows.Next() {
		var e pulse.RankingEntry
		if err := rows.Scan(&e.UserName, &e.TotalScore); err != nil {
			return nil, fmt.Errorf("scanning ranking entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading ranking: %w", err)
	}
	return entries, nil
}

// CreateBatchRun journals the start of a batch invocation.
func (s *SQLiteStore) CreateBatchRun(windowStart, windowEnd, startedAt time.Time) (*pulse.BatchRun, error) {
	res, err := s.db.Exec(`
		INSERT INTO batch_runs (window_start, window_end, started_at, status)
		VALUES (?, ?, ?, ?)`,
		windowStart.UTC(), windowEnd.UTC(), startedAt.UTC(), pulse.RunStatusRunning)
	if err != nil {
		return nil, fmt.Errorf("creating batch run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading batch run id: %w", err)
	}
	return &pulse.BatchRun{
		ID:          id,
		WindowStart: windowStart.UTC(),
		WindowEnd:   windowEnd.UTC(),
		StartedAt:   startedAt.UTC(),
		Status:      pulse.RunStatusRunning,
	}, nil
}

// FinishBatchRun closes a batch journal entry.
func (s *SQLiteStore) FinishBatchRun(id int64, status string, postsProcessed int, finishedAt time.Time) error {
	_, err := s.db.Exec(`
		UPDATE batch_runs SET finished_at = ?, status = ?, posts_processed = ?
		WHERE id = ?`,
		finishedAt.UTC(), status, postsProcessed, id)
	if err != nil {
		return fmt.Errorf("finishing batch run %d: %w", id, err)
	}
	return nil
}

// ListBatchRuns returns the most recent batch runs, newest first.
func (s *SQLiteStore) ListBatchRuns(limit int) ([]pulse.BatchRun, error) {
	rows, err := s.db.Query(`
		SELECT id, window_start, window_end, started_at, finished_at, status, posts_processed
		FROM batch_runs
		ORDER BY id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing batch runs: %w", err)
	}
	defer rows.Close()

	var runs []pulse.BatchRun
	for rows.Next() {
		var r pulse.BatchRun
		var finished sql.NullTime
		if err := rows.Scan(&r.ID, &r.WindowStart, &r.WindowEnd, &r.StartedAt, &finished, &r.Status, &r.PostsProcessed); err != nil {
			return nil, fmt.Errorf("scanning batch run: %w", err)
		}
		if finished.Valid {
			t := finished.Time
			r.FinishedAt = &t
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading batch runs: %w", err)
	}
	return runs, nil
}

// Path returns the database file path (or ":memory:").
func (s *SQLiteStore) Path() string {
	return s.path
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Compile-time check that SQLiteStore implements pulse.Store
var _ pulse.Store = (*SQLiteStore)(nil)
