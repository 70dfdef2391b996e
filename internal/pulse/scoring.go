package pulse

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Weights are the coefficients of the contribution score:
//
//	score = postCount*PostCount + totalReactions*ReactionCount +
//	        positivePosts*PositivePost + helpfulAnswers*HelpfulAnswer
type Weights struct {
	PostCount     int
	ReactionCount int
	PositivePost  int
	HelpfulAnswer int
}

// DefaultWeights returns the standard scoring coefficients.
func DefaultWeights() Weights {
	return Weights{PostCount: 1, ReactionCount: 2, PositivePost: 3, HelpfulAnswer: 5}
}

// DefaultRankingLimit is the leaderboard size when none is configured.
const DefaultRankingLimit = 20

// Score computes the weighted contribution score for one user's window
// aggregate. Deterministic: identical stats and weights always produce the
// same score.
func (w Weights) Score(s UserStats) float64 {
	return float64(s.PostCount*w.PostCount +
		s.TotalReactions*w.ReactionCount +
		s.PositivePostCount*w.PositivePost +
		s.HelpfulAnswerCount*w.HelpfulAnswer)
}

// UnknownUserName is the placeholder for users whose name was not resolved
// during the current run.
const UnknownUserName = "unknown user"

// RenderLeaderboard formats the daily ranking post for the given activity
// day. Positions are 1-indexed and scores are rounded to the nearest
// integer. An empty ranking renders an explicit no-activity message so the
// publication is never silently dropped.
func RenderLeaderboard(day time.Time, entries []RankingEntry, limit int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Contribution ranking TOP %d for %s :tada:\n", limit, day.Format("2006/01/02"))
	if len(entries) == 0 {
		b.WriteString("No activity in the last 24 hours.")
		return b.String()
	}
	for i, e := range entries {
		fmt.Fprintf(&b, "%d. %s: %d pts\n", i+1, e.UserName, int(math.Round(e.TotalScore)))
	}
	return b.String()
}

// RenderViolationNotice formats one moderator notification.
func RenderViolationNotice(userName, reason, permalink string) string {
	return fmt.Sprintf(
		"A post that may violate the community guidelines was detected.\nAuthor: %s\nReason: %s\nLink: %s",
		userName, reason, permalink)
}
