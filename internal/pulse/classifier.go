package pulse

import "context"

// Classification is the outcome of one moderation/contribution check.
type Classification struct {
	IsViolation     bool
	ViolationReason string
	IsPositive      bool
	IsHelpfulAnswer bool
}

// DefaultClassification is the fail-closed fallback: not a violation, no
// positive signals, empty reason.
func DefaultClassification() Classification {
	return Classification{}
}

// Classifier scores one message text. Implementations return the fail-closed
// default alongside a non-nil error when the call or its response cannot be
// trusted; callers log and keep the default.
type Classifier interface {
	Classify(ctx context.Context, text string) (Classification, error)
}
