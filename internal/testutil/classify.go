package testutil

import (
	"context"

	"chatpulse/internal/pulse"
)

// FakeClassifier returns canned classifications keyed by message text.
// Unlisted texts get the default classification. When Err is set every call
// fails after recording itself.
type FakeClassifier struct {
	Results map[string]pulse.Classification
	Err     error
	Calls   []string
}

// NewFakeClassifier creates an empty fake classifier.
func NewFakeClassifier() *FakeClassifier {
	return &FakeClassifier{Results: make(map[string]pulse.Classification)}
}

func (f *FakeClassifier) Classify(_ context.Context, text string) (pulse.Classification, error) {
	f.Calls = append(f.Calls, text)
	if f.Err != nil {
		return pulse.DefaultClassification(), f.Err
	}
	if result, ok := f.Results[text]; ok {
		return result, nil
	}
	return pulse.DefaultClassification(), nil
}

// Compile-time check that FakeClassifier implements pulse.Classifier
var _ pulse.Classifier = (*FakeClassifier)(nil)
