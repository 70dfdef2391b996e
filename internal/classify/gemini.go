package classify

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"chatpulse/internal/pulse"
)

// DefaultModel is the Gemini model used when none is configured.
const DefaultModel = "gemini-2.0-flash"

// Gemini classifies posts with one generate call per message. There is no
// retry at this level; rate pacing belongs to the caller and any failure
// degrades to the fail-closed default.
type Gemini struct {
	client *genai.Client
	model  string
	prompt string
}

// NewGemini builds a Gemini-backed classifier. An empty model falls back to
// DefaultModel; an empty prompt falls back to DefaultPrompt. The API key is
// only validated by the first call, matching the rest of the credential
// handling.
func NewGemini(ctx context.Context, apiKey, model, prompt string) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	if model == "" {
		model = DefaultModel
	}
	if prompt == "" {
		prompt = DefaultPrompt
	}
	return &Gemini{client: client, model: model, prompt: prompt}, nil
}

// Classify runs the policy prompt over text.
func (g *Gemini) Classify(ctx context.Context, text string) (pulse.Classification, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(BuildPrompt(g.prompt, text)), nil)
	if err != nil {
		return pulse.DefaultClassification(), fmt.Errorf("generating classification: %w", err)
	}
	return ParseResponse(resp.Text())
}

// Compile-time check that Gemini implements pulse.Classifier
var _ pulse.Classifier = (*Gemini)(nil)
