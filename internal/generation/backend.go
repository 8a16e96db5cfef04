package generation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ahmetcoskunkizilkaya/nippogen/internal/providers"
)

var (
	ErrNoCompleters  = errors.New("no generation provider configured")
	ErrEmptyResponse = errors.New("generation returned empty content")
)

// Input bundles everything the backend needs to draft one day's report.
// A nil activity means that provider contributed nothing.
type Input struct {
	Date            time.Time
	GitHub          *providers.GitHubActivity
	Toggl           *providers.TogglActivity
	Notion          *providers.NotionActivity
	AdditionalNotes string
}

// NewInput sorts activities into their typed slots.
func NewInput(date time.Time, notes string, activities ...providers.Activity) Input {
	in := Input{Date: date, AdditionalNotes: notes}
	for _, a := range activities {
		switch v := a.(type) {
		case *providers.GitHubActivity:
			in.GitHub = v
		case *providers.TogglActivity:
			in.Toggl = v
		case *providers.NotionActivity:
			in.Notion = v
		}
	}
	return in
}

// Backend turns provider data into report markdown.
type Backend interface {
	Generate(ctx context.Context, in Input) (string, error)
	Regenerate(ctx context.Context, in Input, previous, feedback string) (string, error)
}

// Completer is a single chat-style text generation call.
type Completer interface {
	Name() string
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// PromptBackend builds the report prompts and sends them to a Completer.
type PromptBackend struct {
	completer Completer
}

func NewPromptBackend(c Completer) *PromptBackend {
	return &PromptBackend{completer: c}
}

func (b *PromptBackend) Generate(ctx context.Context, in Input) (string, error) {
	return b.complete(ctx, GeneratePrompt(in))
}

func (b *PromptBackend) Regenerate(ctx context.Context, in Input, previous, feedback string) (string, error) {
	return b.complete(ctx, RegeneratePrompt(in, previous, feedback))
}

func (b *PromptBackend) complete(ctx context.Context, userPrompt string) (string, error) {
	text, err := b.completer.Complete(ctx, SystemPrompt, userPrompt)
	if err != nil {
		return "", fmt.Errorf("%s: %w", b.completer.Name(), err)
	}
	text = stripFence(text)
	if text == "" {
		return "", fmt.Errorf("%s: %w", b.completer.Name(), ErrEmptyResponse)
	}
	return text, nil
}
