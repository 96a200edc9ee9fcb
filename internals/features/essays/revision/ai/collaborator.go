// file: internals/features/essays/revision/ai/collaborator.go
package ai

import (
	"context"
	"errors"

	model "essaysmaster_backend/internals/features/essays/revision/model"
)

var (
	ErrNotConfigured       = errors.New("ai provider is not configured")
	ErrProviderUnavailable = errors.New("ai provider unavailable")
	ErrMalformedResponse   = errors.New("ai response could not be parsed")
)

type FeedbackRequest struct {
	Round          int
	Text           string
	QuestionPrompt string
	StudentName    string
}

type FeedbackResult struct {
	Text       string
	Highlights []model.Highlight
}

type ValidationRequest struct {
	Round          int
	OriginalText   string
	CurrentText    string
	QuestionPrompt string
	StudentName    string
	// Stored text of the preceding feedback round (4<-3, 6<-5). Empty otherwise.
	PriorRoundFeedback string
}

type ValidationResult struct {
	Score      float64
	Status     string
	Analysis   string
	Feedback   string
	Raw        string
	Highlights []model.Highlight
}

// Collaborator is the text-generation dependency of the round flow.
type Collaborator interface {
	ProduceFeedback(ctx context.Context, req FeedbackRequest) (*FeedbackResult, error)
	ProduceValidation(ctx context.Context, req ValidationRequest) (*ValidationResult, error)
}

// Prompt is one system+user exchange sent to a provider.
type Prompt struct {
	System    string
	User      string
	MaxTokens int
}

type Provider interface {
	Name() string
	Complete(ctx context.Context, p Prompt) (string, error)
}
