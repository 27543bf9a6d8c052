package domain

import "context"

// ResponseKind is the media type the generator is asked to produce.
type ResponseKind string

const (
	KindText ResponseKind = "text"
)

// Generator is the interface the relay uses to obtain generated text.
type Generator interface {
	Generate(ctx context.Context, req GenerationRequest) (*GenerationResponse, error)
	Name() string
	Healthy(ctx context.Context) error
}

// GenerationRequest is a single stateless generation call.
type GenerationRequest struct {
	Model       string
	Instruction string // system instruction; empty means none
	Input       string
	MaxTokens   int // 0 = provider default
	Memory      bool
	Kind        ResponseKind
}

type GenerationResponse struct {
	Candidates []Candidate `json:"candidates"`
}

type Candidate struct {
	Content      *Content `json:"content,omitempty"`
	FinishReason string   `json:"finishReason,omitempty"`
}

type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

type Part struct {
	Text string `json:"text"`
}

// FirstText returns the text of the first part of the first candidate.
// It fails with ErrMissingContent when any level of that path is absent.
func FirstText(resp *GenerationResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", ErrMissingContent
	}
	c := resp.Candidates[0].Content
	if c == nil || len(c.Parts) == 0 {
		return "", ErrMissingContent
	}
	return c.Parts[0].Text, nil
}
