package domain

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestFirstText_ReadsFirstPartOfFirstCandidate(t *testing.T) {
	resp := &GenerationResponse{Candidates: []Candidate{
		{Content: &Content{Parts: []Part{{Text: "first"}, {Text: "second"}}}},
		{Content: &Content{Parts: []Part{{Text: "other"}}}},
	}}
	text, err := FirstText(resp)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "first" {
		t.Fatalf("expected 'first', got %q", text)
	}
}

func TestFirstText_Missing(t *testing.T) {
	cases := map[string]*GenerationResponse{
		"nil response":  nil,
		"no candidates": {},
		"nil content":   {Candidates: []Candidate{{FinishReason: "SAFETY"}}},
		"no parts":      {Candidates: []Candidate{{Content: &Content{}}}},
	}
	for name, resp := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := FirstText(resp); !errors.Is(err, ErrMissingContent) {
				t.Fatalf("expected ErrMissingContent, got %v", err)
			}
		})
	}
}

func TestFirstText_EmptyTextIsNotMissing(t *testing.T) {
	resp := &GenerationResponse{Candidates: []Candidate{{Content: &Content{Parts: []Part{{}}}}}}
	text, err := FirstText(resp)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "" {
		t.Fatalf("expected empty text, got %q", text)
	}
}

func TestKindOf(t *testing.T) {
	cases := []struct {
		err  error
		want ErrorKind
	}{
		{nil, KindNone},
		{fmt.Errorf("gemini: %w", ErrGeneration), KindGeneration},
		{fmt.Errorf("%w: unexpected EOF", ErrDecode), KindDecode},
		{ErrMissingContent, KindMissingContent},
		{fmt.Errorf("send text: %w", ErrDelivery), KindDelivery},
		{context.DeadlineExceeded, KindCanceled},
		{errors.New("boom"), KindUnknown},
	}
	for _, tc := range cases {
		if got := KindOf(tc.err); got != tc.want {
			t.Errorf("KindOf(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}

func TestInboundMessage_FromBot(t *testing.T) {
	if (InboundMessage{Author: Author{Bot: true}}).FromBot() != true {
		t.Fatal("expected bot author to be detected")
	}
	if (InboundMessage{Author: Author{Username: "alice"}}).FromBot() {
		t.Fatal("expected human author not to be flagged")
	}
}
