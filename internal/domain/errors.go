package domain

import (
	"context"
	"errors"
)

var (
	// ErrGeneration covers transport failures and error responses from the AI provider.
	ErrGeneration = errors.New("generation failed")
	// ErrDecode means the provider answered with a body that could not be decoded.
	ErrDecode = errors.New("decode generation response")
	// ErrMissingContent means the response had no candidate or no part to read.
	ErrMissingContent = errors.New("response has no content")
	// ErrDelivery means the gateway refused or failed an outbound send.
	ErrDelivery = errors.New("delivery failed")
)

// ErrorKind names a per-message failure class for logs and metrics.
type ErrorKind string

const (
	KindNone           ErrorKind = ""
	KindGeneration     ErrorKind = "generation"
	KindDecode         ErrorKind = "decode"
	KindMissingContent ErrorKind = "missing_content"
	KindDelivery       ErrorKind = "delivery"
	KindCanceled       ErrorKind = "canceled"
	KindUnknown        ErrorKind = "unknown"
)

// KindOf classifies err against the sentinel errors above.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrDecode):
		return KindDecode
	case errors.Is(err, ErrMissingContent):
		return KindMissingContent
	case errors.Is(err, ErrDelivery):
		return KindDelivery
	case errors.Is(err, ErrGeneration):
		return KindGeneration
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	default:
		return KindUnknown
	}
}
