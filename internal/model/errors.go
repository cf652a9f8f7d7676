package model

import (
	"errors"
	"fmt"
)

var (
	ErrDocumentNotFound = errors.New("document not found")
	ErrMissingAPIKey    = errors.New("groq api key is not set")
	ErrEmptyResponse    = errors.New("no response generated from groq api")
)

type GenerationErrorKind string

const (
	GenerationErrorMissingCredential = GenerationErrorKind("missing_credential")
	GenerationErrorRateLimited       = GenerationErrorKind("rate_limited")
	GenerationErrorQuotaExceeded     = GenerationErrorKind("quota_exceeded")
	GenerationErrorEmptyResponse     = GenerationErrorKind("empty_response")
	GenerationErrorUnknown           = GenerationErrorKind("unknown")
)

// GenerationError is returned by the inference gateway for every failed
// completion.
type GenerationError struct {
	Kind GenerationErrorKind
	Err  error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed (%s): %v", e.Kind, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// GenerationErrorKindOf reports the kind of a generation error, or
// GenerationErrorUnknown for any other error.
func GenerationErrorKindOf(err error) GenerationErrorKind {
	var genErr *GenerationError
	if errors.As(err, &genErr) {
		return genErr.Kind
	}
	return GenerationErrorUnknown
}
