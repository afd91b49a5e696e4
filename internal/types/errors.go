package types

import "errors"

var (
	// ErrInvalidInput marks failures that are the caller's fault: a missing
	// filename, an unsupported signature or an oversized body.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedFormat is returned when a header prefix matches none of
	// the accepted audio signatures.
	ErrUnsupportedFormat = errors.New("unsupported audio file type")

	// ErrGeneration is returned when audio bytes cannot be decoded or rendered.
	ErrGeneration = errors.New("spectrogram generation failed")

	// ErrNotFound is returned by blob stores for missing keys.
	ErrNotFound = errors.New("not found")
)

// InvalidInputError wraps a cause so that both errors.Is(err, ErrInvalidInput)
// and errors.Is(err, cause) hold.
type InvalidInputError struct {
	Reason string
	Err    error
}

func (e *InvalidInputError) Error() string {
	if e.Err != nil && e.Reason != "" {
		return e.Reason + ": " + e.Err.Error()
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Reason
}

func (e *InvalidInputError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrInvalidInput}
	}
	return []error{ErrInvalidInput, e.Err}
}

// InvalidInput builds an InvalidInputError.
func InvalidInput(reason string, err error) error {
	return &InvalidInputError{Reason: reason, Err: err}
}
