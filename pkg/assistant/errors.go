package assistant

import "errors"

// Errors returned by the pipeline. The HTTP layer maps each to a status.
var (
	ErrInvalidRequest    = errors.New("invalid request")
	ErrInvalidAudio      = errors.New("invalid audio")
	ErrMissingCompletion = errors.New("no response generated by the completion provider")
	ErrSynthesisFailed   = errors.New("voice synthesis failed")
)
