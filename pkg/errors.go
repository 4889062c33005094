package paqalign

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownChannel     = errors.New("unknown channel")
	ErrBadWindow          = errors.New("trial window must have pre >= 0, post >= 0 and pre+post > 0")
	ErrEmptyClock         = errors.New("frame clock is empty")
	ErrClockNotIncreasing = errors.New("frame clock is not strictly increasing")
	ErrBadRate            = errors.New("sample rate must be positive")
	ErrBadThreshold       = errors.New("cutoff must be above threshold")
	ErrBadDistance        = errors.New("minimum distance must be positive")
	ErrTooManyChannels    = errors.New("channel swap correction supports at most 3 channels")
	ErrSwapInconclusive   = errors.New("channel swap correction failed: no rotation matches the reference pulse train")
	ErrMissingColumn      = errors.New("behavior log is missing a required column")
	ErrOffsetLength       = errors.New("per-trial offsets do not match the number of trials")
)

// ErrOpenFile represents an error when opening a file.
type ErrOpenFile struct {
	Filename string
	Err      error
}

func (e *ErrOpenFile) Error() string {
	return fmt.Sprintf("error opening file %q: %v", e.Filename, e.Err)
}

func (e *ErrOpenFile) Unwrap() error {
	return e.Err
}

// FormatError reports a malformed acquisition file. Offset is the byte
// position where the problem was found.
type FormatError struct {
	Offset int64
	Reason string
	Err    error
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed paq file at byte %d: %s: %v", e.Offset, e.Reason, e.Err)
	}
	return fmt.Sprintf("malformed paq file at byte %d: %s", e.Offset, e.Reason)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}
