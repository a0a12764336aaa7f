package squeeze

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidPreset is matched by InvalidPresetError.
	ErrInvalidPreset = errors.New("invalid preset")
	// ErrToolNotFound is matched by ToolNotFoundError.
	ErrToolNotFound = errors.New("compression tool not found")
	// ErrCompressionFailed is matched by CompressionFailedError.
	ErrCompressionFailed = errors.New("compression failed")
	// ErrCancelled is wrapped by CompressionFailedError when the job's context ends before the tool exits.
	ErrCancelled = errors.New("compression cancelled")
	// ErrInvalidInput is matched by InvalidInputError.
	ErrInvalidInput = errors.New("invalid input")
	// ErrEmptyInput reports a zero-byte original, for which no reduction is defined.
	ErrEmptyInput = errors.New("input file is empty")
)

// InvalidPresetError names a preset outside the supported set.
type InvalidPresetError struct {
	Preset string
}

func (e *InvalidPresetError) Error() string {
	return fmt.Sprintf("invalid preset %q (supported: %s)", e.Preset, strings.Join(presetNames(), ", "))
}

func (e *InvalidPresetError) Is(target error) bool {
	return target == ErrInvalidPreset
}

// ToolNotFoundError reports that the external binary could not be located.
type ToolNotFoundError struct {
	Tool string
	Err  error
}

func (e *ToolNotFoundError) Error() string {
	return fmt.Sprintf("%s not found on PATH: %v", e.Tool, e.Err)
}

func (e *ToolNotFoundError) Unwrap() error {
	return e.Err
}

func (e *ToolNotFoundError) Is(target error) bool {
	return target == ErrToolNotFound
}

// CompressionFailedError carries what the tool reported when it ran but did
// not produce a usable result.
type CompressionFailedError struct {
	Input    string
	Preset   Preset
	ExitCode int
	Stderr   string
	Err      error
}

func (e *CompressionFailedError) Error() string {
	msg := fmt.Sprintf("compressing %s with preset %s failed (exit code %d)", e.Input, e.Preset, e.ExitCode)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Stderr != "" {
		msg += ", stderr: " + e.Stderr
	}
	return msg
}

func (e *CompressionFailedError) Unwrap() error {
	return e.Err
}

func (e *CompressionFailedError) Is(target error) bool {
	return target == ErrCompressionFailed
}

// Cancelled reports whether the job was stopped by its context rather than by the tool.
func (e *CompressionFailedError) Cancelled() bool {
	return errors.Is(e.Err, ErrCancelled)
}

// InvalidInputError reports an input or output path that cannot be used for a job.
type InvalidInputError struct {
	Path   string
	Reason string
	Err    error
}

func (e *InvalidInputError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid input %s: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid input %s: %s", e.Path, e.Reason)
}

func (e *InvalidInputError) Unwrap() error {
	return e.Err
}

func (e *InvalidInputError) Is(target error) bool {
	return target == ErrInvalidInput
}
