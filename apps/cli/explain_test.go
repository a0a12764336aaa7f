package main

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"testing"

	"github.com/acm19/pdfsqueeze/internal/squeeze"
	"github.com/acm19/pdfsqueeze/internal/storage"
)

func TestExplain(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		contains string
	}{
		{
			name:     "tool not found",
			err:      &squeeze.ToolNotFoundError{Tool: "gs", Err: exec.ErrNotFound},
			contains: "Install it",
		},
		{
			name:     "compression failed with stderr",
			err:      fmt.Errorf("wrapped: %w", &squeeze.CompressionFailedError{Input: "a.pdf", Preset: squeeze.PresetEbook, ExitCode: 1, Stderr: "Unrecoverable error"}),
			contains: "exit code 1",
		},
		{
			name:     "cancelled",
			err:      &squeeze.CompressionFailedError{Input: "a.pdf", Preset: squeeze.PresetEbook, ExitCode: -1, Err: fmt.Errorf("%w: %w", squeeze.ErrCancelled, context.Canceled)},
			contains: "cancelled",
		},
		{
			name:     "invalid preset",
			err:      &squeeze.InvalidPresetError{Preset: "tiny"},
			contains: "screen, ebook, printer",
		},
		{
			name:     "empty input",
			err:      &squeeze.InvalidInputError{Path: "a.pdf", Reason: "file is 0 bytes", Err: squeeze.ErrEmptyInput},
			contains: "empty",
		},
		{
			name:     "invalid input",
			err:      &squeeze.InvalidInputError{Path: "a.txt", Reason: "not a PDF document"},
			contains: "Cannot use a.txt",
		},
		{
			name:     "remote conflict",
			err:      fmt.Errorf("%w: s3://b/k", storage.ErrConflict),
			contains: "overwrite_remote",
		},
		{
			name:     "other",
			err:      errors.New("disk on fire"),
			contains: "disk on fire",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := explain(tt.err)
			if !strings.Contains(got, tt.contains) {
				t.Errorf("explain() = %q, want it to contain %q", got, tt.contains)
			}
		})
	}
}

func TestExplain_StderrIncluded(t *testing.T) {
	err := &squeeze.CompressionFailedError{Input: "a.pdf", Preset: squeeze.PresetScreen, ExitCode: 1, Stderr: "**** Error: Cannot find a 'startxref'"}
	if got := explain(err); !strings.Contains(got, "startxref") {
		t.Errorf("explain() = %q, want stderr text", got)
	}
}
