package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/acm19/pdfsqueeze/internal/squeeze"
	"github.com/acm19/pdfsqueeze/internal/storage"
)

// explain turns an error into guidance for the person running the command
func explain(err error) string {
	var toolErr *squeeze.ToolNotFoundError
	var failedErr *squeeze.CompressionFailedError
	var presetErr *squeeze.InvalidPresetError
	var inputErr *squeeze.InvalidInputError

	switch {
	case errors.As(err, &toolErr):
		return fmt.Sprintf("%s could not be found. Install it (for Ghostscript: apt install ghostscript, brew install ghostscript) or set its path in the config file.", toolErr.Tool)
	case errors.As(err, &failedErr) && failedErr.Cancelled():
		return "Compression was cancelled before Ghostscript finished."
	case errors.As(err, &failedErr):
		msg := fmt.Sprintf("Ghostscript could not compress %s with the %s preset (exit code %d). The file may be damaged or password protected.",
			failedErr.Input, failedErr.Preset, failedErr.ExitCode)
		if failedErr.Stderr != "" {
			msg += "\nGhostscript said: " + failedErr.Stderr
		}
		return msg
	case errors.As(err, &presetErr):
		var names []string
		for _, p := range squeeze.Presets() {
			names = append(names, p.String())
		}
		return fmt.Sprintf("Unknown preset %q. Choose one of: %s.", presetErr.Preset, strings.Join(names, ", "))
	case errors.Is(err, squeeze.ErrEmptyInput):
		return "The input file is empty, there is nothing to compress."
	case errors.As(err, &inputErr):
		return fmt.Sprintf("Cannot use %s: %s.", inputErr.Path, inputErr.Reason)
	case errors.Is(err, storage.ErrConflict):
		return "A different file already exists at the destination. Set overwrite_remote in the config file to replace it."
	default:
		return err.Error()
	}
}
