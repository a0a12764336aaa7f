package squeeze

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/acm19/pdfsqueeze/internal/logger"
)

// OutputFileMode is the permission given to compressed files written to disk.
const OutputFileMode os.FileMode = 0644

// Request is one document to compress. Source is read completely before the
// tool runs and the compressed document is written to Destination.
type Request struct {
	Name         string
	Preset       Preset
	Source       io.Reader
	Destination  io.Writer
	ProgressChan chan<- ProgressEvent
}

// Response describes a finished job
type Response struct {
	JobID  string `json:"job_id"`
	Name   string `json:"name"`
	Result Result `json:"result"`
	// Before and After are set only when an Inspector is configured.
	Before *Metadata `json:"before,omitempty"`
	After  *Metadata `json:"after,omitempty"`
}

// PageCountChanged reports whether the inspector saw a different page count after compression.
func (r *Response) PageCountChanged() bool {
	return r.Before != nil && r.After != nil && r.Before.PageCount != r.After.PageCount
}

// Squeezer runs compression jobs, each in its own workspace
type Squeezer struct {
	compressor Compressor
	validator  Validator
	inspector  Inspector
	scratchDir string
}

// NewSqueezer creates a Squeezer. A nil validator falls back to the header
// validator and a nil inspector disables metadata reporting. Workspaces are
// created under scratchDir, or the system temp dir when it is empty.
func NewSqueezer(compressor Compressor, validator Validator, inspector Inspector, scratchDir string) *Squeezer {
	if validator == nil {
		validator = NewHeaderValidator()
	}
	return &Squeezer{
		compressor: compressor,
		validator:  validator,
		inspector:  inspector,
		scratchDir: scratchDir,
	}
}

// Squeeze compresses req.Source into req.Destination. The workspace is removed
// before Squeeze returns, whether the job succeeded or not.
func (s *Squeezer) Squeeze(ctx context.Context, req Request) (*Response, error) {
	if req.Source == nil || req.Destination == nil {
		return nil, fmt.Errorf("request needs both a source and a destination")
	}
	if _, err := req.Preset.Flag(); err != nil {
		return nil, err
	}

	ws, err := NewWorkspace(s.scratchDir)
	if err != nil {
		return nil, err
	}
	defer ws.Cleanup()

	job := ws.Job(req.Preset)
	resp := &Response{JobID: job.ID, Name: req.Name}
	start := time.Now()
	logger.Info("Starting compression", "job", job.ID, "name", req.Name, "preset", req.Preset)

	if err := writeFile(job.Input, req.Source); err != nil {
		return nil, fmt.Errorf("failed to store input: %w", err)
	}

	emitProgress(req.ProgressChan, ProgressEvent{JobID: job.ID, Stage: StageValidating, Message: "Validating input", File: req.Name})
	if err := s.validator.Validate(job.Input); err != nil {
		return nil, err
	}
	resp.Before = s.inspect(job.Input)

	emitProgress(req.ProgressChan, ProgressEvent{JobID: job.ID, Stage: StageCompressing, Message: "Compressing", File: req.Name})
	if err := s.compressor.Compress(ctx, job); err != nil {
		logger.Debug("Compression failed", "job", job.ID, "error", err)
		return nil, err
	}

	emitProgress(req.ProgressChan, ProgressEvent{JobID: job.ID, Stage: StageMeasuring, Message: "Measuring output", File: req.Name})
	result, err := Measure(job.Input, job.Output)
	if err != nil {
		return nil, err
	}
	result.Preset = req.Preset
	resp.Result = result

	resp.After = s.inspect(job.Output)
	if resp.PageCountChanged() {
		logger.Warn("Page count changed during compression", "job", job.ID, "before", resp.Before.PageCount, "after", resp.After.PageCount)
	}

	if err := copyOut(job.Output, req.Destination); err != nil {
		return nil, fmt.Errorf("failed to deliver output: %w", err)
	}

	emitProgress(req.ProgressChan, ProgressEvent{JobID: job.ID, Stage: StageDone, Message: result.String(), File: req.Name})
	logger.Info("Compression complete", "job", job.ID, "name", req.Name,
		"original_bytes", result.OriginalSize, "compressed_bytes", result.CompressedSize,
		"reduction_percent", fmt.Sprintf("%.2f", result.Reduction),
		"duration_seconds", time.Since(start).Seconds())
	return resp, nil
}

// SqueezeFile compresses the file at inPath into outPath. The output is
// written next to outPath first and renamed into place only on success.
func (s *Squeezer) SqueezeFile(ctx context.Context, inPath, outPath string, preset Preset, progress chan<- ProgressEvent) (*Response, error) {
	absIn, err := filepath.Abs(inPath)
	if err != nil {
		return nil, &InvalidInputError{Path: inPath, Reason: "cannot resolve path", Err: err}
	}
	absOut, err := filepath.Abs(outPath)
	if err != nil {
		return nil, &InvalidInputError{Path: outPath, Reason: "cannot resolve path", Err: err}
	}
	if absIn == absOut {
		return nil, &InvalidInputError{Path: outPath, Reason: "output path must differ from input path"}
	}

	in, err := os.Open(inPath)
	if err != nil {
		return nil, &InvalidInputError{Path: inPath, Reason: "cannot open file", Err: err}
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(absOut), ".pdfsqueeze-*.pdf")
	if err != nil {
		return nil, &InvalidInputError{Path: outPath, Reason: "cannot write to output directory", Err: err}
	}
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	resp, err := s.Squeeze(ctx, Request{
		Name:         filepath.Base(inPath),
		Preset:       preset,
		Source:       in,
		Destination:  tmp,
		ProgressChan: progress,
	})
	if err != nil {
		return nil, err
	}

	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", outPath, err)
	}
	if err := os.Chmod(tmp.Name(), OutputFileMode); err != nil {
		return nil, fmt.Errorf("failed to set permissions on %s: %w", outPath, err)
	}
	if err := os.Rename(tmp.Name(), absOut); err != nil {
		return nil, fmt.Errorf("failed to move output into place: %w", err)
	}
	committed = true
	return resp, nil
}

func (s *Squeezer) inspect(path string) *Metadata {
	if s.inspector == nil {
		return nil
	}
	md, err := s.inspector.Inspect(path)
	if err != nil {
		logger.Warn("Failed to read document metadata", "path", filepath.Base(path), "error", err)
		return nil
	}
	return &md
}

// emitProgress sends without blocking so a slow listener never stalls a job
func emitProgress(ch chan<- ProgressEvent, event ProgressEvent) {
	if ch == nil {
		return
	}
	select {
	case ch <- event:
	default:
		logger.Debug("Progress event dropped (channel full)", "stage", event.Stage)
	}
}

func writeFile(path string, r io.Reader) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return err
	}
	n, copyErr := io.Copy(f, r)
	closeErr := f.Close()
	if err := errors.Join(copyErr, closeErr); err != nil {
		return err
	}
	logger.Debug("Stored input", "path", path, "bytes", n)
	return nil
}

func copyOut(path string, w io.Writer) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(w, f)
	return err
}
