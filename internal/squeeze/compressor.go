package squeeze

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/acm19/pdfsqueeze/internal/logger"
)

const (
	// DefaultGhostscriptBinary is looked up on PATH when no explicit path is configured.
	DefaultGhostscriptBinary = "gs"

	// maxStderrBytes caps how much diagnostic output is kept from a failing run.
	maxStderrBytes = 64 * 1024

	// waitDelay bounds how long a killed run may hold its output pipes open.
	waitDelay = 2 * time.Second
)

var errNoOutput = errors.New("no output produced")

// Compressor defines the interface for compressing a PDF job
type Compressor interface {
	// Compress writes job.Input, compressed with job.Preset, to job.Output
	Compress(ctx context.Context, job Job) error
}

// Ghostscript implements the Compressor interface by running the gs binary
type Ghostscript struct {
	path    string
	timeout time.Duration
}

// NewGhostscript resolves binary on PATH and returns a compressor bound to it.
// It fails with a ToolNotFoundError when the binary cannot be located, so a
// missing installation is reported before any job starts. A zero timeout
// leaves the run bounded only by the caller's context.
func NewGhostscript(binary string, timeout time.Duration) (*Ghostscript, error) {
	if binary == "" {
		binary = DefaultGhostscriptBinary
	}
	path, err := exec.LookPath(binary)
	if err != nil {
		return nil, &ToolNotFoundError{Tool: binary, Err: err}
	}
	logger.Debug("Resolved ghostscript binary", "path", path)
	return &Ghostscript{path: path, timeout: timeout}, nil
}

// Path returns the resolved location of the binary.
func (g *Ghostscript) Path() string {
	return g.path
}

// Version runs "gs --version" and returns the trimmed output.
func (g *Ghostscript) Version(ctx context.Context) (string, error) {
	out, err := exec.CommandContext(ctx, g.path, "--version").Output()
	if err != nil {
		return "", fmt.Errorf("failed to query %s version: %w", g.path, err)
	}
	return strings.TrimSpace(string(out)), nil
}

// Arguments builds the argument vector for a job. The input path is always the
// final positional argument and no element is ever passed through a shell.
func Arguments(job Job) ([]string, error) {
	flag, err := job.Preset.Flag()
	if err != nil {
		return nil, err
	}
	return []string{
		"-sDEVICE=pdfwrite",
		"-dCompatibilityLevel=1.4",
		"-dPDFSETTINGS=" + flag,
		"-dNOPAUSE",
		"-dQUIET",
		"-dBATCH",
		"-sOutputFile=" + job.Output,
		job.Input,
	}, nil
}

// Compress runs gs for a single job and blocks until it exits
func (g *Ghostscript) Compress(ctx context.Context, job Job) error {
	args, err := Arguments(job)
	if err != nil {
		return err
	}
	if err := checkJobPaths(job); err != nil {
		return err
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	stderr := &limitedBuffer{limit: maxStderrBytes}
	cmd := exec.CommandContext(ctx, g.path, args...)
	cmd.Stdout = io.Discard
	cmd.Stderr = stderr
	cmd.WaitDelay = waitDelay
	killProcessGroup(cmd)

	logger.Debug("Running ghostscript", "job", job.ID, "preset", job.Preset, "input", job.Input, "output", job.Output)
	start := time.Now()
	runErr := cmd.Run()
	logger.Debug("Ghostscript finished", "job", job.ID, "duration_seconds", time.Since(start).Seconds())

	failed := &CompressionFailedError{
		Input:    job.Input,
		Preset:   job.Preset,
		ExitCode: exitCode(runErr),
		Stderr:   strings.TrimSpace(stderr.String()),
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		failed.Err = fmt.Errorf("%w: %w", ErrCancelled, ctxErr)
		return failed
	}

	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			return failed
		}
		if errors.Is(runErr, exec.ErrNotFound) || errors.Is(runErr, fs.ErrNotExist) {
			return &ToolNotFoundError{Tool: g.path, Err: runErr}
		}
		failed.Err = runErr
		return failed
	}

	info, err := os.Stat(job.Output)
	if err != nil || info.Size() == 0 {
		failed.Err = errNoOutput
		return failed
	}
	return nil
}

// checkJobPaths verifies the job's files before the tool is started
func checkJobPaths(job Job) error {
	info, err := os.Stat(job.Input)
	if err != nil {
		return &InvalidInputError{Path: job.Input, Reason: "cannot access file", Err: err}
	}
	if !info.Mode().IsRegular() {
		return &InvalidInputError{Path: job.Input, Reason: "not a regular file"}
	}

	in, err := filepath.Abs(job.Input)
	if err != nil {
		return &InvalidInputError{Path: job.Input, Reason: "cannot resolve path", Err: err}
	}
	out, err := filepath.Abs(job.Output)
	if err != nil {
		return &InvalidInputError{Path: job.Output, Reason: "cannot resolve path", Err: err}
	}
	if in == out {
		return &InvalidInputError{Path: job.Output, Reason: "output path must differ from input path"}
	}

	if dir, err := os.Stat(filepath.Dir(out)); err != nil || !dir.IsDir() {
		return &InvalidInputError{Path: job.Output, Reason: "output directory does not exist", Err: err}
	}
	return nil
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

// limitedBuffer keeps the first limit bytes written to it and drops the rest
type limitedBuffer struct {
	buf       strings.Builder
	limit     int
	truncated bool
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	if room := b.limit - b.buf.Len(); room > 0 {
		if len(p) > room {
			b.buf.Write(p[:room])
			b.truncated = true
		} else {
			b.buf.Write(p)
		}
	} else if len(p) > 0 {
		b.truncated = true
	}
	return len(p), nil
}

func (b *limitedBuffer) String() string {
	if b.truncated {
		return b.buf.String() + "... (truncated)"
	}
	return b.buf.String()
}
