package squeeze

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/acm19/pdfsqueeze/internal/logger"
	"github.com/google/uuid"
)

const (
	inputFileName  = "input.pdf"
	outputFileName = "compressed.pdf"
)

// Job is a single compression request. It is owned by the call that created it.
type Job struct {
	ID     string
	Input  string
	Output string
	Preset Preset
}

// Workspace is a scratch directory private to one job.
type Workspace struct {
	id  string
	dir string

	cleanupOnce sync.Once
	cleanupErr  error
}

// NewWorkspace creates a uniquely named directory under root. An empty root
// uses the system temporary directory.
func NewWorkspace(root string) (*Workspace, error) {
	id := uuid.NewString()
	dir, err := os.MkdirTemp(root, fmt.Sprintf("pdfsqueeze-%s-*", id))
	if err != nil {
		return nil, fmt.Errorf("failed to create workspace: %w", err)
	}
	logger.Debug("Created workspace", "job", id, "path", dir)
	return &Workspace{id: id, dir: dir}, nil
}

// ID returns the job identifier the workspace was created for.
func (w *Workspace) ID() string {
	return w.id
}

// Dir returns the workspace directory.
func (w *Workspace) Dir() string {
	return w.dir
}

// InputPath is where the job's source document is stored.
func (w *Workspace) InputPath() string {
	return filepath.Join(w.dir, inputFileName)
}

// OutputPath is where the compressor writes its result.
func (w *Workspace) OutputPath() string {
	return filepath.Join(w.dir, outputFileName)
}

// Job returns the job bound to this workspace's paths.
func (w *Workspace) Job(preset Preset) Job {
	return Job{
		ID:     w.id,
		Input:  w.InputPath(),
		Output: w.OutputPath(),
		Preset: preset,
	}
}

// Cleanup removes the workspace. Only the first call does any work.
func (w *Workspace) Cleanup() error {
	if w == nil {
		return nil
	}
	w.cleanupOnce.Do(func() {
		logger.Debug("Cleaning up workspace", "job", w.id, "path", w.dir)
		if err := os.RemoveAll(w.dir); err != nil {
			logger.Error("Failed to remove workspace", "path", w.dir, "error", err)
			w.cleanupErr = err
		}
	})
	return w.cleanupErr
}
