package squeeze

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/acm19/pdfsqueeze/internal/logger"
)

// BatchSummary aggregates the outcome of a directory run
type BatchSummary struct {
	Files           int     `json:"files"`
	Succeeded       int     `json:"succeeded"`
	Failed          int     `json:"failed"`
	OriginalBytes   int64   `json:"original_bytes"`
	CompressedBytes int64   `json:"compressed_bytes"`
	Reduction       float64 `json:"reduction_percent"`
}

type fileToCompress struct {
	srcPath  string
	destPath string
}

type batchOutcome struct {
	file   fileToCompress
	result Result
	err    error
}

// ValidateDirectories checks that source and target exist, are directories
// and that target does not lie within source
func ValidateDirectories(sourceDir, targetDir string) error {
	if info, err := os.Stat(sourceDir); err != nil || !info.IsDir() {
		return fmt.Errorf("SOURCE_DIR is not a valid directory: %s", sourceDir)
	}
	if info, err := os.Stat(targetDir); err != nil || !info.IsDir() {
		return fmt.Errorf("TARGET_DIR is not a valid directory: %s", targetDir)
	}

	absSource, err := filepath.Abs(sourceDir)
	if err != nil {
		return fmt.Errorf("failed to resolve SOURCE_DIR: %w", err)
	}
	absTarget, err := filepath.Abs(targetDir)
	if err != nil {
		return fmt.Errorf("failed to resolve TARGET_DIR: %w", err)
	}
	// Outputs written inside the source tree would be picked up by the walk again
	if rel, err := filepath.Rel(absSource, absTarget); err == nil && !isOutside(rel) {
		return fmt.Errorf("TARGET_DIR must not be SOURCE_DIR or inside it: %s", targetDir)
	}
	return nil
}

// isOutside reports whether a filepath.Rel result leaves its base directory
func isOutside(rel string) bool {
	return rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// isPDF reports whether a path has a .pdf extension, ignoring case
func isPDF(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".pdf")
}

// CountPDFs counts PDF files in a directory tree, skipping dot files and dot directories
func CountPDFs(dir string) (int, error) {
	count := 0
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if strings.HasPrefix(info.Name(), ".") && path != dir {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !info.IsDir() && isPDF(path) {
			count++
		}
		return nil
	})
	return count, err
}

// CompressDirectory compresses every PDF under sourceDir into the same
// relative location under targetDir using a bounded worker pool. Each file
// runs in its own workspace. All files are attempted and the first error, if
// any, is returned alongside the summary.
func (s *Squeezer) CompressDirectory(ctx context.Context, sourceDir, targetDir string, opts BatchOptions) (BatchSummary, error) {
	var summary BatchSummary

	if err := ValidateDirectories(sourceDir, targetDir); err != nil {
		return summary, err
	}
	if _, err := opts.Preset.Flag(); err != nil {
		return summary, err
	}

	logger.Info("Counting files", "source", sourceDir)
	totalFiles, err := CountPDFs(sourceDir)
	if err != nil {
		return summary, fmt.Errorf("failed to count files: %w", err)
	}
	summary.Files = totalFiles
	if totalFiles == 0 {
		logger.Info("No PDF files found", "source", sourceDir)
		return summary, nil
	}

	numWorkers := opts.MaxConcurrency
	if numWorkers <= 0 {
		numWorkers = DefaultBatchOptions().MaxConcurrency
	}
	logger.Info("Starting batch compression", "files", totalFiles, "workers", numWorkers, "preset", opts.Preset)
	start := time.Now()

	jobs := make(chan fileToCompress, numWorkers)
	outcomes := make(chan batchOutcome, numWorkers)
	var wg sync.WaitGroup
	var processed atomic.Int64

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go s.compressWorker(ctx, i, jobs, outcomes, opts, totalFiles, &processed, &wg)
	}

	go s.discoverPDFs(ctx, sourceDir, targetDir, jobs)

	go func() {
		wg.Wait()
		close(outcomes)
	}()

	var errors []error
	for outcome := range outcomes {
		if outcome.err != nil {
			summary.Failed++
			errors = append(errors, outcome.err)
			continue
		}
		summary.Succeeded++
		summary.OriginalBytes += outcome.result.OriginalSize
		summary.CompressedBytes += outcome.result.CompressedSize
	}

	if summary.OriginalBytes > 0 {
		summary.Reduction, _ = Reduction(summary.OriginalBytes, summary.CompressedBytes)
	}

	if len(errors) > 0 {
		if len(errors) > 1 {
			logger.Error("Multiple errors occurred during batch compression", "error_count", len(errors))
			for i, err := range errors {
				logger.Error("Compression error", "index", i+1, "error", err)
			}
		}
		return summary, errors[0]
	}
	if err := ctx.Err(); err != nil {
		return summary, fmt.Errorf("batch interrupted: %w", err)
	}

	logger.Info("Batch compression completed", "succeeded", summary.Succeeded,
		"reduction_percent", fmt.Sprintf("%.2f", summary.Reduction), "duration_seconds", time.Since(start).Seconds())
	return summary, nil
}

// compressWorker compresses files from the jobs channel
func (s *Squeezer) compressWorker(ctx context.Context, workerID int, jobs <-chan fileToCompress, outcomes chan<- batchOutcome, opts BatchOptions, total int, processed *atomic.Int64, wg *sync.WaitGroup) {
	defer wg.Done()
	for file := range jobs {
		logger.Debug("Worker processing file", "worker", workerID, "file", file.srcPath)

		outcome := batchOutcome{file: file}
		if err := os.MkdirAll(filepath.Dir(file.destPath), 0755); err != nil {
			outcome.err = fmt.Errorf("failed to create directory for %s: %w", file.destPath, err)
		} else if resp, err := s.SqueezeFile(ctx, file.srcPath, file.destPath, opts.Preset, nil); err != nil {
			outcome.err = fmt.Errorf("failed to compress %s: %w", file.srcPath, err)
		} else {
			outcome.result = resp.Result
		}

		current := processed.Add(1)
		emitProgress(opts.ProgressChan, ProgressEvent{
			Stage:   StageDone,
			Current: int(current),
			Total:   total,
			Message: fmt.Sprintf("Compressed file %d of %d", current, total),
			File:    file.srcPath,
		})
		outcomes <- outcome
	}
}

// discoverPDFs walks sourceDir and feeds the jobs channel until the walk ends or ctx is done
func (s *Squeezer) discoverPDFs(ctx context.Context, sourceDir, targetDir string, jobs chan<- fileToCompress) {
	defer close(jobs)

	filepath.Walk(sourceDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			logger.Debug("Error accessing path", "path", path, "error", err)
			return err
		}
		if strings.HasPrefix(info.Name(), ".") && path != sourceDir {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if info.IsDir() || !isPDF(path) {
			return nil
		}

		relPath, err := filepath.Rel(sourceDir, path)
		if err != nil {
			return err
		}

		select {
		case jobs <- fileToCompress{srcPath: path, destPath: filepath.Join(targetDir, relPath)}:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
}
