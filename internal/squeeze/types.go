package squeeze

// Progress stages reported on ProgressEvent.Stage.
const (
	StageValidating  = "validating"
	StageCompressing = "compressing"
	StageMeasuring   = "measuring"
	StageDone        = "done"
)

// BatchOptions holds configuration options for compressing a directory.
type BatchOptions struct {
	// Preset is the quality preset applied to every file.
	Preset Preset
	// MaxConcurrency is the maximum number of files compressed at once (0 = default).
	MaxConcurrency int
	// ProgressChan is an optional channel for receiving progress events.
	ProgressChan chan<- ProgressEvent
}

// DefaultBatchOptions returns the default batch options.
func DefaultBatchOptions() BatchOptions {
	return BatchOptions{
		Preset:         DefaultPreset,
		MaxConcurrency: 4,
		ProgressChan:   nil,
	}
}

// ProgressEvent represents a progress update while a job runs. Ghostscript
// reports nothing while it works, so events mark stage transitions only.
type ProgressEvent struct {
	// JobID identifies the job the event belongs to.
	JobID string
	// Stage is one of the Stage constants.
	Stage string
	// Current is the number of files finished so far (batch runs only).
	Current int
	// Total is the total number of files (batch runs only).
	Total int
	// Message is a human-readable description of the current operation.
	Message string
	// File is the name of the file being processed.
	File string
}
