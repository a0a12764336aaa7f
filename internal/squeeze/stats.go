package squeeze

import (
	"fmt"
	"os"
)

// Result is the size comparison of one finished job
type Result struct {
	Preset         Preset  `json:"preset"`
	OriginalSize   int64   `json:"original_size"`
	CompressedSize int64   `json:"compressed_size"`
	Reduction      float64 `json:"reduction_percent"`
}

// SavedBytes is negative when the output grew.
func (r Result) SavedBytes() int64 {
	return r.OriginalSize - r.CompressedSize
}

// String formats the result the way it is shown to users
func (r Result) String() string {
	return fmt.Sprintf("original %.2f KB, compressed %.2f KB, reduction %.2f%%",
		float64(r.OriginalSize)/1024, float64(r.CompressedSize)/1024, r.Reduction)
}

// Reduction returns (1 - compressed/original) * 100. A negative value means
// the output is larger and is returned unchanged.
func Reduction(original, compressed int64) (float64, error) {
	if original <= 0 {
		return 0, ErrEmptyInput
	}
	return (1 - float64(compressed)/float64(original)) * 100, nil
}

// Measure compares the sizes of the files before and after compression
func Measure(originalPath, compressedPath string) (Result, error) {
	original, err := fileSize(originalPath)
	if err != nil {
		return Result{}, err
	}
	compressed, err := fileSize(compressedPath)
	if err != nil {
		return Result{}, err
	}

	reduction, err := Reduction(original, compressed)
	if err != nil {
		return Result{}, &InvalidInputError{Path: originalPath, Reason: "cannot compute reduction", Err: err}
	}

	return Result{
		OriginalSize:   original,
		CompressedSize: compressed,
		Reduction:      reduction,
	}, nil
}

func fileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, &InvalidInputError{Path: path, Reason: "cannot access file", Err: err}
	}
	return info.Size(), nil
}
