package squeeze

import (
	"fmt"

	"github.com/barasher/go-exiftool"
)

const (
	exifPageCount  = "PageCount"
	exifTitle      = "Title"
	exifProducer   = "Producer"
	exifPDFVersion = "PDFVersion"
)

// Metadata is the document information reported for a PDF
type Metadata struct {
	PageCount  int64  `json:"page_count"`
	Title      string `json:"title,omitempty"`
	Producer   string `json:"producer,omitempty"`
	PDFVersion string `json:"pdf_version,omitempty"`
}

// Inspector defines the interface for reading PDF metadata
type Inspector interface {
	// Inspect reads the document metadata of the file at path
	Inspect(path string) (Metadata, error)
}

// exifInspector implements the Inspector interface with exiftool
type exifInspector struct {
	et *exiftool.Exiftool
}

// NewExifInspector creates an Inspector backed by a running exiftool instance.
// The caller owns et and must close it.
func NewExifInspector(et *exiftool.Exiftool) Inspector {
	return &exifInspector{et: et}
}

// Inspect reads page count, title, producer and version from the document
func (i *exifInspector) Inspect(path string) (Metadata, error) {
	if i.et == nil {
		return Metadata{}, fmt.Errorf("exiftool not initialised")
	}

	fileInfos := i.et.ExtractMetadata(path)
	if len(fileInfos) == 0 {
		return Metadata{}, fmt.Errorf("no metadata returned for %s", path)
	}
	if fileInfos[0].Err != nil {
		return Metadata{}, fmt.Errorf("failed to read metadata for %s: %w", path, fileInfos[0].Err)
	}

	info := fileInfos[0]
	var md Metadata
	if pages, err := info.GetInt(exifPageCount); err == nil {
		md.PageCount = pages
	}
	if title, err := info.GetString(exifTitle); err == nil {
		md.Title = title
	}
	if producer, err := info.GetString(exifProducer); err == nil {
		md.Producer = producer
	}
	if version, err := info.GetString(exifPDFVersion); err == nil {
		md.PDFVersion = version
	}
	return md, nil
}
