package squeeze

import (
	"bytes"
	"io"
	"os"

	"github.com/acm19/pdfsqueeze/internal/logger"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

var pdfMagic = []byte("%PDF")

// Validator checks that a file is usable as compression input
type Validator interface {
	// Validate returns an InvalidInputError describing why path cannot be compressed
	Validate(path string) error
}

// headerValidator checks the file type by its leading bytes only
type headerValidator struct{}

// NewHeaderValidator returns a Validator that checks existence, size and the %PDF header
func NewHeaderValidator() Validator {
	return &headerValidator{}
}

func (v *headerValidator) Validate(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return &InvalidInputError{Path: path, Reason: "cannot access file", Err: err}
	}
	if !info.Mode().IsRegular() {
		return &InvalidInputError{Path: path, Reason: "not a regular file"}
	}
	if info.Size() == 0 {
		return &InvalidInputError{Path: path, Reason: "file is 0 bytes", Err: ErrEmptyInput}
	}

	f, err := os.Open(path)
	if err != nil {
		return &InvalidInputError{Path: path, Reason: "cannot open file", Err: err}
	}
	defer f.Close()

	header := make([]byte, len(pdfMagic))
	if _, err := io.ReadFull(f, header); err != nil || !bytes.Equal(header, pdfMagic) {
		return &InvalidInputError{Path: path, Reason: "not a PDF document (missing %PDF header)"}
	}
	return nil
}

// strictValidator additionally parses the document structure with pdfcpu
type strictValidator struct {
	header Validator
	conf   *model.Configuration
}

// NewStrictValidator returns a Validator that runs the header checks followed
// by pdfcpu's relaxed structural validation.
func NewStrictValidator() Validator {
	api.DisableConfigDir()
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return &strictValidator{
		header: NewHeaderValidator(),
		conf:   conf,
	}
}

func (v *strictValidator) Validate(path string) error {
	if err := v.header.Validate(path); err != nil {
		return err
	}
	if err := api.ValidateFile(path, v.conf); err != nil {
		logger.Debug("Structural validation failed", "path", path, "error", err)
		return &InvalidInputError{Path: path, Reason: "malformed PDF structure", Err: err}
	}
	return nil
}
