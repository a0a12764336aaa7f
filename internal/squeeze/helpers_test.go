package squeeze

import (
	"bytes"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

// fakeOutput is what the fake ghostscript writes as its "compressed" document
const fakeOutput = "%PDF-1.4\n%fake compressed output\n%%EOF\n"

// fakeGhostscript writes an executable shell script standing in for gs.
// The script parses -sOutputFile= and the final input argument, then runs body.
// When argsLog is not empty every argument is appended to it, one per line.
func fakeGhostscript(t *testing.T, argsLog, body string) *Ghostscript {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("Skipping test on Windows")
	}
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("Skipping test: /bin/sh not available")
	}

	var script strings.Builder
	script.WriteString("#!/bin/sh\nout=\"\"\nin=\"\"\nfor arg in \"$@\"; do\n")
	if argsLog != "" {
		script.WriteString("  printf '%s\\n' \"$arg\" >> \"" + argsLog + "\"\n")
	}
	script.WriteString("  case \"$arg\" in\n    -sOutputFile=*) out=\"${arg#-sOutputFile=}\" ;;\n  esac\n  in=\"$arg\"\ndone\n")
	script.WriteString(body)
	script.WriteString("\n")

	path := filepath.Join(t.TempDir(), "gs")
	if err := os.WriteFile(path, []byte(script.String()), 0755); err != nil {
		t.Fatalf("Failed to write fake ghostscript: %v", err)
	}

	gs, err := NewGhostscript(path, 0)
	if err != nil {
		t.Fatalf("Failed to create ghostscript: %v", err)
	}
	return gs
}

// Script bodies for fakeGhostscript
const (
	succeedingBody = "printf '" + `%%PDF-1.4\n%%fake compressed output\n%%%%EOF\n` + "' > \"$out\""
	failingBody    = "echo 'Unrecoverable error, exit code 1' >&2\nexit 3"
	silentBody     = "exit 0"
	sleepingBody   = "exec sleep 10"
	// wrapperBody keeps a child process holding stderr open, like a gs shim
	wrapperBody = "sleep 10\nexit 0"
	// selectiveBody fails for inputs containing the word BROKEN
	selectiveBody = "if grep -q BROKEN \"$in\"; then echo 'broken input' >&2; exit 1; fi\n" + succeedingBody
)

// createPDF writes a file starting with the PDF header padded to size bytes
func createPDF(t *testing.T, dir, name string, size int) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("Failed to create directory: %v", err)
	}
	if err := os.WriteFile(path, pdfContent(size), 0644); err != nil {
		t.Fatalf("Failed to create file %s: %v", path, err)
	}
	return path
}

func pdfContent(size int) []byte {
	header := []byte("%PDF-1.7\n")
	if size < len(header) {
		size = len(header)
	}
	return append(header, bytes.Repeat([]byte("x"), size-len(header))...)
}

// assertEmptyDir fails when dir still contains entries
func assertEmptyDir(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("Failed to read %s: %v", dir, err)
	}
	if len(entries) != 0 {
		var names []string
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("Expected %s to be empty, found %v", dir, names)
	}
}

type fakeInspector struct {
	pages map[string]int64
	calls int
}

func (f *fakeInspector) Inspect(path string) (Metadata, error) {
	f.calls++
	data, err := os.ReadFile(path)
	if err != nil {
		return Metadata{}, err
	}
	if bytes.Equal(data, []byte(fakeOutput)) {
		return Metadata{PageCount: f.pages["output"]}, nil
	}
	return Metadata{PageCount: f.pages["input"]}, nil
}

var testTimeout = 30 * time.Second
