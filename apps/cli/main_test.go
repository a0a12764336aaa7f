package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/acm19/pdfsqueeze/internal/squeeze"
	"github.com/acm19/pdfsqueeze/internal/storage"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

const compressedBody = "%PDF-1.4\nsmall\n"

// fixedCompressor writes a fixed small document regardless of the input
type fixedCompressor struct{}

func (fixedCompressor) Compress(ctx context.Context, job squeeze.Job) error {
	return os.WriteFile(job.Output, []byte(compressedBody), 0600)
}

type memoryS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemoryS3() *memoryS3 {
	return &memoryS3{objects: make(map[string][]byte)}
}

func (m *memoryS3) HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[*params.Bucket+"/"+*params.Key]; !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{}, nil
}

func (m *memoryS3) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[*params.Bucket+"/"+*params.Key]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (m *memoryS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[*params.Bucket+"/"+*params.Key] = data
	return &s3.PutObjectOutput{}, nil
}

func writeInput(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "report.pdf")
	content := "%PDF-1.7\n" + strings.Repeat("x", 991)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to create input: %v", err)
	}
	return path
}

func TestCompress_LocalToLocal(t *testing.T) {
	tmpDir := t.TempDir()
	input := writeInput(t, tmpDir)
	output := filepath.Join(tmpDir, "report.small.pdf")

	squeezer := squeeze.NewSqueezer(fixedCompressor{}, nil, nil, t.TempDir())
	resp, err := compress(context.Background(), squeezer, nil, "", input, output, squeeze.PresetScreen)
	if err != nil {
		t.Fatalf("compress() failed: %v", err)
	}
	if resp.Result.OriginalSize != 1000 || resp.Result.CompressedSize != int64(len(compressedBody)) {
		t.Errorf("Unexpected sizes: %+v", resp.Result)
	}

	data, err := os.ReadFile(output)
	if err != nil || string(data) != compressedBody {
		t.Errorf("Output = %q (%v)", data, err)
	}
}

func TestCompress_RemoteRoundTrip(t *testing.T) {
	client := newMemoryS3()
	client.objects["in-bucket/docs/report.pdf"] = []byte("%PDF-1.7\n" + strings.Repeat("y", 2039))
	store := storage.NewStoreWithClient(client, false)
	squeezer := squeeze.NewSqueezer(fixedCompressor{}, nil, nil, t.TempDir())

	resp, err := compress(context.Background(), squeezer, store, t.TempDir(),
		"s3://in-bucket/docs/report.pdf", "s3://out-bucket/small/report.pdf", squeeze.PresetEbook)
	if err != nil {
		t.Fatalf("compress() failed: %v", err)
	}
	if resp.Name != "report.pdf" {
		t.Errorf("Expected name report.pdf, got %q", resp.Name)
	}
	if resp.Result.OriginalSize != 2048 {
		t.Errorf("Expected original size 2048, got %d", resp.Result.OriginalSize)
	}
	if got := string(client.objects["out-bucket/small/report.pdf"]); got != compressedBody {
		t.Errorf("Published object = %q", got)
	}
}

func TestCompress_RemoteToLocal(t *testing.T) {
	client := newMemoryS3()
	client.objects["b/report.pdf"] = []byte("%PDF-1.7\n" + strings.Repeat("z", 500))
	store := storage.NewStoreWithClient(client, false)
	squeezer := squeeze.NewSqueezer(fixedCompressor{}, nil, nil, t.TempDir())

	outDir := t.TempDir()
	output := filepath.Join(outDir, "report.pdf")
	if _, err := compress(context.Background(), squeezer, store, "", "s3://b/report.pdf", output, squeeze.PresetPrinter); err != nil {
		t.Fatalf("compress() failed: %v", err)
	}

	entries, _ := os.ReadDir(outDir)
	if len(entries) != 1 || entries[0].Name() != "report.pdf" {
		t.Errorf("Expected only the output file in %s, got %v", outDir, entries)
	}
	if info, err := os.Stat(output); err != nil || info.Mode().Perm() != squeeze.OutputFileMode {
		t.Errorf("Expected output mode %v, got %v (%v)", squeeze.OutputFileMode, info, err)
	}
}

func TestCompress_MissingRemoteObject(t *testing.T) {
	store := storage.NewStoreWithClient(newMemoryS3(), false)
	squeezer := squeeze.NewSqueezer(fixedCompressor{}, nil, nil, t.TempDir())

	outDir := t.TempDir()
	_, err := compress(context.Background(), squeezer, store, "", "s3://b/missing.pdf", filepath.Join(outDir, "out.pdf"), squeeze.PresetScreen)
	if err == nil {
		t.Fatal("Expected an error for a missing object")
	}
	var nsk *types.NoSuchKey
	if !errors.As(err, &nsk) {
		t.Errorf("Expected NoSuchKey in the chain, got %v", err)
	}

	entries, _ := os.ReadDir(outDir)
	if len(entries) != 0 {
		t.Errorf("Expected no files left behind, got %v", entries)
	}
}

func TestPrintResult(t *testing.T) {
	var buf bytes.Buffer
	printResult(&buf, &squeeze.Response{
		Result: squeeze.Result{OriginalSize: 2048, CompressedSize: 512, Reduction: 75},
		Before: &squeeze.Metadata{PageCount: 3},
		After:  &squeeze.Metadata{PageCount: 3},
	})

	for _, want := range []string{"Original size:   2.00 KB", "Compressed size: 0.50 KB", "Reduction:       75.00%", "Pages:           3 -> 3"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("Output missing %q:\n%s", want, buf.String())
		}
	}
}

func TestRunPresets(t *testing.T) {
	var buf bytes.Buffer
	presetsCmd.SetOut(&buf)
	defer presetsCmd.SetOut(nil)

	if err := runPresets(presetsCmd, nil); err != nil {
		t.Fatalf("runPresets() failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("Expected 3 presets, got %d:\n%s", len(lines), buf.String())
	}
	if !strings.Contains(buf.String(), "/ebook") || !strings.Contains(buf.String(), "(default)") {
		t.Errorf("Unexpected presets output:\n%s", buf.String())
	}
}

func TestRunCompress_ReturnsErrors(t *testing.T) {
	t.Setenv("PDFSQUEEZE_GS", "")
	t.Setenv("PDFSQUEEZE_SCRATCH_DIR", "")
	oldPreset, oldConfig := presetFlag, configFile
	defer func() { presetFlag, configFile = oldPreset, oldConfig }()

	tmpDir := t.TempDir()
	input := writeInput(t, tmpDir)
	output := filepath.Join(tmpDir, "out.pdf")

	presetFlag, configFile = "prepress", ""
	err := runCompress(compressCmd, []string{input, output})
	if !errors.Is(err, squeeze.ErrInvalidPreset) {
		t.Errorf("Expected ErrInvalidPreset, got %v", err)
	}

	presetFlag, configFile = "", filepath.Join(tmpDir, "missing.yaml")
	err = runCompress(compressCmd, []string{input, output})
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Expected a missing config error, got %v", err)
	}
	if !strings.Contains(explain(err), "failed to load configuration") {
		t.Errorf("Unexpected guidance: %s", explain(err))
	}

	if _, err := os.Stat(output); !os.IsNotExist(err) {
		t.Error("No output should be written when the command fails")
	}
}
