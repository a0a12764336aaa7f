package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"path"
	"path/filepath"
	"syscall"

	"github.com/acm19/pdfsqueeze/apps/cli/completion"
	"github.com/acm19/pdfsqueeze/internal/config"
	"github.com/acm19/pdfsqueeze/internal/logger"
	"github.com/acm19/pdfsqueeze/internal/squeeze"
	"github.com/acm19/pdfsqueeze/internal/storage"
	"github.com/barasher/go-exiftool"
	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootCmd = &cobra.Command{
	Use:           "pdfsqueeze",
	Short:         "Shrink PDF files with Ghostscript quality presets",
	Long:          `pdfsqueeze compresses PDF documents with Ghostscript and reports the size reduction. Inputs and outputs may be local files or s3:// URIs.`,
	Version:       version,
	SilenceErrors: true,
}

var compressCmd = &cobra.Command{
	Use:   "compress INPUT OUTPUT",
	Short: "Compress a single PDF",
	Long:  `Compresses INPUT into OUTPUT using the selected preset and prints the original size, compressed size and reduction. Either side may be an s3://bucket/key URI.`,
	Args:  cobra.ExactArgs(2),
	RunE:  runCompress,
}

var batchCmd = &cobra.Command{
	Use:   "batch SOURCE_DIR TARGET_DIR",
	Short: "Compress every PDF in a directory tree",
	Long:  `Compresses all PDF files under SOURCE_DIR concurrently, writing each to the same relative path under TARGET_DIR.`,
	Args:  cobra.ExactArgs(2),
	RunE:  runBatch,
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify that Ghostscript and exiftool are installed",
	Args:  cobra.NoArgs,
	RunE:  runCheck,
}

var presetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "List the available quality presets",
	Args:  cobra.NoArgs,
	RunE:  runPresets,
}

var inspectCmd = &cobra.Command{
	Use:   "inspect FILE",
	Short: "Show page count and document information of a PDF",
	Args:  cobra.ExactArgs(1),
	RunE:  runInspect,
}

var (
	configFile    string
	presetFlag    string
	strictFlag    bool
	verifyFlag    bool
	maxConcurrent int
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to a YAML configuration file")

	// Compress command flags
	compressCmd.Flags().StringVarP(&presetFlag, "preset", "p", "", "Quality preset (screen, ebook, printer)")
	compressCmd.Flags().BoolVar(&strictFlag, "strict", false, "Validate the PDF structure before compressing")
	compressCmd.Flags().BoolVar(&verifyFlag, "verify", false, "Compare page counts before and after with exiftool")

	// Batch command flags
	batchCmd.Flags().StringVarP(&presetFlag, "preset", "p", "", "Quality preset (screen, ebook, printer)")
	batchCmd.Flags().BoolVar(&strictFlag, "strict", false, "Validate the PDF structure before compressing")
	batchCmd.Flags().IntVarP(&maxConcurrent, "max-concurrent", "c", 0, "Maximum concurrent compressions (default from config)")

	for _, cmd := range []*cobra.Command{compressCmd, batchCmd} {
		cmd.RegisterFlagCompletionFunc("preset", completePresets)
	}

	rootCmd.AddCommand(compressCmd, batchCmd, checkCmd, presetsCmd, inspectCmd)

	// Add autocomplete commands
	rootCmd.AddCommand(completion.NewInstallCmd(rootCmd))
	rootCmd.AddCommand(completion.NewUninstallCmd(rootCmd))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logger.Error("Command failed", "error", err)
		fmt.Fprintln(os.Stderr, explain(err))
		os.Exit(1)
	}
}

func completePresets(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	var names []string
	for _, p := range squeeze.Presets() {
		names = append(names, p.String()+"\t"+p.Description())
	}
	return names, cobra.ShellCompDirectiveNoFileComp
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// resolvePreset prefers the --preset flag over the configured default
func resolvePreset(cfg *config.Config) (squeeze.Preset, error) {
	if presetFlag == "" {
		return cfg.Preset(), nil
	}
	return squeeze.ParsePreset(presetFlag)
}

// newSqueezer checks for Ghostscript up front so a missing install is reported before any work starts
func newSqueezer(cfg *config.Config, inspector squeeze.Inspector) (*squeeze.Squeezer, error) {
	gs, err := squeeze.NewGhostscript(cfg.GhostscriptPath, cfg.Timeout)
	if err != nil {
		return nil, err
	}

	var validator squeeze.Validator
	if strictFlag || cfg.StrictValidation {
		validator = squeeze.NewStrictValidator()
	}
	return squeeze.NewSqueezer(gs, validator, inspector, cfg.ScratchDir), nil
}

func newExiftool(cfg *config.Config) (*exiftool.Exiftool, error) {
	var opts []func(*exiftool.Exiftool) error
	if cfg.ExiftoolPath != "" {
		opts = append(opts, exiftool.SetExiftoolBinaryPath(cfg.ExiftoolPath))
	}
	et, err := exiftool.NewExiftool(opts...)
	if err != nil {
		return nil, &squeeze.ToolNotFoundError{Tool: "exiftool", Err: err}
	}
	return et, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runCompress(cmd *cobra.Command, args []string) error {
	input := args[0]
	output := args[1]
	cmd.SilenceUsage = true

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	preset, err := resolvePreset(cfg)
	if err != nil {
		return err
	}

	var inspector squeeze.Inspector
	if verifyFlag {
		et, err := newExiftool(cfg)
		if err != nil {
			return err
		}
		defer et.Close()
		inspector = squeeze.NewExifInspector(et)
	}
	squeezer, err := newSqueezer(cfg, inspector)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	var store *storage.Store
	if storage.IsRemote(input) || storage.IsRemote(output) {
		store, err = storage.NewStore(ctx, cfg.OverwriteRemote)
		if err != nil {
			return fmt.Errorf("failed to initialise storage: %w", err)
		}
	}

	logger.Info("Starting compression", "input", input, "output", output, "preset", preset)
	resp, err := compress(ctx, squeezer, store, cfg.ScratchDir, input, output, preset)
	if err != nil {
		return err
	}

	printResult(cmd.OutOrStdout(), resp)
	return nil
}

// compress routes a single job between local files and S3 locations
func compress(ctx context.Context, squeezer *squeeze.Squeezer, store *storage.Store, scratchDir, input, output string, preset squeeze.Preset) (*squeeze.Response, error) {
	if !storage.IsRemote(input) && !storage.IsRemote(output) {
		return squeezer.SqueezeFile(ctx, input, output, preset, nil)
	}

	source, name, err := openSource(ctx, store, input)
	if err != nil {
		return nil, err
	}
	defer source.Close()

	var outLoc storage.Location
	tmpDir := scratchDir
	if storage.IsRemote(output) {
		if outLoc, err = storage.ParseURI(output); err != nil {
			return nil, err
		}
	} else {
		tmpDir = filepath.Dir(output)
	}

	tmp, err := os.CreateTemp(tmpDir, ".pdfsqueeze-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	defer os.Remove(tmp.Name())

	resp, err := squeezer.Squeeze(ctx, squeeze.Request{
		Name:        name,
		Preset:      preset,
		Source:      source,
		Destination: tmp,
	})
	if closeErr := tmp.Close(); err == nil && closeErr != nil {
		err = closeErr
	}
	if err != nil {
		return nil, err
	}

	if storage.IsRemote(output) {
		if err := store.Publish(ctx, outLoc, tmp.Name()); err != nil {
			return nil, err
		}
		return resp, nil
	}
	if err := os.Chmod(tmp.Name(), squeeze.OutputFileMode); err != nil {
		return nil, fmt.Errorf("failed to set permissions on %s: %w", output, err)
	}
	if err := os.Rename(tmp.Name(), output); err != nil {
		return nil, fmt.Errorf("failed to move output into place: %w", err)
	}
	return resp, nil
}

// openSource opens a local file or streams an S3 object through a pipe
func openSource(ctx context.Context, store *storage.Store, input string) (io.ReadCloser, string, error) {
	if !storage.IsRemote(input) {
		f, err := os.Open(input)
		if err != nil {
			return nil, "", &squeeze.InvalidInputError{Path: input, Reason: "cannot open file", Err: err}
		}
		return f, filepath.Base(input), nil
	}

	loc, err := storage.ParseURI(input)
	if err != nil {
		return nil, "", err
	}
	pr, pw := io.Pipe()
	go func() {
		_, err := store.Fetch(ctx, loc, pw)
		pw.CloseWithError(err)
	}()
	return pr, path.Base(loc.Key), nil
}

func printResult(w io.Writer, resp *squeeze.Response) {
	r := resp.Result
	fmt.Fprintf(w, "Original size:   %.2f KB\n", float64(r.OriginalSize)/1024)
	fmt.Fprintf(w, "Compressed size: %.2f KB\n", float64(r.CompressedSize)/1024)
	fmt.Fprintf(w, "Reduction:       %.2f%%\n", r.Reduction)
	if resp.Before != nil && resp.After != nil {
		fmt.Fprintf(w, "Pages:           %d -> %d\n", resp.Before.PageCount, resp.After.PageCount)
	}
}

func runBatch(cmd *cobra.Command, args []string) error {
	sourceDir := args[0]
	targetDir := args[1]
	cmd.SilenceUsage = true

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	opts := squeeze.DefaultBatchOptions()
	if opts.Preset, err = resolvePreset(cfg); err != nil {
		return err
	}
	opts.MaxConcurrency = cfg.MaxConcurrency
	if maxConcurrent > 0 {
		opts.MaxConcurrency = maxConcurrent
	}

	if err := squeeze.ValidateDirectories(sourceDir, targetDir); err != nil {
		return err
	}
	squeezer, err := newSqueezer(cfg, nil)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	progress := make(chan squeeze.ProgressEvent, 100)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for event := range progress {
			logger.Info(event.Message, "file", event.File)
		}
	}()
	opts.ProgressChan = progress

	logger.Info("Starting batch", "source", sourceDir, "target", targetDir, "preset", opts.Preset, "max_concurrent", opts.MaxConcurrency)
	summary, err := squeezer.CompressDirectory(ctx, sourceDir, targetDir, opts)
	close(progress)
	<-done
	if err != nil {
		logger.Error("Batch finished with failures", "succeeded", summary.Succeeded, "failed", summary.Failed)
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Files compressed: %d\n", summary.Succeeded)
	fmt.Fprintf(out, "Original size:    %.2f KB\n", float64(summary.OriginalBytes)/1024)
	fmt.Fprintf(out, "Compressed size:  %.2f KB\n", float64(summary.CompressedBytes)/1024)
	fmt.Fprintf(out, "Reduction:        %.2f%%\n", summary.Reduction)
	return nil
}

func runCheck(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	gs, err := squeeze.NewGhostscript(cfg.GhostscriptPath, cfg.Timeout)
	if err != nil {
		return err
	}
	gsVersion, err := gs.Version(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "ghostscript: %s (version %s)\n", gs.Path(), gsVersion)

	exiftoolBinary := cfg.ExiftoolPath
	if exiftoolBinary == "" {
		exiftoolBinary = "exiftool"
	}
	if found, err := exec.LookPath(exiftoolBinary); err != nil {
		fmt.Fprintf(out, "exiftool: not found (optional, needed for --verify and inspect)\n")
	} else {
		fmt.Fprintf(out, "exiftool: %s\n", found)
	}
	return nil
}

func runPresets(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	for _, p := range squeeze.Presets() {
		flag, _ := p.Flag()
		marker := ""
		if p == squeeze.DefaultPreset {
			marker = " (default)"
		}
		fmt.Fprintf(out, "%-8s %-9s %s%s\n", p, flag, p.Description(), marker)
	}
	return nil
}

func runInspect(cmd *cobra.Command, args []string) error {
	file := args[0]
	cmd.SilenceUsage = true

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := squeeze.NewHeaderValidator().Validate(file); err != nil {
		return err
	}

	et, err := newExiftool(cfg)
	if err != nil {
		return err
	}
	defer et.Close()

	md, err := squeeze.NewExifInspector(et).Inspect(file)
	if err != nil {
		return fmt.Errorf("failed to inspect %s: %w", file, err)
	}

	info, err := os.Stat(file)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "File:        %s\n", file)
	fmt.Fprintf(out, "Size:        %.2f KB\n", float64(info.Size())/1024)
	fmt.Fprintf(out, "Pages:       %d\n", md.PageCount)
	fmt.Fprintf(out, "PDF version: %s\n", md.PDFVersion)
	fmt.Fprintf(out, "Title:       %s\n", md.Title)
	fmt.Fprintf(out, "Producer:    %s\n", md.Producer)
	return nil
}
