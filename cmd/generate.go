package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/andresmejia3/mixres/internal/colmap"
	"github.com/andresmejia3/mixres/internal/dataset"
	"github.com/andresmejia3/mixres/internal/store"
	"github.com/andresmejia3/mixres/internal/utils"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var genOpts Options

var generateCmd = &cobra.Command{
	Use:         "generate",
	Short:       "Generate a mixed-resolution image dataset and its manifest",
	Annotations: map[string]string{dbAnnotation: "optional"},
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		_, err := runGenerate(cmd.Context(), genOpts)
		return err
	},
}

func init() {
	generateCmd.Flags().StringVarP(&genOpts.InputDir, "in-dir", "i", "", "Directory containing the original images (e.g. data/llff/fern/images)")
	generateCmd.Flags().StringVarP(&genOpts.OutputDir, "out-dir", "o", "", "Directory where images/ and "+dataset.ManifestFileName+" are written")
	generateCmd.Flags().StringVar(&genOpts.OrigDatasetRoot, "orig-dataset-root", "", "Original dataset root to copy sparse/, database.db and poses_bounds.npy from")
	generateCmd.Flags().Float64VarP(&genOpts.BaseFactor, "base-factor", "b", dataset.DefaultBaseFactor, "Base downsample factor for all images")
	generateCmd.Flags().Float64VarP(&genOpts.ExtraFactor, "extra-factor", "x", dataset.DefaultExtraFactor, "Extra downsample factor for the low-resolution subset")
	generateCmd.Flags().Float64VarP(&genOpts.HighResPct, "high-res-pct", "p", dataset.DefaultHighResPct, "Fraction of images kept at the base resolution (0..1)")
	generateCmd.Flags().Int64VarP(&genOpts.Seed, "seed", "s", dataset.DefaultSeed, "Random seed for the high-resolution subset")
	generateCmd.Flags().IntVarP(&genOpts.NumWorkers, "workers", "w", 1, "Number of parallel resize workers")
	generateCmd.Flags().IntVar(&genOpts.JPEGQuality, "jpeg-quality", dataset.DefaultJPEGQuality, "JPEG quality for .jpg/.jpeg outputs (1-100)")
	generateCmd.Flags().BoolVar(&genOpts.NoProgress, "no-progress", false, "Disable the progress bar")

	generateCmd.MarkFlagRequired("in-dir")
	generateCmd.MarkFlagRequired("out-dir")
	rootCmd.AddCommand(generateCmd)
}

// runGenerate orchestrates a generation run: validation, partition & resize, artifact copy and ledger record.
func runGenerate(ctx context.Context, opts Options) (*dataset.Result, error) {
	if err := validateGenerateFlags(&opts); err != nil {
		utils.ShowError("Invalid arguments", err, nil)
		return nil, err
	}

	cfg := dataset.Config{
		BaseFactor:  opts.BaseFactor,
		ExtraFactor: opts.ExtraFactor,
		HighResPct:  opts.HighResPct,
		Seed:        opts.Seed,
	}

	fmt.Fprintln(os.Stderr, "=== Generating Mixed Resolution Dataset ===")
	fmt.Fprintf(os.Stderr, "⚙️  base=%gx extra=%gx high-res=%.0f%% seed=%d workers=%d\n",
		cfg.BaseFactor, cfg.ExtraFactor, cfg.HighResPct*100, cfg.Seed, opts.NumWorkers)

	// The bar needs a total before Generate enumerates; counting skips the header probes.
	total, _ := dataset.CountImages(opts.InputDir)

	gen := &dataset.Generator{
		Config:      cfg,
		Workers:     opts.NumWorkers,
		JPEGQuality: opts.JPEGQuality,
	}
	var bar *progressbar.ProgressBar
	if !opts.NoProgress && total > 0 {
		bar = progressbar.NewOptions(total,
			progressbar.OptionSetDescription("🖼️  Resizing"),
			progressbar.OptionSetWriter(os.Stderr), // Write bar to Stderr
			progressbar.OptionShowCount(),
			progressbar.OptionSetItsString("images"),
		)
		gen.Progress = bar
	}
	if opts.OrigDatasetRoot != "" {
		gen.BeforeManifest = func(ctx context.Context, res *dataset.Result) error {
			return copyArtifacts(opts)
		}
	}

	res, err := gen.Generate(ctx, opts.InputDir, opts.OutputDir)
	if err != nil {
		utils.ShowError("Dataset generation failed", err, nil)
		return nil, err
	}
	if bar != nil {
		bar.Finish()
		fmt.Fprintln(os.Stderr)
	}

	if DB != nil {
		if err := recordRun(ctx, DB, opts, res); err != nil {
			utils.ShowError("Failed to record run in ledger", err, nil)
			return nil, err
		}
	}

	fmt.Fprintf(os.Stderr, "\n✓ Mixed-resolution dataset saved to: %s\n", opts.OutputDir)
	fmt.Fprintf(os.Stderr, "✓ Metadata saved to: %s\n", res.ManifestPath)
	fmt.Fprintf(os.Stderr, "High-res images: %d\n", len(res.Manifest.HighRes))
	fmt.Fprintf(os.Stderr, "Low-res images:  %d\n", len(res.Manifest.LowRes))
	fmt.Fprintf(os.Stderr, "Bytes written:   %s\n", humanize.Bytes(uint64(res.BytesWritten)))
	return res, nil
}

// copyArtifacts runs before the manifest is written, so a failed copy leaves no manifest behind.
func copyArtifacts(opts Options) error {
	fmt.Fprintln(os.Stderr, "\n📦 Copying reconstruction artifacts...")
	report, err := colmap.CopyArtifacts(opts.OrigDatasetRoot, opts.OutputDir)
	if err != nil {
		return errors.Wrap(err, "failed to copy reconstruction artifacts")
	}
	if !report.Sparse {
		fmt.Fprintf(os.Stderr, "⚠️  %s/ not found in %s\n", colmap.SparseDirName, opts.OrigDatasetRoot)
	}
	if !report.Database {
		fmt.Fprintf(os.Stderr, "⚠️  %s not found in %s\n", colmap.DatabaseFileName, opts.OrigDatasetRoot)
	}
	return nil
}

func recordRun(ctx context.Context, db *store.Store, opts Options, res *dataset.Result) error {
	names := make([]string, len(res.Records))
	for i, r := range res.Records {
		names[i] = r.Name
	}
	datasetID, err := utils.GenerateDatasetID(opts.InputDir, names)
	if err != nil {
		return err
	}

	earlier, err := db.FindRunsByDataset(ctx, datasetID)
	if err != nil {
		return err
	}
	if len(earlier) > 0 {
		fmt.Fprintf(os.Stderr, "ℹ️  %d earlier run(s) over this dataset, latest %s\n", len(earlier), earlier[len(earlier)-1])
	}

	runID := uuid.NewString()
	if err := db.RecordRun(ctx, store.Run{
		ID:          runID,
		DatasetID:   datasetID,
		SourceDir:   opts.InputDir,
		OutputDir:   opts.OutputDir,
		BaseFactor:  res.Manifest.BaseFactor,
		ExtraFactor: res.Manifest.ExtraFactor,
		HighResPct:  res.Manifest.HighResPct,
		Seed:        res.Manifest.Seed,
		Images:      res.Plan,
	}); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "🗄️  Recorded run %s (dataset %s)\n", runID, datasetID[:12])
	return nil
}

// validateGenerateFlags ensures all CLI arguments are valid before any image is touched.
func validateGenerateFlags(opts *Options) error {
	info, err := os.Stat(opts.InputDir)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("input directory does not exist: %w", err)
		}
		return fmt.Errorf("unable to access input directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("input path %s is not a directory", opts.InputDir)
	}
	if opts.OutputDir == "" {
		return fmt.Errorf("output directory is required")
	}
	if opts.NumWorkers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", opts.NumWorkers)
	}
	if opts.JPEGQuality < 1 || opts.JPEGQuality > 100 {
		return fmt.Errorf("jpeg-quality must be between 1 and 100, got %d", opts.JPEGQuality)
	}
	if opts.OrigDatasetRoot != "" {
		if info, err := os.Stat(opts.OrigDatasetRoot); err != nil || !info.IsDir() {
			return fmt.Errorf("original dataset root %s is not a directory", opts.OrigDatasetRoot)
		}
	}
	return nil
}
