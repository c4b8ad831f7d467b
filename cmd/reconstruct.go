package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/andresmejia3/mixres/internal/colmap"
	"github.com/andresmejia3/mixres/internal/utils"
	"github.com/spf13/cobra"
)

var (
	reconDatasetDir string
	reconOpts       = colmap.DefaultOptions()
)

var reconstructCmd = &cobra.Command{
	Use:   "reconstruct",
	Short: "Run COLMAP feature extraction, matching and mapping on a generated dataset",
	Long: "Runs colmap feature_extractor, exhaustive_matcher and mapper over <dataset-dir>/images,\n" +
		"producing <dataset-dir>/database.db and <dataset-dir>/sparse/. Existing outputs are removed first.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		return runReconstruct(cmd.Context(), reconDatasetDir, colmap.NewRunner(reconOpts), true)
	},
}

func init() {
	reconstructCmd.Flags().StringVarP(&reconDatasetDir, "dataset-dir", "d", "", "Dataset directory containing the images/ folder")
	reconstructCmd.Flags().StringVar(&reconOpts.Binary, "colmap-bin", colmap.DefaultBinary, "COLMAP executable")
	reconstructCmd.Flags().BoolVar(&reconOpts.UseGPU, "gpu", false, "Use GPU SIFT extraction and matching")
	reconstructCmd.Flags().IntVar(&reconOpts.MaxImageSize, "max-image-size", colmap.DefaultMaxImageSize, "SiftExtraction.max_image_size")
	reconstructCmd.Flags().BoolVar(&reconOpts.SingleCamera, "single-camera", false, "Share one camera model across all images")

	reconstructCmd.MarkFlagRequired("dataset-dir")
	rootCmd.AddCommand(reconstructCmd)
}

func runReconstruct(ctx context.Context, datasetDir string, runner *colmap.Runner, checkBinary bool) error {
	if checkBinary {
		if _, err := runner.CheckBinary(); err != nil {
			utils.ShowError("COLMAP is not installed", err, nil)
			return err
		}
	}

	start := time.Now()
	err := runner.Reconstruct(ctx, datasetDir, func(step colmap.Step) {
		fmt.Fprintf(os.Stderr, "\n=== Running COLMAP: %s ===\n", step.Name)
	})
	if err != nil {
		var stepErr *colmap.StepError
		if errors.As(err, &stepErr) && stepErr.Stderr != "" {
			fmt.Fprintf(os.Stderr, "\nCOLMAP Logs:\n%s\n", stepErr.Stderr)
		}
		utils.ShowError("Reconstruction failed", err, nil)
		return err
	}

	fmt.Fprintf(os.Stderr, "\n🏁 COLMAP Reconstruction Complete in %s.\n", time.Since(start).Round(time.Second))
	return nil
}
