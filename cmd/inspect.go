package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/andresmejia3/mixres/internal/dataset"
	"github.com/andresmejia3/mixres/internal/utils"
	"github.com/spf13/cobra"
)

var inspectVerbose bool

var inspectCmd = &cobra.Command{
	Use:   "inspect <output_dir>",
	Short: "Validate a generated dataset against its manifest",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		return runInspect(args[0], inspectVerbose, os.Stdout)
	},
}

func init() {
	inspectCmd.Flags().BoolVarP(&inspectVerbose, "images", "l", false, "List every image with its tier and size")
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(outDir string, listImages bool, out io.Writer) error {
	m, err := dataset.ReadManifest(filepath.Join(outDir, dataset.ManifestFileName))
	if err != nil {
		utils.ShowError("Failed to read manifest", err, nil)
		return err
	}
	if err := m.Validate(); err != nil {
		utils.ShowError("Manifest is inconsistent", err, nil)
		return err
	}
	imagesDir := filepath.Join(outDir, dataset.ImagesDirName)
	if err := m.CheckImages(imagesDir); err != nil {
		utils.ShowError("Image directory does not match manifest", err, nil)
		return err
	}

	fmt.Fprintf(out, "Manifest:      %s\n", filepath.Join(outDir, dataset.ManifestFileName))
	fmt.Fprintf(out, "Base factor:   %g\n", m.BaseFactor)
	fmt.Fprintf(out, "Extra factor:  %g\n", m.ExtraFactor)
	fmt.Fprintf(out, "High-res pct:  %g\n", m.HighResPct)
	fmt.Fprintf(out, "Seed:          %d\n", m.Seed)
	fmt.Fprintf(out, "High-res:      %d\n", len(m.HighRes))
	fmt.Fprintf(out, "Low-res:       %d\n", len(m.LowRes))

	if listImages {
		w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "\nIMAGE\tTIER\tSIZE")
		fmt.Fprintln(w, "-----\t----\t----")
		for _, group := range [][]string{m.HighRes, m.LowRes} {
			for _, name := range group {
				tier, _ := m.Tier(name)
				width, height, err := dataset.Probe(filepath.Join(imagesDir, name))
				if err != nil {
					utils.ShowError("Failed to probe image", err, nil)
					return err
				}
				fmt.Fprintf(w, "%s\t%s\t%dx%d\n", name, tier, width, height)
			}
		}
		w.Flush()
	}

	fmt.Fprintln(out, "✅ Dataset matches manifest.")
	return nil
}
