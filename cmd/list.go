package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/andresmejia3/mixres/internal/utils"
	"github.com/spf13/cobra"
)

var listRunID string

var listCmd = &cobra.Command{
	Use:         "list",
	Short:       "List generation runs recorded in the ledger",
	Annotations: map[string]string{dbAnnotation: "required"},
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		if DB == nil {
			return errNoDB
		}
		if listRunID != "" {
			return runListImages(cmd.Context(), listRunID)
		}
		return runList(cmd.Context())
	},
}

func init() {
	listCmd.Flags().StringVar(&listRunID, "run", "", "Show the images of one run")
	rootCmd.AddCommand(listCmd)
}

func runList(ctx context.Context) error {
	runs, err := DB.ListRuns(ctx)
	if err != nil {
		utils.ShowError("Failed to list runs", err, nil)
		return err
	}

	if len(runs) == 0 {
		fmt.Println("No runs found in database.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "RUN\tOUTPUT\tBASE\tEXTRA\tPCT\tSEED\tHIGH/LOW\tCREATED")
	fmt.Fprintln(w, "---\t------\t----\t-----\t---\t----\t--------\t-------")

	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%g\t%g\t%g\t%d\t%d/%d\t%s\n", r.ID, r.OutputDir, r.BaseFactor, r.ExtraFactor,
			r.HighResPct, r.Seed, r.NumHighRes, r.NumLowRes, r.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
	w.Flush()
	return nil
}

func runListImages(ctx context.Context, runID string) error {
	images, err := DB.GetRunImages(ctx, runID)
	if err != nil {
		utils.ShowError("Failed to load run images", err, nil)
		return err
	}
	if len(images) == 0 {
		fmt.Printf("No images recorded for run %s.\n", runID)
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "#\tIMAGE\tTIER\tSIZE")
	fmt.Fprintln(w, "-\t-----\t----\t----")
	for _, img := range images {
		fmt.Fprintf(w, "%d\t%s\t%s\t%dx%d\n", img.Position, img.Name, img.Tier, img.Width, img.Height)
	}
	w.Flush()
	return nil
}
