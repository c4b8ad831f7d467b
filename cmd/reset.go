package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/andresmejia3/mixres/internal/colmap"
	"github.com/andresmejia3/mixres/internal/dataset"
	"github.com/andresmejia3/mixres/internal/utils"
	"github.com/spf13/cobra"
)

var (
	resetDB     bool
	resetOutput string
	resetYes    bool
)

var resetCmd = &cobra.Command{
	Use:         "reset",
	Short:       "Reset system state (Ledger, Generated Datasets)",
	Long:        "Drops the run ledger and/or deletes the generated artifacts of an output directory.",
	Annotations: map[string]string{dbAnnotation: "optional"},
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		if !resetDB && resetOutput == "" {
			return fmt.Errorf("nothing to reset: pass --db and/or --output <dir>")
		}

		reader := bufio.NewReader(os.Stdin)

		if resetDB {
			if DB == nil {
				return errNoDB
			}
			if resetYes || confirm(reader, "⚠️  Are you sure you want to DROP all ledger tables?") {
				fmt.Println("🗑️  Clearing Database...")
				if err := DB.Reset(cmd.Context()); err != nil {
					utils.ShowError("Failed to reset database", err, nil)
					return err
				}
			}
		}

		if resetOutput != "" {
			if resetYes || confirm(reader, fmt.Sprintf("⚠️  Are you sure you want to delete the generated dataset in %s?", resetOutput)) {
				fmt.Println("🗑️  Clearing Generated Files (Images, Manifest, Reconstruction)...")
				removeOutputs(resetOutput, os.Stderr)
			}
		}

		fmt.Println("✨ Reset Complete.")
		return nil
	},
}

func init() {
	resetCmd.Flags().BoolVar(&resetDB, "db", false, "Drop the PostgreSQL ledger tables")
	resetCmd.Flags().StringVar(&resetOutput, "output", "", "Delete images/, the manifest and reconstruction outputs from this directory")
	resetCmd.Flags().BoolVarP(&resetYes, "yes", "y", false, "Do not ask for confirmation")
	rootCmd.AddCommand(resetCmd)
}

func confirm(r *bufio.Reader, prompt string) bool {
	fmt.Printf("%s [y/N]: ", prompt)
	res, _ := r.ReadString('\n')
	res = strings.TrimSpace(strings.ToLower(res))
	return res == "y" || res == "yes"
}

// removeOutputs deletes only what generate and reconstruct write, never the directory itself.
func removeOutputs(outDir string, warn io.Writer) {
	for _, name := range []string{
		dataset.ImagesDirName,
		dataset.ManifestFileName,
		colmap.SparseDirName,
		colmap.DatabaseFileName,
		colmap.PosesBoundsFileName,
	} {
		path := filepath.Join(outDir, name)
		if err := os.RemoveAll(path); err != nil {
			fmt.Fprintf(warn, "⚠️  Failed to remove %s: %v\n", path, err)
		}
	}
}
