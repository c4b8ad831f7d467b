package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/andresmejia3/mixres/internal/store"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"k8s.io/klog/v2"
)

// Options holds configuration for the generate command
type Options struct {
	InputDir        string
	OutputDir       string
	OrigDatasetRoot string
	BaseFactor      float64
	ExtraFactor     float64
	HighResPct      float64
	Seed            int64
	NumWorkers      int
	JPEGQuality     int
	NoProgress      bool
}

var (
	// DB is the ledger connection shared by subcommands; nil when no database is configured
	DB *store.Store
	// dbURL is the connection string
	dbURL string
)

// Version is the application version.
const Version = "0.1.0"

// dbAnnotation marks how a command uses the ledger: "required" or "optional".
const dbAnnotation = "db"

var errNoDB = errors.New("this command needs a database: pass --db or set POSTGRES_HOST")

var rootCmd = &cobra.Command{
	Use:     "mixres",
	Short:   "Mixed-resolution dataset preparation for novel-view synthesis",
	Version: Version, // This enables the --version flag
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		mode := cmd.Annotations[dbAnnotation]
		if mode == "" {
			return nil
		}

		// Load .env (ignore error if the file is missing)
		_ = godotenv.Load()

		// If no flag was provided, try to build the connection string from the environment
		if dbURL == "" {
			if host := os.Getenv("POSTGRES_HOST"); host != "" {
				user := os.Getenv("POSTGRES_USER")
				pass := os.Getenv("POSTGRES_PASSWORD")
				name := os.Getenv("POSTGRES_DB")
				port := os.Getenv("POSTGRES_PORT")
				if port == "" {
					port = "5432"
				}
				dbURL = fmt.Sprintf("postgres://%s:%s@%s:%s/%s", user, pass, host, port, name)
			} else if mode == "required" {
				// Fallback to local default if no env vars are present
				dbURL = "postgres://localhost:5432/mixres"
			} else {
				klog.V(1).Infof("no database configured; run will not be recorded")
				return nil
			}
		}

		// Use the command's context (which will be cancellable) for the connection
		var err error
		DB, err = store.New(cmd.Context(), dbURL)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if DB != nil {
			// Use Background here because the main context might be cancelled already (due to Ctrl+C)
			// and we still need to send the "Close" command to the DB.
			DB.Close(context.Background())
		}
	},
}

func Execute() {
	// Create a context that listens for Ctrl+C (SIGINT) or Kill (SIGTERM)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer klog.Flush()

	// This tells Cobra not to print the version in the help text, which is cleaner.
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		klog.Flush()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbURL, "db", "", "PostgreSQL connection string for the run ledger (default: $POSTGRES_* or none)")

	// klog verbosity (-v) and friends
	klogFlags := flag.NewFlagSet("klog", flag.ExitOnError)
	klog.InitFlags(klogFlags)
	rootCmd.PersistentFlags().AddGoFlagSet(klogFlags)
}
