package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/withObsrvr/obsrvr-archive-copier/internal/copier"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd := &cobra.Command{
		Use:   "archive-copier",
		Short: "Copy recovered objects to their permanent archive buckets",
		Long: `archive-copier copies objects restored into a temporary holding bucket
to a permanent bucket chosen by file extension, tracking each object's
request status in Postgres.

Configuration is read from the environment (BUCKET_MAP, COPY_RETRIES,
COPY_RETRY_SLEEP_SECS, DATABASE_*, STORAGE_*) and optionally from the
YAML file named by COPIER_CONFIG.`,
		Version:       fmt.Sprintf("%s (%s)", copier.Version, copier.GitSHA),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		newLambdaCmd(),
		newRunCmd(),
		newServeCmd(),
	)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
