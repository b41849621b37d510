package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/withObsrvr/obsrvr-archive-copier/internal/logging"
	"github.com/withObsrvr/obsrvr-archive-copier/internal/server"
)

func newRunCmd() *cobra.Command {
	var eventFile string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one invocation from an event file",
		Long: `Run reads an S3 notification event from a file (or stdin with "-"),
copies every object it names and prints the results as JSON.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readEvent(cmd.InOrStdin(), eventFile)
			if err != nil {
				return err
			}

			a, err := newApp(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := logging.WithCorrelationID(cmd.Context(), logging.GenerateCorrelationID())
			results, err := server.Invoke(ctx, a.copier, data)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(results)
		},
	}

	cmd.Flags().StringVarP(&eventFile, "event", "e", "-", `event JSON file, "-" for stdin`)
	return cmd
}

func readEvent(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read event from stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read event file: %w", err)
	}
	return data, nil
}
