package main

import (
	"github.com/spf13/cobra"

	"github.com/withObsrvr/obsrvr-archive-copier/internal/server"
)

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve invocations over HTTP",
		Long: `Serve accepts events on POST /invoke, one invocation per request, and
exposes /health and /metrics.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer a.Close()

			return server.New(a.copier).ListenAndServe(cmd.Context(), addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	return cmd
}
