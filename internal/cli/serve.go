package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewServeCommand creates the serve command.
func NewServeCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the recurring structure sweep and expose metrics",
		Long: `Run the structure enforcement sweep on the configured interval and serve
prometheus metrics on metrics.addr until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext(cmd)
			defer stop()

			application, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer application.Close()

			fmt.Fprintln(cmd.OutOrStdout(), "Sweeper started. Press Ctrl-C to stop.")
			return application.Serve(ctx)
		},
	}
}
