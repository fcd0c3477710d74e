package cli

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"MemberSync/internal/app"
	"MemberSync/internal/config"
	"MemberSync/internal/logging"
)

// OpenFunc builds the application for a command. Tests replace it to run
// against in-memory adapters.
type OpenFunc func(ctx context.Context, cfg config.Config, logger *slog.Logger) (*app.Application, error)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	LogLevel   string
	Open       OpenFunc
}

// NewRootCommand creates the root command for the membersync CLI.
func NewRootCommand(opts *RootOptions) *cobra.Command {
	if opts == nil {
		opts = &RootOptions{}
	}
	if opts.Open == nil {
		opts.Open = app.New
	}

	cmd := &cobra.Command{
		Use:   "membersync",
		Short: "Keep member ranks, nicknames and roles in sync",
		Long: `membersync tracks cohort year, initiation status and queue numbers for every
member and keeps their nickname and stage roles consistent with that state.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to the YAML config (defaults to $MEMBERSYNC_CONFIG)")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "log level override (debug|info|warn|error)")

	cmd.AddCommand(newJobCommands(opts)...)
	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewNameChangeCommand(opts))
	cmd.AddCommand(NewDeleteMemberCommand(opts))

	return cmd
}

// open loads configuration and builds the application for cmd.
func (o *RootOptions) open(cmd *cobra.Command) (*app.Application, error) {
	cfg := config.Load()
	if o.ConfigPath != "" {
		cfg = config.LoadPath(o.ConfigPath)
	}
	if o.LogLevel != "" {
		cfg.Logging.Level = o.LogLevel
	}
	logger := logging.NewWithWriter(cmd.ErrOrStderr(), cfg.Logging.Level)
	return o.Open(commandContext(cmd), cfg, logger)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
