package cli

import (
	"context"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/sbilibin2017/gw-ledger/internal/app"
	"github.com/sbilibin2017/gw-ledger/internal/config"
	"github.com/sbilibin2017/gw-ledger/internal/logger"
)

// Opener builds the ledger components a command runs against.
type Opener func(ctx context.Context, cfg config.Config) (*app.App, error)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	Format     string // "json" | "text"

	open Opener
	app  *app.App
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the ledger CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(app.New)
}

func newRootCommand(open Opener) *cobra.Command {
	opts := &RootOptions{open: open}

	cmd := &cobra.Command{
		Use:   "ledgerctl",
		Short: "ledgerctl - operate the account ledger",
		Long: `Operate the account ledger directly against its storage.

Mutations go through the same engine as the HTTP service: they lock the
accounts they touch, are all-or-nothing and leave a record in the
transaction log whatever their outcome.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitUsage, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if opts.app == nil {
				return nil
			}
			err := opts.app.Close()
			opts.app = nil
			return err
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "config.env", "path to configuration file")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewAccountCommand(opts))
	cmd.AddCommand(NewDepositCommand(opts))
	cmd.AddCommand(NewWithdrawCommand(opts))
	cmd.AddCommand(NewTransferCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))
	cmd.AddCommand(NewTokenCommand(opts))

	return cmd
}

// App loads configuration and opens the ledger on first use.
func (o *RootOptions) App(ctx context.Context) (*app.App, error) {
	if o.app != nil {
		return o.app, nil
	}

	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return nil, WrapExitError(ExitUsage, "failed to parse config", err)
	}
	if err := logger.Initialize(cfg.LogLevel, "ledgerctl"); err != nil {
		return nil, WrapExitError(ExitUsage, "failed to initialize logger", err)
	}

	a, err := o.open(ctx, cfg)
	if err != nil {
		return nil, WrapExitError(ExitTempFail, "failed to open ledger", err)
	}
	o.app = a
	return a, nil
}
