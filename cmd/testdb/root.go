package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/forgo/commerce/internal/testing/testdb"
)

type rootFlags struct {
	dir     string
	verbose bool
	env     map[string]string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:           "testdb",
		Short:         "Manage commerce test databases",
		Long:          `Build the template database, create or drop test databases and inspect the migration plan.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&flags.dir, "dir", ".", "directory holding commerce-config")
	cmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "development logging")
	cmd.PersistentFlags().StringToStringVar(&flags.env, "env", nil, "environment overrides, KEY=VALUE")

	cmd.AddCommand(newTemplateCmd(flags))
	cmd.AddCommand(newUpCmd(flags))
	cmd.AddCommand(newDownCmd(flags))
	cmd.AddCommand(newPlanCmd(flags))
	cmd.AddCommand(newPruneCmd(flags))

	return cmd
}

func (f *rootFlags) logger() (*zap.Logger, error) {
	if f.verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func (f *rootFlags) initOptions(name string) testdb.InitOptions {
	return testdb.InitOptions{
		WorkDir:      f.dir,
		Env:          f.env,
		DatabaseName: name,
	}
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
