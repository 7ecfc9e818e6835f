package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/forgo/commerce/internal/database"
	"github.com/forgo/commerce/internal/jobs"
	"github.com/forgo/commerce/internal/testing/testdb"
)

func newPruneCmd(flags *rootFlags) *cobra.Command {
	var (
		prefix   string
		watch    bool
		interval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Drop leftover test databases nobody is connected to",
		Long: `Drop every idle database whose name starts with --prefix (DB_TEMP_NAME by
default). The template and the admin database are never dropped. With
--watch the pass repeats until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := flags.logger()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			prepared, err := testdb.Prepare(testdb.Options{Logger: logger}, flags.initOptions(""))
			if err != nil {
				return err
			}
			cfg := prepared.Config
			if prefix == "" {
				prefix = cfg.Database.Name
			}

			reaper, err := jobs.NewReaper(
				database.NewAdmin(testdb.AdminConfig(cfg), logger),
				jobs.ReaperConfig{
					Prefix:   prefix,
					Keep:     []string{cfg.Database.Template, cfg.Admin.Database},
					Interval: interval,
				}, logger)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			if watch {
				reaper.Start()
				<-ctx.Done()
				reaper.Stop()
				return nil
			}

			dropped, err := reaper.RunOnce(ctx)
			for _, name := range dropped {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return err
		},
	}

	cmd.Flags().StringVar(&prefix, "prefix", "", "database name prefix (default DB_TEMP_NAME)")
	cmd.Flags().BoolVar(&watch, "watch", false, "keep pruning until interrupted")
	cmd.Flags().DurationVar(&interval, "interval", time.Minute, "time between passes with --watch")
	return cmd
}
