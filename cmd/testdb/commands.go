package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/forgo/commerce/internal/database"
	"github.com/forgo/commerce/internal/testing/testdb"
)

func newTemplateCmd(flags *rootFlags) *cobra.Command {
	var empty bool

	cmd := &cobra.Command{
		Use:   "template",
		Short: "Rebuild the template database",
		Long: `Drop and recreate DB_TEMPLATE_NAME. Unless --empty is given the
migrations no feature flag gates are applied to it; each clone applies the
rest of its plan when it is brought up.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := flags.logger()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			return testdb.BuildTemplate(ctx, testdb.Options{Logger: logger},
				flags.initOptions(""), testdb.TemplateOptions{Empty: empty})
		},
	}

	cmd.Flags().BoolVar(&empty, "empty", false, "leave the template unmigrated")
	return cmd
}

func newUpCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "up [name]",
		Short: "Clone and migrate a test database and leave it in place",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := flags.logger()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			name := ""
			if len(args) == 1 {
				name = args[0]
			}

			m := testdb.NewManager(testdb.Options{Logger: logger})
			db, err := m.Initialize(ctx, flags.initOptions(name))
			if err != nil {
				return err
			}
			// The database stays; only the handles are released.
			if aux, _ := m.Auxiliary(); aux != nil {
				aux.Close()
			}
			if err := db.Close(); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), m.Prepared().Database.Database)
			return nil
		},
	}
}

func newDownCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "down [name]",
		Short: "Drop a test database",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := flags.logger()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			prepared, err := testdb.Prepare(testdb.Options{Logger: logger}, flags.initOptions(name))
			if err != nil {
				return err
			}

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			admin := database.NewAdmin(testdb.AdminConfig(prepared.Config), logger)
			if err := admin.DropDatabase(ctx, prepared.Database.Database); err != nil {
				return err
			}
			logger.Info("dropped", zap.String("database", prepared.Database.Database))
			return nil
		},
	}
}

func newPlanCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "plan",
		Short: "Print the migration plan for the current flags as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			prepared, err := testdb.Prepare(testdb.Options{Logger: zap.NewNop()}, flags.initOptions(""))
			if err != nil {
				return err
			}
			return writePlan(cmd.OutOrStdout(), newPlanReport(prepared))
		},
	}
}

type planReport struct {
	Kind       string            `yaml:"kind"`
	Database   string            `yaml:"database"`
	Template   string            `yaml:"template"`
	Config     string            `yaml:"config,omitempty"`
	Flags      map[string]bool   `yaml:"flags"`
	Tables     []string          `yaml:"tables"`
	Migrations []migrationReport `yaml:"migrations"`
}

type migrationReport struct {
	Version int64  `yaml:"version"`
	Name    string `yaml:"name"`
	Flag    string `yaml:"flag,omitempty"`
}

func newPlanReport(p *testdb.Prepared) planReport {
	set := p.Plan.Set()
	r := planReport{
		Kind:     string(p.Plan.Kind()),
		Database: p.Database.Database,
		Template: p.Config.Database.Template,
		Config:   p.Config.File,
		Flags:    p.Flags.Values(),
		Tables:   set.Tables(),
	}
	for _, m := range set.Migrations {
		r.Migrations = append(r.Migrations, migrationReport{
			Version: m.Version,
			Name:    m.Name,
			Flag:    m.FeatureFlag,
		})
	}
	return r
}

func writePlan(w io.Writer, r planReport) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return err
	}
	return enc.Close()
}
