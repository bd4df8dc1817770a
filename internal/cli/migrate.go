package cli

import (
	"database/sql"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/frostdev-ops/eventstats-backend-go/internal/config"
	"github.com/frostdev-ops/eventstats-backend-go/internal/database"
)

type migrateOptions struct {
	dbPath string
	steps  int
}

func newMigrateCommand(root *rootOptions) *cobra.Command {
	opts := &migrateOptions{}

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or revert the sqlite schema",
		Long: `Apply or revert the embedded sqlite migrations.

The database path comes from --db, falling back to database.path in the
configuration. MongoDB needs no migrations; indexes are created on connect.`,
	}
	cmd.PersistentFlags().StringVar(&opts.dbPath, "db", "", "sqlite database path")

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply every pending migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.run(cmd, root, func(db *sql.DB) error {
				return database.Migrate(db)
			})
		},
	}

	down := &cobra.Command{
		Use:   "down",
		Short: "Revert migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.run(cmd, root, func(db *sql.DB) error {
				return database.MigrateDown(db, opts.steps)
			})
		},
	}
	down.Flags().IntVar(&opts.steps, "steps", 0, "number of migrations to revert (0 reverts all)")

	current := &cobra.Command{
		Use:   "version",
		Short: "Print the applied schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.run(cmd, root, func(*sql.DB) error { return nil })
		},
	}

	cmd.AddCommand(up, down, current)
	return cmd
}

func (o *migrateOptions) run(cmd *cobra.Command, root *rootOptions, apply func(*sql.DB) error) error {
	log := root.logger(cmd.ErrOrStderr())

	dbCfg := config.DatabaseConfig{Driver: config.DriverSQLite, Path: o.dbPath, MaxConnections: 1}
	if dbCfg.Path == "" {
		cfg, err := root.loadConfig()
		if err != nil {
			return err
		}
		if cfg.Database.Driver == config.DriverMongo {
			return fmt.Errorf("migrations only apply to the sqlite driver")
		}
		dbCfg.Path = cfg.Database.Path
	}

	db, err := database.Initialize(dbCfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := apply(db); err != nil {
		return err
	}

	version, dirty, err := database.SchemaVersion(db)
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"path":    dbCfg.Path,
		"command": cmd.Name(),
	}).Info("Migration command finished")

	fmt.Fprintf(cmd.OutOrStdout(), "schema version %d", version)
	if dirty {
		fmt.Fprint(cmd.OutOrStdout(), " (dirty)")
	}
	fmt.Fprintln(cmd.OutOrStdout())
	return nil
}
