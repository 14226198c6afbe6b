package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bpointel/docintel/internal/infrastructure/database/postgres"
	"github.com/bpointel/docintel/internal/infrastructure/monitoring/logging"
)

// newMigrateCmd builds the schema-migration command group.  It runs against
// the configured database without starting the pipeline, so it works on an
// empty database.
func newMigrateCmd() *cobra.Command {
	var migrationsPath string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}
	cmd.PersistentFlags().StringVar(&migrationsPath, "path", "", "migrations directory (default: database.migration_path)")

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			url, path := migrateTarget(cliCtx, migrationsPath)
			if err := postgres.RunMigrations(url, path); err != nil {
				return err
			}
			cliCtx.Logger.Info("migrations applied", logging.String("path", path))
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			url, path := migrateTarget(cliCtx, migrationsPath)
			if err := postgres.RollbackMigration(url, path, steps); err != nil {
				return err
			}
			cliCtx.Logger.Info("migrations rolled back", logging.Int("steps", steps))
			fmt.Fprintf(cmd.OutOrStdout(), "rolled back %d migration(s)\n", steps)
			return nil
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")

	status := &cobra.Command{
		Use:   "status",
		Short: "Show the current schema version",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			url, path := migrateTarget(cliCtx, migrationsPath)
			version, dirty, err := postgres.MigrationStatus(url, path)
			if err != nil {
				return err
			}
			result := map[string]interface{}{"version": version, "dirty": dirty}
			return printResult(cmd, result, func() string {
				if dirty {
					return fmt.Sprintf("version %d (dirty)", version)
				}
				return fmt.Sprintf("version %d", version)
			})
		},
	}

	cmd.AddCommand(up, down, status)
	return cmd
}

func migrateTarget(cliCtx *CLIContext, override string) (url, path string) {
	path = override
	if path == "" {
		path = cliCtx.Config.Database.MigrationPath
	}
	if path == "" {
		path = "migrations"
	}
	if !strings.Contains(path, "://") {
		path = "file://" + path
	}
	return postgres.BuildURL(cliCtx.Config.Database), path
}
