package cmd

import (
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fiberloom/fiberloom/internal/export"
)

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Dumps every table to CSV files",
		RunE:  runExportCommand,
	}
	cmd.Flags().String("dir", "", "output directory (default from export.dir)")
	return cmd
}

func runExportCommand(cmd *cobra.Command, _ []string) error {
	logger, err := buildLogger()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	dir, err := cmd.Flags().GetString("dir")
	if err != nil {
		return err
	}
	if dir == "" {
		dir = viper.GetString("export.dir")
	}

	dsn := viper.GetString("database.dsn")
	if dsn == "" {
		return fmt.Errorf("database.dsn must be set")
	}
	ctx := cmd.Context()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()

	return export.New(pool, logger).ExportAll(ctx, dir)
}
