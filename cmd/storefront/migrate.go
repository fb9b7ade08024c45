package main

import (
	"github.com/spf13/cobra"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/db"
)

func newMigrateCommand(rootOpts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:          "migrate",
		Short:        "Apply database migrations and exit",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(rootOpts)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			return db.RunMigrations(cfg.DatabaseDSN, logger)
		},
	}
}
