package cli

import (
	"fmt"

	"github.com/SscSPs/oversight/pkg/database"
	"github.com/spf13/cobra"
)

// MigrateCmd returns the "migrate" command group.
func MigrateCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back database migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := env.Migrate(database.Up); err != nil {
				return fmt.Errorf("migrate up: %w", err)
			}
			fmt.Fprintf(env.Out, "%s Schema is up to date\n", okMark)
			return nil
		},
	})

	var confirm bool
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back every migration (drops all data)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !confirm {
				return fmt.Errorf("refusing to drop the schema without --yes")
			}
			if err := env.Migrate(database.Down); err != nil {
				return fmt.Errorf("migrate down: %w", err)
			}
			fmt.Fprintf(env.Out, "%s Schema rolled back\n", warnMark)
			return nil
		},
	}
	down.Flags().BoolVar(&confirm, "yes", false, "confirm dropping all tables")
	cmd.AddCommand(down)

	return cmd
}
