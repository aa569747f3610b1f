package cli

import "github.com/spf13/cobra"

// NewRootCmd assembles oversightctl.
func NewRootCmd(env *Env) *cobra.Command {
	root := &cobra.Command{
		Use:           "oversightctl",
		Short:         "Operator tool for the Oversight requisition service",
		Long:          "oversightctl applies database migrations and provisions users.\nIt reads the same environment (.env) as the server.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(MigrateCmd(env))
	root.AddCommand(UserCmd(env))
	return root
}
