package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/SscSPs/oversight/internal/core/domain"
	"github.com/SscSPs/oversight/internal/dto"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// UserCmd returns the "user" command group.
func UserCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Provision and manage users",
	}
	cmd.AddCommand(userCreateCmd(env), userListCmd(env), userSetRoleCmd(env), userDeactivateCmd(env))
	return cmd
}

func parseRole(raw string) (domain.UserRole, error) {
	role := domain.UserRole(strings.ToUpper(strings.TrimSpace(raw)))
	if !role.IsValid() {
		return "", fmt.Errorf("invalid role: %s\nValid roles: EMPLOYEE, HOD, FINANCE, ADMIN, SUPERUSER", raw)
	}
	return role, nil
}

func userCreateCmd(env *Env) *cobra.Command {
	var req dto.CreateUserRequest
	var role string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := parseRole(role)
			if err != nil {
				return err
			}
			req.Role = r
			if len(req.Password) < 8 {
				return fmt.Errorf("password must be at least 8 characters")
			}

			users, release, err := env.Users(cmd.Context())
			if err != nil {
				return err
			}
			defer release()

			user, err := users.CreateUser(cmd.Context(), req, systemActor)
			if err != nil {
				return fmt.Errorf("failed to create user: %w", err)
			}
			fmt.Fprintf(env.Out, "%s Created user %s (%s, %s)\n", okMark, user.UserID, user.Email, user.Role)
			return nil
		},
	}
	cmd.Flags().StringVar(&req.Name, "name", "", "display name")
	cmd.Flags().StringVar(&req.Email, "email", "", "login email")
	cmd.Flags().StringVar(&req.Password, "password", "", "initial password")
	cmd.Flags().StringVar(&role, "role", string(domain.RoleEmployee), "EMPLOYEE, HOD, FINANCE, ADMIN or SUPERUSER")
	cmd.Flags().StringVar(&req.Department, "department", "", "department (required for HOD)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func userListCmd(env *Env) *cobra.Command {
	var limit, offset int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			users, release, err := env.Users(cmd.Context())
			if err != nil {
				return err
			}
			defer release()

			list, err := users.ListUsers(cmd.Context(), limit, offset)
			if err != nil {
				return fmt.Errorf("failed to list users: %w", err)
			}
			if len(list) == 0 {
				fmt.Fprintln(env.Out, "No users found")
				return nil
			}

			w := tabwriter.NewWriter(env.Out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tEMAIL\tNAME\tROLE\tDEPARTMENT\tSTATUS")
			for _, u := range list {
				status := color.New(color.FgGreen).Sprint("active")
				if !u.IsActive {
					status = color.New(color.FgRed).Sprint("inactive")
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", u.UserID, u.Email, u.Name, u.Role, u.Department, status)
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum users to show")
	cmd.Flags().IntVar(&offset, "offset", 0, "users to skip")
	return cmd
}

func userSetRoleCmd(env *Env) *cobra.Command {
	var department string
	cmd := &cobra.Command{
		Use:   "set-role [user-id] [role]",
		Short: "Change a user's role",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			role, err := parseRole(args[1])
			if err != nil {
				return err
			}
			req := dto.UpdateUserRequest{Role: &role}
			if cmd.Flags().Changed("department") {
				req.Department = &department
			}

			users, release, err := env.Users(cmd.Context())
			if err != nil {
				return err
			}
			defer release()

			user, err := users.UpdateUser(cmd.Context(), args[0], req, systemActor)
			if err != nil {
				return fmt.Errorf("failed to update user: %w", err)
			}
			fmt.Fprintf(env.Out, "%s %s is now %s\n", okMark, user.Email, user.Role)
			return nil
		},
	}
	cmd.Flags().StringVar(&department, "department", "", "department to assign")
	return cmd
}

func userDeactivateCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "deactivate [user-id]",
		Short: "Block a user from signing in",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			users, release, err := env.Users(cmd.Context())
			if err != nil {
				return err
			}
			defer release()

			inactive := false
			user, err := users.UpdateUser(cmd.Context(), args[0], dto.UpdateUserRequest{IsActive: &inactive}, systemActor)
			if err != nil {
				return fmt.Errorf("failed to deactivate user: %w", err)
			}
			if err := users.ClearRefreshToken(cmd.Context(), user.UserID); err != nil {
				return fmt.Errorf("user deactivated but session revoke failed: %w", err)
			}
			fmt.Fprintf(env.Out, "%s Deactivated %s\n", warnMark, user.Email)
			return nil
		},
	}
}
