package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/naveenspark/carpolicy/pkg/domain"
)

func (a *App) newUsersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "users",
		Aliases: []string{"user"},
		Short:   "Manage users",
		Long: `List, inspect and edit users. Everything except 'me' and changing your
own password requires an administrator session.`,
	}
	cmd.AddCommand(
		a.newUsersListCmd(),
		a.newUsersGetCmd(),
		a.newUsersMeCmd(),
		a.newUsersFilterCmd(),
		a.newUsersCreateCmd(),
		a.newUsersUpdateCmd(),
		a.newUsersDeleteCmd(),
		a.newUsersPasswdCmd(),
	)
	return cmd
}

func (a *App) newUsersListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			users, err := a.client.ListUsers(cmd.Context())
			if err != nil {
				return err
			}
			return a.render(cmd, userList(users))
		},
	}
}

func (a *App) newUsersGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <user-id>",
		Short: "Show one user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			u, err := a.client.GetUser(cmd.Context(), id)
			if err != nil {
				return err
			}
			return a.render(cmd, userList{*u})
		},
	}
}

func (a *App) newUsersMeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "me",
		Short: "Show your own user record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			u, err := a.client.GetMe(cmd.Context())
			if err != nil {
				return err
			}
			return a.render(cmd, userList{*u})
		},
	}
}

func (a *App) newUsersFilterCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "filter <field> <value>",
		Short:   "List users whose field equals value",
		Example: "  carpolicy users filter is_admin 1",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			users, err := a.client.FilterUsers(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return a.render(cmd, userList(users))
		},
	}
}

func (a *App) newUsersCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var u domain.User
			u.Username, _ = cmd.Flags().GetString("username")
			u.Email, _ = cmd.Flags().GetString("email")
			u.Password, _ = cmd.Flags().GetString("password")
			u.IsAdmin, _ = cmd.Flags().GetBool("admin")
			if u.Username == "" || u.Email == "" || u.Password == "" {
				return fmt.Errorf("--username, --email and --password are required")
			}

			created, err := a.client.CreateUser(cmd.Context(), u)
			if err != nil {
				return err
			}
			return a.render(cmd, userList{*created})
		},
	}
	cmd.Flags().String("username", "", "username")
	cmd.Flags().String("email", "", "email address")
	cmd.Flags().String("password", "", "initial password")
	cmd.Flags().Bool("admin", false, "grant administrator rights")
	return cmd
}

func (a *App) newUsersUpdateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update <user-id>",
		Short: "Change a user's profile fields",
		Long: `Change a user's profile fields. Only the flags you pass are changed;
use 'users passwd' for passwords.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			u, err := a.client.GetUser(cmd.Context(), id)
			if err != nil {
				return err
			}
			f := cmd.Flags()
			if f.Changed("username") {
				u.Username, _ = f.GetString("username")
			}
			if f.Changed("email") {
				u.Email, _ = f.GetString("email")
			}
			if f.Changed("admin") {
				u.IsAdmin, _ = f.GetBool("admin")
			}

			updated, err := a.client.UpdateUser(cmd.Context(), *u)
			if err != nil {
				return err
			}
			return a.render(cmd, userList{*updated})
		},
	}
	cmd.Flags().String("username", "", "new username")
	cmd.Flags().String("email", "", "new email address")
	cmd.Flags().Bool("admin", false, "administrator rights")
	return cmd
}

func (a *App) newUsersDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <user-id>",
		Short: "Delete a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := a.client.DeleteUser(cmd.Context(), id); err != nil {
				return err
			}
			a.printf(cmd, "Deleted user %d.\n", id)
			return nil
		},
	}
}

func (a *App) newUsersPasswdCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "passwd [user-id]",
		Short: "Change a password",
		Long: `Change a password. Without a user id your own password is changed and
--current is required. Administrators may reset another user's password by
omitting --current.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			current, _ := cmd.Flags().GetString("current")
			next, _ := cmd.Flags().GetString("new")
			if next == "" {
				return fmt.Errorf("--new is required")
			}

			var id int
			if len(args) == 1 {
				var err error
				if id, err = parseID(args[0]); err != nil {
					return err
				}
			} else {
				s, err := a.requireSession()
				if err != nil {
					return err
				}
				if current == "" {
					return fmt.Errorf("--current is required to change your own password")
				}
				id = s.User.UserID
			}

			if err := a.client.UpdateUserPassword(cmd.Context(), id, current, next); err != nil {
				return err
			}
			a.printf(cmd, "Password updated.\n")
			return nil
		},
	}
	cmd.Flags().String("current", "", "current password (omit for an admin reset)")
	cmd.Flags().String("new", "", "new password")
	return cmd
}

func parseID(arg string) (int, error) {
	id, err := strconv.Atoi(arg)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", arg)
	}
	return id, nil
}
