package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/naveenspark/carpolicy/pkg/domain"
)

func (a *App) newExtrasCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "extras",
		Aliases: []string{"extra"},
		Short:   "Browse and manage optional extras",
		Long:    `Browse the optional extras catalogue. Changes require an administrator session.`,
	}
	cmd.AddCommand(
		a.newExtrasListCmd(),
		a.newExtrasGetCmd(),
		a.newExtrasCreateCmd(),
		a.newExtrasUpdateCmd(),
		a.newExtrasDeleteCmd(),
	)
	return cmd
}

func (a *App) newExtrasListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the catalogue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			extras, err := a.client.ListExtras(cmd.Context())
			if err != nil {
				return err
			}
			return a.render(cmd, extraList(extras))
		},
	}
}

func (a *App) newExtrasGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <extra-id>",
		Short: "Show one extra",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			e, err := a.client.GetExtra(cmd.Context(), id)
			if err != nil {
				return err
			}
			return a.render(cmd, extraList{*e})
		},
	}
}

func (a *App) newExtrasCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Add an extra to the catalogue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var e domain.OptionalExtra
			e.Name, _ = cmd.Flags().GetString("name")
			e.Code, _ = cmd.Flags().GetString("code")
			e.Price, _ = cmd.Flags().GetFloat64("price")
			if e.Name == "" || e.Code == "" {
				return fmt.Errorf("--name and --code are required")
			}
			if e.Price < 0 {
				return fmt.Errorf("--price must not be negative")
			}

			created, err := a.client.CreateExtra(cmd.Context(), e)
			if err != nil {
				return err
			}
			return a.render(cmd, extraList{*created})
		},
	}
	cmd.Flags().String("name", "", "display name")
	cmd.Flags().String("code", "", "short code")
	cmd.Flags().Float64("price", 0, "annual price")
	return cmd
}

func (a *App) newExtrasUpdateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update <extra-id>",
		Short: "Change an extra",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			e, err := a.client.GetExtra(cmd.Context(), id)
			if err != nil {
				return err
			}
			f := cmd.Flags()
			if f.Changed("name") {
				e.Name, _ = f.GetString("name")
			}
			if f.Changed("code") {
				e.Code, _ = f.GetString("code")
			}
			if f.Changed("price") {
				e.Price, _ = f.GetFloat64("price")
			}

			updated, err := a.client.UpdateExtra(cmd.Context(), *e)
			if err != nil {
				return err
			}
			return a.render(cmd, extraList{*updated})
		},
	}
	cmd.Flags().String("name", "", "display name")
	cmd.Flags().String("code", "", "short code")
	cmd.Flags().Float64("price", 0, "annual price")
	return cmd
}

func (a *App) newExtrasDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <extra-id>",
		Short: "Remove an extra from the catalogue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := a.client.DeleteExtra(cmd.Context(), id); err != nil {
				return err
			}
			a.printf(cmd, "Deleted extra %d.\n", id)
			return nil
		},
	}
}
