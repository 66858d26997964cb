package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/naveenspark/carpolicy/pkg/domain"
)

func (a *App) newPoliciesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "policies",
		Aliases: []string{"policy"},
		Short:   "Manage car insurance policies",
	}
	cmd.AddCommand(
		a.newPoliciesListCmd(),
		a.newPoliciesGetCmd(),
		a.newPoliciesMineCmd(),
		a.newPoliciesFilterCmd(),
		a.newPoliciesCreateCmd(),
		a.newPoliciesUpdateCmd(),
		a.newPoliciesDeleteCmd(),
	)
	return cmd
}

func (a *App) newPoliciesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every policy visible to you",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			policies, err := a.client.ListPolicies(cmd.Context())
			if err != nil {
				return err
			}
			return a.render(cmd, policyList(policies))
		},
	}
}

func (a *App) newPoliciesMineCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mine",
		Short: "List your own policies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			policies, err := a.client.MyPolicies(cmd.Context())
			if err != nil {
				return err
			}
			return a.render(cmd, policyList(policies))
		},
	}
}

func (a *App) newPoliciesGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <policy-id>",
		Short: "Show one policy and its extras",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			p, err := a.client.GetPolicy(cmd.Context(), id)
			if err != nil {
				return err
			}
			if a.output != FormatTable {
				return a.render(cmd, policyList{*p})
			}
			return a.render(cmd, policyFields(*p))
		},
	}
}

func (a *App) newPoliciesFilterCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "filter <field> <value>",
		Short:   "List policies whose field equals value",
		Example: "  carpolicy policies filter make Ford",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			policies, err := a.client.FilterPolicies(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return a.render(cmd, policyList(policies))
		},
	}
}

func (a *App) newPoliciesCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Take out a new policy",
		Long: `Take out a new policy starting today. The policy number is generated and
the term runs for one year.

Examples:
  carpolicy policies create --vrn AB12CDE --make Ford --model Focus --coverage Comprehensive --extras 1,3`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.requireSession()
			if err != nil {
				return err
			}
			f := cmd.Flags()
			userID, _ := f.GetInt("user-id")
			if userID == 0 {
				userID = s.User.UserID
			}
			vrn, _ := f.GetString("vrn")
			vehicleMake, _ := f.GetString("make")
			vehicleModel, _ := f.GetString("model")
			coverage, _ := f.GetString("coverage")
			if vrn == "" || vehicleMake == "" || vehicleModel == "" || coverage == "" {
				return fmt.Errorf("--vrn, --make, --model and --coverage are required")
			}

			extras, err := a.selectExtras(cmd)
			if err != nil {
				return err
			}
			p := domain.NewPolicy(userID, vrn, vehicleMake, vehicleModel, coverage, a.Now())
			created, err := a.client.CreatePolicy(cmd.Context(), p, extras)
			if err != nil {
				return err
			}
			return a.render(cmd, policyList{*created})
		},
	}
	cmd.Flags().Int("user-id", 0, "policy holder (admins only, defaults to you)")
	cmd.Flags().String("vrn", "", "vehicle registration number")
	cmd.Flags().String("make", "", "vehicle make")
	cmd.Flags().String("model", "", "vehicle model")
	cmd.Flags().String("coverage", "", "coverage level")
	cmd.Flags().IntSlice("extras", nil, "optional extra ids to attach")
	return cmd
}

func (a *App) newPoliciesUpdateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update <policy-id>",
		Short: "Change a policy",
		Long: `Change a policy. Only the flags you pass are changed. --extras replaces
the attached extras and --clear-extras removes them all.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			current, err := a.client.GetPolicy(cmd.Context(), id)
			if err != nil {
				return err
			}
			p := current.Policy
			f := cmd.Flags()
			if f.Changed("vrn") {
				v, _ := f.GetString("vrn")
				p.VRN = strings.ToUpper(v)
			}
			if f.Changed("make") {
				p.Make, _ = f.GetString("make")
			}
			if f.Changed("model") {
				p.Model, _ = f.GetString("model")
			}
			if f.Changed("coverage") {
				p.Coverage, _ = f.GetString("coverage")
			}
			if f.Changed("start") {
				start, _ := f.GetString("start")
				wire, err := domain.ParseDisplayDate(start)
				if err != nil {
					return fmt.Errorf("--start: %w", err)
				}
				p.StartDate = wire
			}
			if f.Changed("end") {
				end, _ := f.GetString("end")
				wire, err := domain.ParseDisplayDate(end)
				if err != nil {
					return fmt.Errorf("--end: %w", err)
				}
				p.EndDate = wire
			}

			extras := current.OptionalExtras
			if clearAll, _ := f.GetBool("clear-extras"); clearAll {
				extras = nil
			} else if f.Changed("extras") {
				if extras, err = a.selectExtras(cmd); err != nil {
					return err
				}
			}
			updated, err := a.client.UpdatePolicy(cmd.Context(), p, extras)
			if err != nil {
				return err
			}
			return a.render(cmd, policyList{*updated})
		},
	}
	cmd.Flags().String("vrn", "", "vehicle registration number")
	cmd.Flags().String("make", "", "vehicle make")
	cmd.Flags().String("model", "", "vehicle model")
	cmd.Flags().String("coverage", "", "coverage level")
	cmd.Flags().String("start", "", "start date (dd/mm/yyyy)")
	cmd.Flags().String("end", "", "end date (dd/mm/yyyy)")
	cmd.Flags().IntSlice("extras", nil, "optional extra ids to attach")
	cmd.Flags().Bool("clear-extras", false, "remove every attached extra")
	return cmd
}

func (a *App) newPoliciesDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <policy-id>",
		Short: "Cancel a policy",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := a.client.DeletePolicy(cmd.Context(), id); err != nil {
				return err
			}
			a.printf(cmd, "Deleted policy %d.\n", id)
			return nil
		},
	}
}

// selectExtras resolves --extras ids against the catalogue.
func (a *App) selectExtras(cmd *cobra.Command) ([]domain.OptionalExtra, error) {
	ids, _ := cmd.Flags().GetIntSlice("extras")
	if len(ids) == 0 {
		return nil, nil
	}
	all, err := a.client.ListExtras(cmd.Context())
	if err != nil {
		return nil, err
	}
	selected := domain.SelectExtras(all, ids)
	if missing := missingIDs(ids, domain.ExtraIDs(selected)); len(missing) > 0 {
		return nil, fmt.Errorf("unknown optional extra %v", missing)
	}
	return selected, nil
}

// missingIDs returns the ids not present in found, without repeats.
func missingIDs(ids, found []int) []int {
	seen := make(map[int]bool, len(found)+len(ids))
	for _, id := range found {
		seen[id] = true
	}
	var missing []int
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			missing = append(missing, id)
		}
	}
	return missing
}

func policyFields(p domain.PolicyWithExtras) fields {
	return fields{
		{"policy_id", fmt.Sprint(p.Policy.PolicyID)},
		{"policy_number", p.Policy.PolicyNumber},
		{"user_id", fmt.Sprint(p.Policy.UserID)},
		{"vrn", p.Policy.VRN},
		{"vehicle", p.Policy.Make + " " + p.Policy.Model},
		{"coverage", p.Policy.Coverage},
		{"start_date", domain.FormatDate(p.Policy.StartDate)},
		{"end_date", domain.FormatDate(p.Policy.EndDate)},
		{"extras", extrasSummary(p.OptionalExtras)},
		{"extras_total", price(p.ExtrasTotal())},
	}
}
