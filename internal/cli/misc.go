package cli

import (
	"runtime"

	"github.com/spf13/cobra"

	"github.com/naveenspark/carpolicy/internal/browser"
)

func (a *App) newOpenCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "open [login|dashboard|admin|profile]",
		Short:     "Open the web UI in your browser",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"login", "dashboard", "admin", "profile"},
		RunE: func(cmd *cobra.Command, args []string) error {
			page := "dashboard"
			if len(args) == 1 {
				page = args[0]
			} else if s, err := a.client.Session(); err == nil && s != nil && s.User.IsAdmin {
				page = "admin"
			}
			target, err := browser.PageURL(a.cfg.Web(), page)
			if err != nil {
				return err
			}
			if err := a.OpenBrowser(target); err != nil {
				a.printf(cmd, "Could not open browser. Visit this URL manually:\n  %s\n", target)
				return nil
			}
			a.printf(cmd, "Opened %s\n", target)
			return nil
		},
	}
}

func (a *App) newUICmd() *cobra.Command {
	return &cobra.Command{
		Use:     "ui",
		Aliases: []string{"dashboard"},
		Short:   "Open the terminal dashboard",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := a.requireSession(); err != nil {
				return err
			}
			return a.LaunchUI(cmd.Context(), a.client, a.Version)
		},
	}
}

func (a *App) newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a.printf(cmd, "carpolicy %s (%s %s/%s)\n", a.Version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
			return nil
		},
	}
}
