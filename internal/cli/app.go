// Package cli implements the carpolicy command tree.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/naveenspark/carpolicy/internal/browser"
	"github.com/naveenspark/carpolicy/internal/config"
	"github.com/naveenspark/carpolicy/internal/logging"
	"github.com/naveenspark/carpolicy/internal/tui"
	"github.com/naveenspark/carpolicy/pkg/client"
	"github.com/naveenspark/carpolicy/pkg/domain"
	"github.com/naveenspark/carpolicy/pkg/session"
)

// MsgSessionExpiredHint is printed when a command ends the session.
const MsgSessionExpiredHint = "Session expired. Please log in again."

// errNotLoggedIn is returned by commands that need a stored session.
var errNotLoggedIn = fmt.Errorf("not logged in, run 'carpolicy login' first: %w", client.ErrNoSession)

// App holds the dependencies shared by every command. The zero value plus a
// Version is ready to use; tests swap the function fields.
type App struct {
	Version string
	// ConfigOptions overrides config.DefaultOptions when set.
	ConfigOptions *config.Options

	// LaunchUI starts the terminal dashboard.
	LaunchUI func(ctx context.Context, c *client.Client, version string) error
	// OpenBrowser opens a URL in the user's browser.
	OpenBrowser func(url string) error
	// Now is the clock used for greetings and policy dates.
	Now func() time.Time

	cfg    *config.Config
	log    zerolog.Logger
	client *client.Client
	output string
}

type rootFlags struct {
	configFile  string
	apiURL      string
	logLevel    string
	logFormat   string
	sessionFile string
	timeout     time.Duration
}

// NewRootCmd builds the full command tree bound to a.
func (a *App) NewRootCmd() *cobra.Command {
	a.defaults()
	var flags rootFlags

	root := &cobra.Command{
		Use:   "carpolicy",
		Short: "Manage car insurance policies from the terminal",
		Long: `carpolicy talks to the car insurance policy service. Sign in once and
manage your policies, optional extras and (for admins) users.

Run without a subcommand to open the dashboard.`,
		Version:       a.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd, flags)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.client.Session()
			if err != nil {
				return err
			}
			if s == nil {
				printSignedOut(cmd.OutOrStdout())
				return nil
			}
			return a.LaunchUI(cmd.Context(), a.client, a.Version)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configFile, "config", "", "config file (default $HOME/.carpolicy/config.yaml)")
	pf.StringVar(&flags.apiURL, "api-url", "", "policy API base URL")
	pf.StringVar(&flags.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	pf.StringVar(&flags.logFormat, "log-format", "", "log format (console, json)")
	pf.StringVar(&flags.sessionFile, "session-file", "", "where the session is stored")
	pf.DurationVar(&flags.timeout, "timeout", 0, "per-request timeout")
	pf.StringVarP(&a.output, "output", "o", FormatTable, "output format (table, json, yaml)")

	root.AddCommand(
		a.newLoginCmd(),
		a.newLogoutCmd(),
		a.newRegisterCmd(),
		a.newStatusCmd(),
		a.newVerifyCmd(),
		a.newRefreshCmd(),
		a.newOpenCmd(),
		a.newUICmd(),
		a.newVersionCmd(),
		a.newUsersCmd(),
		a.newPoliciesCmd(),
		a.newExtrasCmd(),
	)
	return root
}

// Run executes the command tree and returns the process exit code.
func (a *App) Run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	root := a.NewRootCmd()
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	switch {
	case err == nil:
		return 0
	case errors.Is(err, client.ErrSessionExpired):
		fmt.Fprintln(stderr, MsgSessionExpiredHint) //nolint:errcheck
	default:
		fmt.Fprintf(stderr, "error: %v\n", err) //nolint:errcheck
	}
	return 1
}

func (a *App) defaults() {
	if a.LaunchUI == nil {
		a.LaunchUI = tui.Run
	}
	if a.OpenBrowser == nil {
		a.OpenBrowser = browser.Open
	}
	if a.Now == nil {
		a.Now = time.Now
	}
	if a.ConfigOptions == nil {
		opts := config.DefaultOptions()
		a.ConfigOptions = &opts
	}
}

// setup resolves configuration and wires the logger, session store and client.
func (a *App) setup(cmd *cobra.Command, flags rootFlags) error {
	if err := checkFormat(a.output); err != nil {
		return err
	}

	opts := *a.ConfigOptions
	if flags.configFile != "" {
		opts.ConfigFile = flags.configFile
	}
	cfg, err := config.Load(opts)
	if err != nil {
		return err
	}
	pf := cmd.Flags()
	if pf.Changed("api-url") {
		cfg.APIURL = flags.apiURL
	}
	if pf.Changed("log-level") {
		cfg.LogLevel = flags.logLevel
	}
	if pf.Changed("log-format") {
		cfg.LogFormat = flags.logFormat
	}
	if pf.Changed("session-file") {
		cfg.SessionFile = flags.sessionFile
	}
	if pf.Changed("timeout") {
		cfg.Timeout = flags.timeout
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	a.log, err = logging.New(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}

	store, err := a.openStore(cfg)
	if err != nil {
		return err
	}
	a.client = client.New(cfg.APIURL, store,
		client.WithTimeout(cfg.Timeout),
		client.WithLogger(a.log),
	)
	a.log.Debug().Str("api_url", cfg.APIURL).Str("session_file", cfg.SessionFile).Msg("configured")
	return nil
}

func (a *App) openStore(cfg *config.Config) (session.Store, error) {
	if cfg.SessionFile == "" {
		return nil, errors.New("no session file configured")
	}
	if cfg.SessionPassphrase != "" {
		return session.NewEncryptedFileStore(cfg.SessionFile, cfg.SessionPassphrase)
	}
	return session.NewFileStore(cfg.SessionFile), nil
}

// requireSession returns the stored session or errNotLoggedIn.
func (a *App) requireSession() (*domain.Session, error) {
	s, err := a.client.Session()
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, errNotLoggedIn
	}
	return s, nil
}

func (a *App) render(cmd *cobra.Command, v tabular) error {
	return render(cmd.OutOrStdout(), a.output, v)
}

func (a *App) printf(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintf(cmd.OutOrStdout(), format, args...) //nolint:errcheck
}
