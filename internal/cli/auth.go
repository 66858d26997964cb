package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/naveenspark/carpolicy/pkg/client"
	"github.com/naveenspark/carpolicy/pkg/domain"
)

func (a *App) newLoginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store a session",
		Long: `Sign in with your username and password. The session is stored locally
and refreshed automatically when the access token expires.

Examples:
  carpolicy login -u alice
  echo "$PASSWORD" | carpolicy login -u alice`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			username, _ := cmd.Flags().GetString("username")
			password, _ := cmd.Flags().GetString("password")

			in := bufio.NewReader(cmd.InOrStdin())
			var err error
			if username == "" {
				if username, err = prompt(cmd, in, "Username: "); err != nil {
					return err
				}
			}
			if password == "" {
				if password, err = prompt(cmd, in, "Password: "); err != nil {
					return err
				}
			}
			if username == "" || password == "" {
				return errors.New("username and password are required")
			}

			s, err := a.client.Login(cmd.Context(), username, password)
			if err != nil {
				return err
			}
			a.printf(cmd, "%s, %s.\n", domain.Greeting(a.Now().Hour()), s.User.Username)
			if s.User.IsAdmin {
				a.printf(cmd, "Signed in as an administrator.\n")
			}
			return nil
		},
	}
	cmd.Flags().StringP("username", "u", "", "username")
	cmd.Flags().StringP("password", "p", "", "password (read from stdin when omitted)")
	return cmd
}

func (a *App) newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Discard the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.client.Logout(); err != nil {
				return err
			}
			a.printf(cmd, "Logged out.\n")
			return nil
		},
	}
}

func (a *App) newRegisterCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a new account",
		Long: `Create a new account. Registration does not sign you in.

Examples:
  carpolicy register --username bob --email bob@example.com --password s3cret --confirm s3cret`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var req domain.RegisterRequest
			req.Username, _ = cmd.Flags().GetString("username")
			req.Email, _ = cmd.Flags().GetString("email")
			req.Password, _ = cmd.Flags().GetString("password")
			req.ConfirmPassword, _ = cmd.Flags().GetString("confirm")
			req.IsAdmin, _ = cmd.Flags().GetBool("admin")

			u, err := a.client.Register(cmd.Context(), req)
			if err != nil {
				return err
			}
			a.printf(cmd, "Registered %s. Sign in with: carpolicy login -u %s\n", u.Username, u.Username)
			return nil
		},
	}
	cmd.Flags().String("username", "", "username")
	cmd.Flags().String("email", "", "email address")
	cmd.Flags().String("password", "", "password")
	cmd.Flags().String("confirm", "", "password again")
	cmd.Flags().Bool("admin", false, "request an administrator account")
	return cmd
}

func (a *App) newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.client.Session()
			if err != nil {
				return err
			}
			if s == nil {
				a.printf(cmd, "Not logged in.\nUse 'carpolicy login' to authenticate.\n")
				return nil
			}
			return a.render(cmd, a.sessionFields(s))
		},
	}
}

func (a *App) sessionFields(s *domain.Session) fields {
	f := fields{
		{"api", a.cfg.APIURL},
		{"user_id", fmt.Sprint(s.User.UserID)},
		{"username", s.User.Username},
		{"email", s.User.Email},
		{"admin", yesNo(s.User.IsAdmin)},
	}
	now := a.Now()
	for _, tok := range []struct{ name, value string }{
		{"access_token", s.AccessToken},
		{"refresh_token", s.RefreshToken},
	} {
		f = append(f, [2]string{tok.name + "_expires", expiryText(tok.value, now)})
	}
	return f
}

func expiryText(token string, now time.Time) string {
	exp, err := client.TokenExpiry(token)
	if err != nil {
		return "unknown"
	}
	if !exp.After(now) {
		return "expired " + exp.Local().Format(time.DateTime)
	}
	return exp.Local().Format(time.DateTime) + " (in " + exp.Sub(now).Round(time.Second).String() + ")"
}

func (a *App) newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Check the session against the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := a.requireSession(); err != nil {
				return err
			}
			v, err := a.client.VerifyAuthentication(cmd.Context())
			if err != nil {
				return err
			}
			a.printf(cmd, "%s (user %d)\n", v.Message, v.UserID)
			return nil
		},
	}
}

func (a *App) newRefreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Exchange the refresh token for a new session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := a.requireSession(); err != nil {
				return err
			}
			s, err := a.client.Refresh(cmd.Context())
			if err != nil {
				return err
			}
			a.printf(cmd, "Session refreshed for %s.\n", s.User.Username)
			return nil
		},
	}
}

// prompt reads one trimmed line. It is not an interactive terminal prompt;
// input may be piped.
func prompt(cmd *cobra.Command, in *bufio.Reader, label string) (string, error) {
	fmt.Fprint(cmd.ErrOrStderr(), label) //nolint:errcheck
	line, err := in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}
