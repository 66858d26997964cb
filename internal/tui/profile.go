package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/naveenspark/carpolicy/pkg/client"
	"github.com/naveenspark/carpolicy/pkg/domain"
)

type verifiedMsg struct {
	v   *domain.Verification
	err error
}

func (m verifiedMsg) failure() error { return m.err }

type refreshedMsg struct {
	session *domain.Session
	err     error
}

func (m refreshedMsg) failure() error { return m.err }

type profileModel struct {
	ctx       context.Context
	client    *client.Client
	session   *domain.Session
	verified  *domain.Verification
	statusMsg string
	now       func() time.Time
}

func newProfileModel(ctx context.Context, c *client.Client) profileModel {
	return profileModel{ctx: ctx, client: c, now: time.Now}
}

// Init asks the server whether the current access token is still accepted.
func (m profileModel) Init() tea.Cmd {
	ctx, c := m.ctx, m.client
	return func() tea.Msg {
		v, err := c.VerifyAuthentication(ctx)
		return verifiedMsg{v: v, err: err}
	}
}

func (m profileModel) Update(msg tea.Msg) (profileModel, tea.Cmd) {
	switch msg := msg.(type) {
	case verifiedMsg:
		if msg.err != nil {
			m.verified = nil
			m.statusMsg = fmt.Sprintf("verification failed: %v", msg.err)
			return m, nil
		}
		m.verified = msg.v
		m.statusMsg = ""

	case refreshedMsg:
		if msg.err != nil {
			m.statusMsg = fmt.Sprintf("refresh failed: %v", msg.err)
			return m, nil
		}
		m.session = msg.session
		m.statusMsg = "session refreshed"

	case tea.KeyMsg:
		switch msg.String() {
		case "r":
			ctx, c := m.ctx, m.client
			m.statusMsg = "refreshing..."
			return m, func() tea.Msg {
				s, err := c.Refresh(ctx)
				return refreshedMsg{session: s, err: err}
			}
		case "v":
			return m, m.Init()
		}
	}
	return m, nil
}

func (m profileModel) View() string {
	var b strings.Builder
	b.WriteString(" " + sectionHeaderStyle.Render("Profile") + "\n\n")
	if m.session == nil {
		b.WriteString(" " + dimStyle.Render("loading...") + "\n")
		return b.String()
	}

	u := m.session.User
	now := m.now()
	row := func(label, value string) {
		b.WriteString("   " + metaStyle.Render(padRight(label, 16)) + value + "\n")
	}
	name := selectedStyle.Render(u.Username)
	if u.IsAdmin {
		name += " " + adminBadgeStyle.Render("admin")
	}
	b.WriteString(" " + normalStyle.Render(domain.Greeting(now.Hour())+",") + " " + name + "\n\n")
	row("user id", normalStyle.Render(fmt.Sprint(u.UserID)))
	row("email", normalStyle.Render(u.Email))
	row("access token", tokenStatus(m.session.AccessToken, now))
	row("refresh token", tokenStatus(m.session.RefreshToken, now))
	if m.verified != nil {
		row("server", okStyle.Render(m.verified.Message))
	}
	if m.statusMsg != "" {
		b.WriteString("\n " + accentStyle.Render(m.statusMsg) + "\n")
	}
	return b.String()
}

func tokenStatus(token string, now time.Time) string {
	exp, err := client.TokenExpiry(token)
	if err != nil {
		return dimStyle.Render("expiry unknown")
	}
	if !exp.After(now) {
		return errorStyle.Render("expired")
	}
	return okStyle.Render("valid") + " " + dimStyle.Render("expires "+formatExpiry(exp, now))
}
