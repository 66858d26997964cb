package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/naveenspark/carpolicy/pkg/client"
	"github.com/naveenspark/carpolicy/pkg/domain"
)

type usersLoadedMsg struct {
	users []domain.User
	err   error
}

func (m usersLoadedMsg) failure() error { return m.err }

// usersModel lists every account. Only administrators reach it.
type usersModel struct {
	ctx     context.Context
	client  *client.Client
	users   []domain.User
	cursor  int
	loading bool
	err     string
}

func newUsersModel(ctx context.Context, c *client.Client) usersModel {
	return usersModel{ctx: ctx, client: c, loading: true}
}

func (m usersModel) Init() tea.Cmd {
	ctx, c := m.ctx, m.client
	return func() tea.Msg {
		users, err := c.ListUsers(ctx)
		return usersLoadedMsg{users: users, err: err}
	}
}

func (m usersModel) Update(msg tea.Msg) (usersModel, tea.Cmd) {
	switch msg := msg.(type) {
	case usersLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err.Error()
			return m, nil
		}
		m.err = ""
		m.users = msg.users
		m.cursor = clampCursor(m.cursor, len(m.users))

	case tea.KeyMsg:
		switch msg.String() {
		case "j", "down":
			if m.cursor < len(m.users)-1 {
				m.cursor++
			}
		case "k", "up":
			if m.cursor > 0 {
				m.cursor--
			}
		case "r":
			m.loading = true
			return m, m.Init()
		}
	}
	return m, nil
}

func (m usersModel) View() string {
	var b strings.Builder
	b.WriteString(" " + sectionHeaderStyle.Render("Users") + "\n\n")
	switch {
	case m.err != "":
		b.WriteString(" " + errorStyle.Render(m.err) + "\n")
	case m.loading:
		b.WriteString(" " + dimStyle.Render("loading...") + "\n")
	default:
		b.WriteString(metaStyle.Render(fmt.Sprintf("   %s %s %s", padRight("ID", 5), padRight("USERNAME", 18), "EMAIL")) + "\n")
		for i, u := range m.users {
			line := padRight(fmt.Sprint(u.UserID), 5) + " " + padRight(u.Username, 18) + " " + u.Email
			badge := ""
			if u.IsAdmin {
				badge = " " + adminBadgeStyle.Render("admin")
			}
			if i == m.cursor {
				b.WriteString(selectedRowBg.Render(accentStyle.Render(" > ")+selectedStyle.Render(line)) + badge)
			} else {
				b.WriteString("   " + normalStyle.Render(line) + badge)
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}
