package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/naveenspark/carpolicy/pkg/client"
	"github.com/naveenspark/carpolicy/pkg/domain"
)

type view int

const (
	viewPolicies view = iota
	viewExtras
	viewProfile
	viewUsers
)

// sessionLoadedMsg carries the stored session read at startup.
type sessionLoadedMsg struct {
	session *domain.Session
	err     error
}

// failer is implemented by every message that carries an API result.
type failer interface {
	failure() error
}

// App is the root Bubbletea model.
type App struct {
	ctx        context.Context
	client     *client.Client
	version    string
	view       view
	session    *domain.Session
	policies   policiesModel
	extras     extrasModel
	profile    profileModel
	users      usersModel
	detail     detailModel
	detailOpen bool
	helpOpen   bool
	expired    bool
	width      int
	height     int
	frame      int // logo shimmer animation frame
}

// NewApp creates a new TUI application. Requests it issues run under ctx.
func NewApp(ctx context.Context, c *client.Client, version string) App {
	return App{
		ctx:      ctx,
		client:   c,
		version:  version,
		policies: newPoliciesModel(ctx, c),
		extras:   newExtrasModel(ctx, c),
		profile:  newProfileModel(ctx, c),
		users:    newUsersModel(ctx, c),
	}
}

// Run starts the dashboard and blocks until the user quits or ctx is cancelled.
func Run(ctx context.Context, c *client.Client, version string) error {
	p := tea.NewProgram(NewApp(ctx, c, version), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("tui error: %w", err)
	}
	return nil
}

func (a App) Init() tea.Cmd {
	return tea.Batch(shimmerTickCmd(), a.loadSession())
}

func (a App) loadSession() tea.Cmd {
	c := a.client
	return func() tea.Msg {
		s, err := c.Session()
		return sessionLoadedMsg{session: s, err: err}
	}
}

func (a App) admin() bool {
	return a.session != nil && a.session.User.IsAdmin
}

// sessionEnded reports whether err means the stored session is gone.
func sessionEnded(err error) bool {
	return errors.Is(err, client.ErrSessionExpired) || errors.Is(err, client.ErrNoSession)
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if f, ok := msg.(failer); ok && sessionEnded(f.failure()) {
		a.expired = true
		a.detailOpen = false
		return a, nil
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		// Chrome: header(2) + tabs(1) + status(1) + help(1) = 5 lines
		bodyMsg := tea.WindowSizeMsg{Width: msg.Width, Height: msg.Height - 5}
		a.policies, _ = a.policies.Update(bodyMsg)
		a.detail, _ = a.detail.Update(bodyMsg)
		return a, nil

	case shimmerTickMsg:
		a.frame++
		return a, shimmerTickCmd()

	case sessionLoadedMsg:
		if msg.err != nil || msg.session == nil {
			a.expired = true
			return a, nil
		}
		a.session = msg.session
		a.profile.session = msg.session
		a.policies.admin = msg.session.User.IsAdmin
		return a, tea.Batch(a.policies.Init(), a.profile.Init())

	case refreshedMsg:
		if msg.err == nil && msg.session != nil {
			a.session = msg.session
		}

	case showDetailMsg:
		a.detailOpen = true
		a.detail = newDetailModel(a.ctx, a.client, msg.policy)
		a.detail, _ = a.detail.Update(tea.WindowSizeMsg{Width: a.width, Height: a.height - 5})
		return a, a.detail.load()

	case tea.KeyMsg:
		if a.expired {
			switch msg.String() {
			case "enter", "esc", "q", "ctrl+c":
				return a, tea.Quit
			}
			return a, nil
		}

		if a.helpOpen {
			switch msg.String() {
			case "h", "?", "esc":
				a.helpOpen = false
			case "q", "ctrl+c":
				return a, tea.Quit
			}
			return a, nil
		}

		if a.detailOpen {
			if msg.String() == "ctrl+c" {
				return a, tea.Quit
			}
			return a.updateDetail(msg)
		}

		if !a.isEditing() {
			switch msg.String() {
			case "h", "?":
				a.helpOpen = true
				return a, nil
			case "q", "ctrl+c":
				return a, tea.Quit
			case "1":
				return a.switchTo(viewPolicies)
			case "2":
				return a.switchTo(viewExtras)
			case "3":
				return a.switchTo(viewProfile)
			case "4":
				if a.admin() {
					return a.switchTo(viewUsers)
				}
				return a, nil
			}
		} else if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}
	}

	var cmd tea.Cmd
	switch msg.(type) {
	case policiesLoadedMsg:
		a.policies, cmd = a.policies.Update(msg)
		return a, cmd
	case extrasLoadedMsg:
		a.extras, cmd = a.extras.Update(msg)
		return a, cmd
	case usersLoadedMsg:
		a.users, cmd = a.users.Update(msg)
		return a, cmd
	case verifiedMsg, refreshedMsg:
		a.profile, cmd = a.profile.Update(msg)
		return a, cmd
	}

	if a.detailOpen {
		return a.updateDetail(msg)
	}

	switch a.view {
	case viewPolicies:
		a.policies, cmd = a.policies.Update(msg)
	case viewExtras:
		a.extras, cmd = a.extras.Update(msg)
	case viewProfile:
		a.profile, cmd = a.profile.Update(msg)
	case viewUsers:
		a.users, cmd = a.users.Update(msg)
	}
	return a, cmd
}

func (a App) updateDetail(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	a.detail, cmd = a.detail.Update(msg)
	if a.detail.closed {
		a.detailOpen = false
		if a.detail.deleted {
			a.policies.loading = true
			return a, a.policies.Init()
		}
	}
	return a, cmd
}

func (a App) switchTo(v view) (tea.Model, tea.Cmd) {
	if a.view == v {
		return a, nil
	}
	a.view = v
	switch v {
	case viewExtras:
		if a.extras.loading {
			return a, a.extras.Init()
		}
	case viewUsers:
		if a.users.loading {
			return a, a.users.Init()
		}
	}
	return a, nil
}

func (a App) isEditing() bool {
	return a.view == viewPolicies && a.policies.filtering
}

func (a App) View() string {
	logo := renderShimmerLogo(a.frame)
	header := centre(logo, a.width) + "\n"
	if a.session != nil {
		who := dimStyle.Render(a.session.User.Username)
		if a.session.User.IsAdmin {
			who += " " + adminBadgeStyle.Render("admin")
		}
		header += centre(who, a.width)
	}

	type tabEntry struct {
		key  string
		name string
		v    view
	}
	tabs := []tabEntry{
		{"1", "Policies", viewPolicies},
		{"2", "Extras", viewExtras},
		{"3", "Profile", viewProfile},
	}
	if a.admin() {
		tabs = append(tabs, tabEntry{"4", "Users", viewUsers})
	}

	colWidth := a.width / len(tabs)
	var tabBar strings.Builder
	for _, t := range tabs {
		var label string
		if t.v == a.view {
			label = accentStyle.Render(t.key) + " " + selectedStyle.Underline(true).Render(t.name)
		} else {
			label = metaStyle.Render(t.key) + " " + dimStyle.Render(t.name)
		}
		labelWidth := lipgloss.Width(label)
		leftPad := max(0, (colWidth-labelWidth)/2)
		rightPad := max(0, colWidth-labelWidth-leftPad)
		tabBar.WriteString(strings.Repeat(" ", leftPad) + label + strings.Repeat(" ", rightPad))
	}

	var body, help string
	switch a.view {
	case viewPolicies:
		body = a.policies.View()
		if a.policies.filtering {
			help = helpBar("enter", "apply", "esc", "clear")
		} else {
			help = helpBar("1-4", "tabs", "j/k", "nav", "enter", "open", "/", "filter", "r", "reload", "h", "help", "q", "quit")
		}
	case viewExtras:
		body = a.extras.View()
		help = helpBar("1-4", "tabs", "j/k", "nav", "r", "reload", "h", "help", "q", "quit")
	case viewProfile:
		body = a.profile.View()
		help = helpBar("1-4", "tabs", "r", "refresh session", "v", "verify", "h", "help", "q", "quit")
	case viewUsers:
		body = a.users.View()
		help = helpBar("1-4", "tabs", "j/k", "nav", "r", "reload", "h", "help", "q", "quit")
	}

	if a.detailOpen {
		body = a.detail.View()
		if a.detail.confirming {
			help = helpBar("y", "confirm", "any", "cancel")
		} else {
			help = helpBar("c", "copy number", "x", "cancel policy", "esc", "close")
		}
	}
	if a.helpOpen {
		body = helpView(a.admin())
		help = helpBar("esc", "close")
	}
	if a.expired {
		body = expiredView(a.width)
		help = helpBar("enter", "quit")
	}

	status := " " + metaStyle.Render("carpolicy "+a.version)

	// Chrome budget: header(2) + tabs(1) + status(1) + help(1) = 5 lines + body
	body = strings.TrimRight(truncateToHeight(body, a.height-5), "\n")
	return fmt.Sprintf("%s\n%s\n%s\n%s\n%s", header, tabBar.String(), body, status, help)
}

// expiredView tells the user their session is over.
func expiredView(width int) string {
	card := cardStyle(max(36, min(56, width-4))).Render(
		errorStyle.Render("Session expired. Please log in again.") + "\n\n" +
			dimStyle.Render("run: ") + normalStyle.Render("carpolicy login"))
	return "\n" + card + "\n"
}

func centre(s string, width int) string {
	pad := max(0, (width-lipgloss.Width(s))/2)
	return strings.Repeat(" ", pad) + s
}
