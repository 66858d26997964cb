package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/naveenspark/carpolicy/pkg/client"
	"github.com/naveenspark/carpolicy/pkg/domain"
)

type policiesLoadedMsg struct {
	policies []domain.PolicyWithExtras
	err      error
}

func (m policiesLoadedMsg) failure() error { return m.err }

// showDetailMsg opens the detail overlay for one policy.
type showDetailMsg struct {
	policy domain.PolicyWithExtras
}

type policiesModel struct {
	ctx       context.Context
	client    *client.Client
	admin     bool
	policies  []domain.PolicyWithExtras
	cursor    int
	query     string
	filtering bool
	loading   bool
	err       string
	width     int
	height    int
}

func newPoliciesModel(ctx context.Context, c *client.Client) policiesModel {
	return policiesModel{ctx: ctx, client: c, loading: true}
}

// Init loads every policy for administrators and the caller's own otherwise.
func (m policiesModel) Init() tea.Cmd {
	ctx, c, admin := m.ctx, m.client, m.admin
	return func() tea.Msg {
		var (
			policies []domain.PolicyWithExtras
			err      error
		)
		if admin {
			policies, err = c.ListPolicies(ctx)
		} else {
			policies, err = c.MyPolicies(ctx)
		}
		return policiesLoadedMsg{policies: policies, err: err}
	}
}

// visible returns the policies matching the current filter.
func (m policiesModel) visible() []domain.PolicyWithExtras {
	if m.query == "" {
		return m.policies
	}
	out := make([]domain.PolicyWithExtras, 0, len(m.policies))
	for _, p := range m.policies {
		if matchesPolicy(p, m.query) {
			out = append(out, p)
		}
	}
	return out
}

func (m policiesModel) Update(msg tea.Msg) (policiesModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case policiesLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err.Error()
			return m, nil
		}
		m.err = ""
		m.policies = msg.policies
		m.cursor = clampCursor(m.cursor, len(m.visible()))
		return m, nil

	case tea.KeyMsg:
		if m.filtering {
			return m.updateFilter(msg), nil
		}
		return m.updateNav(msg)
	}
	return m, nil
}

func (m policiesModel) updateFilter(msg tea.KeyMsg) policiesModel {
	switch msg.String() {
	case "esc":
		m.filtering = false
		m.query = ""
	case "enter":
		m.filtering = false
	default:
		m.query = editRune(m.query, msg.String())
	}
	m.cursor = clampCursor(m.cursor, len(m.visible()))
	return m
}

func (m policiesModel) updateNav(msg tea.KeyMsg) (policiesModel, tea.Cmd) {
	rows := m.visible()
	switch msg.String() {
	case "j", "down":
		if m.cursor < len(rows)-1 {
			m.cursor++
		}
	case "k", "up":
		if m.cursor > 0 {
			m.cursor--
		}
	case "/":
		m.filtering = true
	case "r":
		m.loading = true
		return m, m.Init()
	case "enter":
		if m.cursor < len(rows) {
			p := rows[m.cursor]
			return m, func() tea.Msg { return showDetailMsg{policy: p} }
		}
	}
	return m, nil
}

func (m policiesModel) View() string {
	var b strings.Builder
	title := "My policies"
	if m.admin {
		title = "All policies"
	}
	b.WriteString(" " + sectionHeaderStyle.Render(title) + "\n")
	b.WriteString(renderFilterInput(m.query, "filter by number, registration or vehicle", m.filtering) + "\n\n")

	if m.err != "" {
		b.WriteString(" " + errorStyle.Render(m.err) + "\n")
		return b.String()
	}
	if m.loading {
		b.WriteString(" " + dimStyle.Render("loading...") + "\n")
		return b.String()
	}
	rows := m.visible()
	if len(rows) == 0 {
		if m.query != "" {
			b.WriteString(" " + dimStyle.Render(fmt.Sprintf("no policies match %q", m.query)) + "\n")
		} else {
			b.WriteString(" " + dimStyle.Render("no policies yet -- create one with: carpolicy policies create") + "\n")
		}
		return b.String()
	}

	header := fmt.Sprintf("   %s %s %s %s %s", padRight("NUMBER", 9), padRight("REG", 9),
		padRight("VEHICLE", 22), padRight("COVERAGE", 16), "ENDS")
	b.WriteString(metaStyle.Render(header) + "\n")
	for i, p := range rows {
		coverage := padRight(p.Policy.Coverage, 16)
		line := fmt.Sprintf("%s %s %s %s %s",
			padRight(p.Policy.PolicyNumber, 9),
			padRight(p.Policy.VRN, 9),
			padRight(p.Policy.Make+" "+p.Policy.Model, 22),
			CoverageStyle(p.Policy.Coverage).Render(coverage),
			domain.FormatDate(p.Policy.EndDate))
		if i == m.cursor {
			b.WriteString(selectedRowBg.Render(accentStyle.Render(" > ") + selectedStyle.Render(line)))
		} else {
			b.WriteString("   " + normalStyle.Render(line))
		}
		b.WriteString("\n")
	}
	if m.admin {
		b.WriteString("\n " + metaStyle.Render(fmt.Sprintf("%d of %d policies", len(rows), len(m.policies))) + "\n")
	}
	return b.String()
}
