package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/naveenspark/carpolicy/pkg/client"
	"github.com/naveenspark/carpolicy/pkg/domain"
)

type extrasLoadedMsg struct {
	extras []domain.OptionalExtra
	err    error
}

func (m extrasLoadedMsg) failure() error { return m.err }

type extrasModel struct {
	ctx     context.Context
	client  *client.Client
	extras  []domain.OptionalExtra
	cursor  int
	loading bool
	err     string
}

func newExtrasModel(ctx context.Context, c *client.Client) extrasModel {
	return extrasModel{ctx: ctx, client: c, loading: true}
}

func (m extrasModel) Init() tea.Cmd {
	ctx, c := m.ctx, m.client
	return func() tea.Msg {
		extras, err := c.ListExtras(ctx)
		return extrasLoadedMsg{extras: extras, err: err}
	}
}

func (m extrasModel) Update(msg tea.Msg) (extrasModel, tea.Cmd) {
	switch msg := msg.(type) {
	case extrasLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err.Error()
			return m, nil
		}
		m.err = ""
		m.extras = msg.extras
		m.cursor = clampCursor(m.cursor, len(m.extras))

	case tea.KeyMsg:
		switch msg.String() {
		case "j", "down":
			if m.cursor < len(m.extras)-1 {
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

func (m extrasModel) View() string {
	var b strings.Builder
	b.WriteString(" " + sectionHeaderStyle.Render("Optional extras") + "\n\n")
	switch {
	case m.err != "":
		b.WriteString(" " + errorStyle.Render(m.err) + "\n")
	case m.loading:
		b.WriteString(" " + dimStyle.Render("loading...") + "\n")
	case len(m.extras) == 0:
		b.WriteString(" " + dimStyle.Render("the catalogue is empty") + "\n")
	default:
		b.WriteString(metaStyle.Render(fmt.Sprintf("   %s %s %s", padRight("CODE", 8), padRight("NAME", 28), "PRICE")) + "\n")
		for i, e := range m.extras {
			line := padRight(e.Code, 8) + " " + padRight(e.Name, 28) + " "
			if i == m.cursor {
				b.WriteString(selectedRowBg.Render(accentStyle.Render(" > ") + selectedStyle.Render(line) + priceStyle.Render(price(e.Price))))
			} else {
				b.WriteString("   " + normalStyle.Render(line) + priceStyle.Render(price(e.Price)))
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}
