package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/naveenspark/carpolicy/pkg/client"
	"github.com/naveenspark/carpolicy/pkg/domain"
)

type detailLoadedMsg struct {
	policy *domain.PolicyWithExtras
	err    error
}

func (m detailLoadedMsg) failure() error { return m.err }

type detailCopiedMsg struct {
	err error
}

type policyDeletedMsg struct {
	id  int
	err error
}

func (m policyDeletedMsg) failure() error { return m.err }

// writeClipboard is swapped out in tests.
var writeClipboard = clipboard.WriteAll

// detailModel is the overlay showing one policy with its extras.
type detailModel struct {
	ctx        context.Context
	client     *client.Client
	policy     domain.PolicyWithExtras
	closed     bool
	deleted    bool
	confirming bool
	statusMsg  string
	err        string
	width      int
}

func newDetailModel(ctx context.Context, c *client.Client, p domain.PolicyWithExtras) detailModel {
	return detailModel{ctx: ctx, client: c, policy: p}
}

// load refetches the policy so the overlay shows the server's current view.
func (m detailModel) load() tea.Cmd {
	ctx, c, id := m.ctx, m.client, m.policy.Policy.PolicyID
	return func() tea.Msg {
		p, err := c.GetPolicy(ctx, id)
		if err != nil {
			return detailLoadedMsg{err: fmt.Errorf("client.GetPolicy: %w", err)}
		}
		return detailLoadedMsg{policy: p}
	}
}

func (m detailModel) Update(msg tea.Msg) (detailModel, tea.Cmd) {
	switch msg := msg.(type) {
	case detailLoadedMsg:
		if msg.err != nil {
			m.err = msg.err.Error()
		} else if msg.policy != nil {
			m.err = ""
			m.policy = *msg.policy
		}
		return m, nil

	case detailCopiedMsg:
		if msg.err != nil {
			m.statusMsg = fmt.Sprintf("copy failed: %v", msg.err)
		} else {
			m.statusMsg = "policy number copied"
		}
		return m, nil

	case policyDeletedMsg:
		if msg.err != nil {
			m.statusMsg = fmt.Sprintf("delete failed: %v", msg.err)
			return m, nil
		}
		m.deleted = true
		m.closed = true
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		if m.confirming {
			m.confirming = false
			if msg.String() != "y" {
				m.statusMsg = ""
				return m, nil
			}
			ctx, c, id := m.ctx, m.client, m.policy.Policy.PolicyID
			m.statusMsg = "deleting..."
			return m, func() tea.Msg {
				return policyDeletedMsg{id: id, err: c.DeletePolicy(ctx, id)}
			}
		}
		switch msg.String() {
		case "esc", "q":
			m.closed = true
		case "c":
			number := m.policy.Policy.PolicyNumber
			return m, func() tea.Msg {
				return detailCopiedMsg{err: writeClipboard(number)}
			}
		case "x":
			m.confirming = true
			m.statusMsg = fmt.Sprintf("cancel policy %s? press y to confirm", m.policy.Policy.PolicyNumber)
		}
	}
	return m, nil
}

func (m detailModel) View() string {
	p := m.policy.Policy
	cardWidth := min(56, m.width-4)
	if cardWidth < 36 {
		cardWidth = 36
	}

	var sb strings.Builder
	sb.WriteString(selectedStyle.Render(p.PolicyNumber) + "  " + CoverageStyle(p.Coverage).Render(p.Coverage) + "\n")
	sb.WriteString(normalStyle.Render(p.VRN) + "  " + dimStyle.Render(p.Make+" "+p.Model) + "\n\n")

	row := func(label, value string) {
		sb.WriteString(metaStyle.Render(padRight(label, 10)) + normalStyle.Render(value) + "\n")
	}
	row("holder", fmt.Sprintf("user %d", p.UserID))
	row("starts", domain.FormatDate(p.StartDate))
	row("ends", domain.FormatDate(p.EndDate))

	sb.WriteString("\n" + sectionHeaderStyle.Render("Optional extras") + "\n")
	if len(m.policy.OptionalExtras) == 0 {
		sb.WriteString(dimStyle.Render("none") + "\n")
	} else {
		for _, e := range m.policy.OptionalExtras {
			sb.WriteString(normalStyle.Render(padRight(e.Name, 24)) + " " +
				metaStyle.Render(padRight(e.Code, 6)) + " " + priceStyle.Render(price(e.Price)) + "\n")
		}
		sb.WriteString(metaStyle.Render(padRight("total", 32)) + priceStyle.Render(price(m.policy.ExtrasTotal())) + "\n")
	}

	out := "\n" + cardStyle(cardWidth).Render(strings.TrimRight(sb.String(), "\n")) + "\n"
	if m.err != "" {
		out += "\n " + errorStyle.Render(m.err) + "\n"
	}
	if m.statusMsg != "" {
		out += "\n " + accentStyle.Render(m.statusMsg) + "\n"
	}
	return out
}
