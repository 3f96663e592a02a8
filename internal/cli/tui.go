package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/cratelens/cratelens/pkg/conflicts"
)

var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

// conflictListModel is the bubbletea model for browsing detected conflicts.
// The upper pane lists conflicted packages; the lower pane shows the
// requested ranges and suggested resolution for the selected one.
type conflictListModel struct {
	Conflicts []conflicts.Conflict
	Cursor    int
	Height    int
	Offset    int
}

func newConflictListModel(cs []conflicts.Conflict) conflictListModel {
	return conflictListModel{Conflicts: cs, Height: 12}
}

func (m conflictListModel) Init() tea.Cmd {
	return nil
}

func (m conflictListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
				if m.Cursor < m.Offset {
					m.Offset = m.Cursor
				}
			}
		case "down", "j":
			if m.Cursor < len(m.Conflicts)-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		}
	case tea.WindowSizeMsg:
		m.Height = msg.Height - 10
		if m.Height < 5 {
			m.Height = 5
		}
	}
	return m, nil
}

func (m conflictListModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Version Conflicts"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  q quit"))
	b.WriteString("\n\n")

	end := m.Offset + m.Height
	if end > len(m.Conflicts) {
		end = len(m.Conflicts)
	}

	rows := [][]string{}
	for i := m.Offset; i < end; i++ {
		c := m.Conflicts[i]

		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}

		resolved := "—"
		if c.Resolution != nil {
			resolved = c.Resolution.Version
		}
		rows = append(rows, []string{cursor, c.Package, fmt.Sprintf("%d ranges", len(c.RequestedVersions)), resolved})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "Package", "Requested", "Suggested").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			if m.Offset+row == m.Cursor {
				return listSelectedStyle
			}
			return lipgloss.NewStyle()
		})

	b.WriteString(t.Render())
	b.WriteString("\n\n")
	b.WriteString(m.detailView())
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.Cursor+1, len(m.Conflicts))))

	return b.String()
}

// detailView renders the requested ranges of the selected conflict.
func (m conflictListModel) detailView() string {
	if len(m.Conflicts) == 0 {
		return ""
	}
	c := m.Conflicts[m.Cursor]

	var b strings.Builder
	b.WriteString(StyleValue.Render(c.Package))
	b.WriteString("\n")
	for _, req := range c.RequestedVersions {
		b.WriteString(listDimStyle.Render(fmt.Sprintf("  %s requested by %s", req.Version, strings.Join(req.By, ", "))))
		b.WriteString("\n")
	}
	if c.Resolution != nil {
		style := StyleSuccess
		if c.Resolution.Reason == conflicts.ReasonUnsatisfiable {
			style = StyleDanger
		}
		b.WriteString(style.Render(fmt.Sprintf("  %s %s", iconArrow, c.Resolution.Version)))
		b.WriteString(" ")
		b.WriteString(listDimStyle.Render(c.Resolution.Reason))
		b.WriteString("\n")
	}
	return b.String()
}
