package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/panelmap/pkg/pipeline"
)

var listDetailStyle = lipgloss.NewStyle().Foreground(colorGray).PaddingLeft(2)

// =============================================================================
// PanelListModel - Interactive panel selection
// =============================================================================

// PanelListModel is the bubbletea model for browsing a dump's panel list.
type PanelListModel struct {
	Panels   []pipeline.Record
	Cursor   int
	Selected *pipeline.Record
	Height   int
	Offset   int
}

// NewPanelListModel creates a new panel list model.
func NewPanelListModel(panels []pipeline.Record) PanelListModel {
	return PanelListModel{
		Panels: panels,
		Height: 15,
	}
}

func (m PanelListModel) Init() tea.Cmd {
	return nil
}

func (m PanelListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
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
			if m.Cursor < len(m.Panels)-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		case "home", "g":
			m.Cursor, m.Offset = 0, 0
		case "end", "G":
			if n := len(m.Panels); n > 0 {
				m.Cursor = n - 1
				m.Offset = max(0, n-m.Height)
			}
		case "enter":
			if len(m.Panels) == 0 {
				return m, nil
			}
			p := m.Panels[m.Cursor]
			m.Selected = &p
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		// title, help, borders, detail line and counter
		m.Height = max(5, msg.Height-9)
		if m.Cursor >= m.Offset+m.Height {
			m.Offset = m.Cursor - m.Height + 1
		}
	}
	return m, nil
}

func (m PanelListModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Panels"))
	b.WriteString("\n")
	b.WriteString(StyleDim.Render("↑/↓ navigate  ⏎ select  q quit"))
	b.WriteString("\n\n")

	if len(m.Panels) == 0 {
		b.WriteString(StyleDim.Render("  no panes in snapshot"))
		b.WriteString("\n")
		return b.String()
	}

	end := min(m.Offset+m.Height, len(m.Panels))
	rows := make([][]string, 0, end-m.Offset)
	for i := m.Offset; i < end; i++ {
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		rows = append(rows, append([]string{cursor}, panelRow(m.Panels[i])...))
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers(append([]string{""}, tableHeaders...)...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			idx := m.Offset + row
			if row < 0 || idx >= len(m.Panels) {
				return lipgloss.NewStyle()
			}
			p := m.Panels[idx]
			base := lipgloss.NewStyle()
			if idx == m.Cursor {
				base = base.Bold(true)
			}
			switch {
			case p.LayoutFrame == nil:
				return base.Foreground(colorDim)
			case col == 1 && idx == m.Cursor:
				return base.Foreground(colorGreen)
			case col == 1:
				return base.Foreground(colorCyan)
			case col == 5 && p.MatchedWindowID == nil:
				return base.Inherit(styleUnmatched)
			}
			return base
		})

	b.WriteString(t.Render())
	b.WriteString("\n")
	b.WriteString(listDetailStyle.Render(panelDetail(m.Panels[m.Cursor])))
	b.WriteString("\n\n")
	b.WriteString(StyleDim.Render(fmt.Sprintf("  [%d/%d]", m.Cursor+1, len(m.Panels))))

	return b.String()
}

// panelDetail summarises the pane under the cursor.
func panelDetail(p pipeline.Record) string {
	parts := []string{p.Title, "pane " + p.PaneID}
	if p.PaneFrame != nil {
		parts = append(parts, "reported "+formatRect(p.PaneFrame))
	}
	if p.WindowFrame != nil {
		parts = append(parts, "window "+formatRect(p.WindowFrame))
	}
	return strings.Join(parts, "  ·  ")
}
