package cli

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/panelmap/pkg/geom"
	"github.com/matzehuels/panelmap/pkg/pipeline"
)

const nullCell = "—"

var tableHeaders = []string{"Title", "Pane", "Name", "Rank", "Window ID", "Layout Frame", "Canvas"}

// panelRow formats one record as table cells.
func panelRow(p pipeline.Record) []string {
	rank := nullCell
	if p.SpatialRank != nil {
		rank = strconv.Itoa(*p.SpatialRank)
	}
	wid := nullCell
	if p.MatchedWindowID != nil {
		wid = strconv.FormatInt(*p.MatchedWindowID, 10)
	}
	canvas := nullCell
	if p.LayoutCanvasSize != nil {
		canvas = fmt.Sprintf("%g×%g", p.LayoutCanvasSize.W, p.LayoutCanvasSize.H)
	}
	name := p.Name
	if name == "" {
		name = nullCell
	}
	return []string{p.Title, p.PaneID, name, rank, wid, formatRect(p.LayoutFrame), canvas}
}

func formatRect(r *geom.Rect) string {
	if r == nil {
		return nullCell
	}
	return fmt.Sprintf("%g,%g %g×%g", r.X, r.Y, r.W, r.H)
}

// panelTable renders records as a bordered table. Rows of panes without a
// layout frame are dimmed; unmatched window ids are shown in red.
func panelTable(records []pipeline.Record) string {
	rows := make([][]string, len(records))
	for i, p := range records {
		rows[i] = panelRow(p)
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	cell := lipgloss.NewStyle().Padding(0, 1)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers(tableHeaders...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle.Padding(0, 1)
			}
			if row < 0 || row >= len(records) {
				return cell
			}
			p := records[row]
			switch {
			case p.LayoutFrame == nil:
				return cell.Foreground(colorDim)
			case col == 0:
				return cell.Foreground(colorCyan)
			case col == 4 && p.MatchedWindowID == nil:
				return cell.Inherit(styleUnmatched)
			}
			return cell
		})
	return t.Render()
}
