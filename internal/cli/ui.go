package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/panelmap/pkg/pipeline"
)

// statusOut receives status lines. Data goes to stdout, so status goes to
// stderr and never corrupts piped output.
var statusOut io.Writer = os.Stderr

// =============================================================================
// Palette and Styles
// =============================================================================

var (
	colorCyan   = lipgloss.Color("36")
	colorGreen  = lipgloss.Color("35")
	colorYellow = lipgloss.Color("220")
	colorRed    = lipgloss.Color("167")
	colorBlue   = lipgloss.Color("75")
	colorWhite  = lipgloss.Color("255")
	colorGray   = lipgloss.Color("245")
	colorDim    = lipgloss.Color("240")
)

var (
	// StyleTitle renders headings in interactive views.
	StyleTitle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)

	// StyleDim renders secondary text.
	StyleDim = lipgloss.NewStyle().Foreground(colorDim)

	// StyleValue renders values next to labels.
	StyleValue = lipgloss.NewStyle().Foreground(colorWhite)

	// StyleWarning renders warnings and tab errors.
	StyleWarning = lipgloss.NewStyle().Foreground(colorYellow)

	styleIconSpinner = lipgloss.NewStyle().Foreground(colorCyan)
	styleCommand     = lipgloss.NewStyle().Foreground(colorBlue)
	styleLabel       = lipgloss.NewStyle().Foreground(colorGray).Width(12)
	styleUnmatched   = lipgloss.NewStyle().Foreground(colorRed)
)

// statusKind is the leading icon of a status line.
type statusKind struct {
	icon  string
	style lipgloss.Style
	body  *lipgloss.Style
}

var (
	kindSuccess = statusKind{icon: "✓", style: lipgloss.NewStyle().Foreground(colorGreen)}
	kindError   = statusKind{icon: "✗", style: lipgloss.NewStyle().Foreground(colorRed)}
	kindWarning = statusKind{icon: "!", style: lipgloss.NewStyle().Foreground(colorYellow), body: &StyleWarning}
	kindInfo    = statusKind{icon: "›", style: lipgloss.NewStyle().Foreground(colorGray)}
)

func (k statusKind) print(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if k.body != nil {
		msg = k.body.Render(msg)
	}
	fmt.Fprintln(statusOut, k.style.Render(k.icon)+" "+msg)
}

// =============================================================================
// Status Lines
// =============================================================================

func printSuccess(format string, args ...any) { kindSuccess.print(format, args...) }
func printError(format string, args ...any)   { kindError.print(format, args...) }
func printWarning(format string, args ...any) { kindWarning.print(format, args...) }
func printInfo(format string, args ...any)    { kindInfo.print(format, args...) }

// printDetail prints an indented secondary line.
func printDetail(format string, args ...any) {
	fmt.Fprintln(statusOut, "  "+StyleDim.Render(fmt.Sprintf(format, args...)))
}

// printFile points at a file that was written.
func printFile(path string) {
	fmt.Fprintln(statusOut, "  "+StyleDim.Render("→")+" "+StyleValue.Render(path))
}

// printKeyValue prints a labeled value.
func printKeyValue(key, value string) {
	fmt.Fprintln(statusOut, styleLabel.Render(key)+" "+StyleValue.Render(value))
}

// printNextStep suggests a follow-up command.
func printNextStep(description, cmd string) {
	fmt.Fprintln(statusOut, StyleDim.Render(description+":")+" "+styleCommand.Render(cmd))
}

func printNewline() {
	fmt.Fprintln(statusOut)
}

// =============================================================================
// Dump Summary
// =============================================================================

// printStats summarises a dump on one line:
//
//	12 panes · 3 tabs · 2/2 windows matched · cached
func printStats(stats pipeline.Stats, tabErrors int, cached bool) {
	parts := []string{
		plural(stats.Panes, "pane"),
		plural(stats.Tabs, "tab"),
		fmt.Sprintf("%d/%d windows matched", stats.Matched, stats.Windows),
	}
	if tabErrors > 0 {
		parts = append(parts, StyleWarning.Render(plural(tabErrors, "tab error")))
	}
	if cached {
		parts = append(parts, lipgloss.NewStyle().Foreground(colorGreen).Render("cached"))
	} else {
		parts = append(parts, "fresh")
	}

	for i, part := range parts {
		parts[i] = StyleDim.Render(part)
	}
	fmt.Fprintln(statusOut, "  "+strings.Join(parts, StyleDim.Render(" · ")))
}

// printTabErrors lists tabs that could not be laid out.
func printTabErrors(errs []pipeline.TabError) {
	for _, e := range errs {
		printWarning("window %d tab %d: %s", e.Window, e.Tab, e.Message)
	}
}

func plural(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
