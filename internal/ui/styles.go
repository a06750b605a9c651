package ui

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

// Color scheme
var (
	ColorPrimary   = lipgloss.Color("#00D9FF")
	ColorSecondary = lipgloss.Color("#7C3AED")
	ColorWarning   = lipgloss.Color("#F59E0B")
	ColorDanger    = lipgloss.Color("#EF4444")

	ColorTextPrimary   = lipgloss.Color("#FFFFFF")
	ColorTextSecondary = lipgloss.Color("#9CA3AF")
	ColorTextMuted     = lipgloss.Color("#6B7280")

	ColorBgSecondary = lipgloss.Color("#374151")
	ColorBgHover     = lipgloss.Color("#4B5563")
)

// Common styles
var (
	StyleTitle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary)

	// Breadcrumb of the current selection path
	StyleHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorTextPrimary).
			Background(ColorBgSecondary).
			Padding(0, 1)

	StyleLevel = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorSecondary)

	// Search prompt
	StyleSearch = lipgloss.NewStyle().
			Foreground(ColorWarning).
			Bold(true)

	StyleKey = lipgloss.NewStyle().
			Foreground(ColorPrimary).
			Bold(true)

	StyleKeyDesc = lipgloss.NewStyle().
			Foreground(ColorTextSecondary)

	StyleWarning = lipgloss.NewStyle().
			Foreground(ColorWarning)

	StyleError = lipgloss.NewStyle().
			Foreground(ColorDanger).
			Bold(true)

	StyleTextSecondary = lipgloss.NewStyle().
				Foreground(ColorTextSecondary)

	StyleTextMuted = lipgloss.NewStyle().
			Foreground(ColorTextMuted)

	// Selected row of the list
	StyleSelected = lipgloss.NewStyle().
			Background(ColorBgHover).
			Foreground(ColorPrimary).
			Bold(true)
)

// RenderKeyBinding renders a key binding help text
func RenderKeyBinding(key, desc string) string {
	return fmt.Sprintf("%s %s", StyleKey.Render(key), StyleKeyDesc.Render(desc))
}

var ansiRegex = regexp.MustCompile(`\x1b\[[0-9;]*m`)

func stripANSI(s string) string {
	return ansiRegex.ReplaceAllString(s, "")
}

// visualLength returns the display width of s ignoring ANSI codes.
// Wide characters count as two cells.
func visualLength(s string) int {
	return runewidth.StringWidth(stripANSI(s))
}

// padRight pads s with spaces up to width display cells
func padRight(s string, width int) string {
	vlen := visualLength(s)
	if vlen >= width {
		return s
	}
	return s + strings.Repeat(" ", width-vlen)
}

// truncate cuts s to maxLen display cells, ending in "..." when cut
func truncate(s string, maxLen int) string {
	stripped := stripANSI(s)
	if runewidth.StringWidth(stripped) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return runewidth.Truncate(stripped, maxLen, "")
	}
	return runewidth.Truncate(stripped, maxLen-3, "") + "..."
}

// renderSeparator returns a horizontal rule fitting width
func renderSeparator(width int) string {
	const minWidth = 10
	lineWidth := width - 2
	if lineWidth < minWidth {
		lineWidth = minWidth
	}
	return strings.Repeat("─", lineWidth)
}
