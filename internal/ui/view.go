package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/yourusername/kuco/internal/model"
)

const (
	headerRows      = 3 // title, breadcrumb, separator
	footerRows      = 3 // separator, status, key help
	defaultListRows = 20
)

// View renders the UI
func (m *Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderList())
	b.WriteString(m.renderFooter())
	return b.String()
}

// listRows is the number of list rows that fit between header and footer
func (m *Model) listRows() int {
	if m.height <= 0 {
		return defaultListRows
	}
	rows := m.height - headerRows - footerRows
	if rows < 1 {
		rows = 1
	}
	return rows
}

func (m *Model) levelName(level model.Level) string {
	switch level {
	case model.LevelPod:
		return m.T("level.pod")
	case model.LevelContainer:
		return m.T("level.container")
	case model.LevelLogs:
		return m.T("level.logs")
	default:
		return m.T("level.namespace")
	}
}

func (m *Model) renderHeader() string {
	title := StyleTitle.Render(m.T("app.title"))
	if m.opts.Version != "" {
		title += " " + StyleTextMuted.Render(m.opts.Version)
	}

	var refreshed string
	if m.synced {
		refreshed = StyleTextSecondary.Render(m.T("header.last_refreshed") + ": " + m.lastRefreshed.Format("15:04:05"))
	} else {
		refreshed = StyleWarning.Render(m.T("header.syncing"))
	}
	var top string
	if m.width > 0 {
		gap := m.width - visualLength(title) - visualLength(refreshed)
		if gap < 1 {
			gap = 1
		}
		top = title + strings.Repeat(" ", gap) + refreshed
	} else {
		top = title + "  " + refreshed
	}

	// Breadcrumb of the selections made so far
	crumbs := []string{}
	for i, part := range []string{m.state.Namespace, m.state.Pod, m.state.Container} {
		if i >= int(m.state.Level) || part == "" {
			break
		}
		crumbs = append(crumbs, part)
	}
	crumb := StyleLevel.Render(m.levelName(m.state.Level))
	if len(crumbs) > 0 {
		crumb = StyleHeader.Render(strings.Join(crumbs, " / ")) + " " + crumb
	}
	crumb += "  " + StyleTextMuted.Render("["+m.state.Mode.String()+"]")
	if m.state.Mode == model.ModeSearch {
		crumb += " " + StyleSearch.Render(m.T("header.search")+": /"+m.state.SearchBuffer()+"_")
	}

	return lipgloss.JoinVertical(lipgloss.Left, top, crumb, StyleTextMuted.Render(renderSeparator(m.width)))
}

func (m *Model) renderList() string {
	rows := m.listRows()
	items := m.snapshot.Items

	var b strings.Builder
	written := 0

	switch {
	case m.err != nil:
		b.WriteString(StyleError.Render(m.T("list.error") + ": " + m.err.Error()))
		b.WriteString("\n")
		written++
	case len(items) == 0 && m.snapshot.Searching() && m.state.SearchBuffer() != "":
		b.WriteString(StyleTextMuted.Render(m.T("list.no_match")))
		b.WriteString("\n")
		written++
	case len(items) == 0:
		b.WriteString(StyleTextMuted.Render(m.T("list.empty")))
		b.WriteString("\n")
		written++
	}

	width := m.width
	if width <= 0 {
		width = 80
	}
	cursor := m.state.Cursor()
	end := m.scrollOffset + rows - written
	if end > len(items) {
		end = len(items)
	}
	for i := m.scrollOffset; i < end; i++ {
		line := truncate(items[i], width-2)
		if i == cursor {
			b.WriteString(StyleSelected.Render(padRight("> "+line, width)))
		} else {
			b.WriteString("  " + line)
		}
		b.WriteString("\n")
		written++
	}

	for ; written < rows; written++ {
		b.WriteString("\n")
	}
	return b.String()
}

func (m *Model) renderFooter() string {
	var b strings.Builder
	b.WriteString(StyleTextMuted.Render(renderSeparator(m.width)))
	b.WriteString("\n")

	if m.status != "" {
		if m.statusIsError {
			b.WriteString(StyleError.Render(m.status))
		} else {
			b.WriteString(StyleTextSecondary.Render(m.status))
		}
	}
	b.WriteString("\n")

	var help []string
	if m.state.Mode == model.ModeSearch {
		help = []string{
			RenderKeyBinding("↑↓", m.T("keys.scroll")),
			RenderKeyBinding("enter", m.T("keys.select")),
			RenderKeyBinding("⌫", m.T("keys.delete")),
			RenderKeyBinding("esc", m.T("keys.cancel")),
		}
	} else {
		help = []string{
			RenderKeyBinding(m.keys.Up.Help().Key+" "+m.keys.Down.Help().Key, m.T("keys.scroll")),
			RenderKeyBinding(m.keys.Right.Help().Key, m.T("keys.select")),
			RenderKeyBinding(m.keys.Left.Help().Key, m.T("keys.back")),
			RenderKeyBinding(m.keys.Search.Help().Key, m.T("keys.search")),
			RenderKeyBinding(m.keys.Copy.Help().Key, m.T("keys.copy")),
			RenderKeyBinding(m.keys.Refresh.Help().Key, m.T("keys.refresh")),
			RenderKeyBinding(m.keys.Quit.Help().Key, m.T("keys.quit")),
		}
	}
	b.WriteString(strings.Join(help, "  "))
	return b.String()
}
