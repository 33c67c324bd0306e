package tuiapp

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/aibundle/aibundle/internal/model"
)

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#25A065")).
			Padding(0, 1)

	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575")).Bold(true)
	dirStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#7DCFFF")).Bold(true)
	cursorStyle   = lipgloss.NewStyle().Background(lipgloss.Color("#3A3A3A"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#626262"))

	errorMsgStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F5F")).Bold(true)
	infoMsgStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#A49FA5"))

	modalBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("#25A065")).
				Padding(0, 1)
)

// View implements tea.Model. Dirty-region rendering is modelled by caching
// each component's last render and only recomputing the ones a handler
// marked dirty this frame (spec §4.5): cheap here since bubbletea still
// composites a full frame string, but it keeps the render cost of an
// untouched header/status bar at zero string-building work per tick.
func (m *Model) View() string {
	if m.quitting {
		return ""
	}

	header := m.cachedHeader()
	list := m.cachedList()
	status := m.cachedStatus()

	body := lipgloss.JoinVertical(lipgloss.Left, header, list, status)

	if top, ok := m.topModal(); ok {
		return m.overlayModal(body, top)
	}
	return body
}

func (m *Model) cachedHeader() string {
	if !m.dirty.header && m.renderCache.header != "" {
		return m.renderCache.header
	}
	title := fmt.Sprintf(" AIBundle — %s ", displayDir(m.currentDir))
	flags := fmt.Sprintf("fmt=%s  recursive=%v  gitignore=%v  binary=%v  git-tracked=%v",
		m.format, m.recursive, m.ignore.UseGitignore, m.ignore.IncludeBinaryFiles, m.ignore.GitTrackedOnly)
	m.renderCache.header = headerStyle.Render(title) + "  " + dimStyle.Render(flags)
	m.dirty.header = false
	return m.renderCache.header
}

func displayDir(dir string) string {
	if dir == "." || dir == "" {
		return "/"
	}
	return dir
}

func (m *Model) cachedList() string {
	if !m.dirty.list && m.renderCache.list != "" {
		return m.renderCache.list
	}

	var b strings.Builder
	for i, item := range m.items {
		line := renderItem(item, m.sel.IsSelected(item.RelPath))
		if i == m.cursor {
			line = cursorStyle.Render(line)
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	m.renderCache.list = b.String()
	m.dirty.list = false
	return m.renderCache.list
}

func renderItem(item model.DisplayItem, selected bool) string {
	indent := strings.Repeat("  ", item.Depth)
	mark := "[ ]"
	if selected {
		mark = "[x]"
	}
	name := item.Name
	switch {
	case item.IsParent:
		return indent + "    .."
	case item.IsDir:
		glyph := "+"
		if item.IsExpanded {
			glyph = "-"
		}
		return fmt.Sprintf("%s%s %s %s%s/", indent, mark, glyph, dirStyle.Render(name), "")
	case selected:
		return fmt.Sprintf("%s%s %s", indent, mark, selectedStyle.Render(name))
	default:
		return fmt.Sprintf("%s%s %s", indent, mark, name)
	}
}

func (m *Model) cachedStatus() string {
	if !m.dirty.status && m.renderCache.status != "" {
		return m.renderCache.status
	}

	var line string
	if m.searching {
		line = "/" + m.searchQuery
	} else if m.committedQuery != "" {
		line = fmt.Sprintf("filter: %s  (press / to change)", m.committedQuery)
	} else {
		line = fmt.Sprintf("%d selected  |  last copy: %d files, %d bytes",
			m.sel.Len(), m.lastStats.Files, m.lastStats.Bytes)
	}

	for _, msg := range m.messages {
		style := infoMsgStyle
		if msg.Level == model.MessageError {
			style = errorMsgStyle
		}
		line += "  " + style.Render(msg.Text)
	}

	m.renderCache.status = line
	m.dirty.status = false
	return m.renderCache.status
}

func (m *Model) overlayModal(body string, mod Modal) string {
	box := modalBorderStyle.Render(headerStyle.Render(" "+mod.Title+" ") + "\n" + mod.Viewport.View())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box,
		lipgloss.WithWhitespaceChars(" "), lipgloss.WithWhitespaceForeground(lipgloss.Color("#1a1a1a")))
}

func (m *Model) modalWidth() int {
	w := m.width - 10
	if w < 30 {
		w = 30
	}
	return w
}

func (m *Model) modalHeight() int {
	h := m.height - 8
	if h < 8 {
		h = 8
	}
	return h
}
