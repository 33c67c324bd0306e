package tuiapp

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/aibundle/aibundle/internal/format"
	"github.com/aibundle/aibundle/internal/model"
	"github.com/aibundle/aibundle/internal/selection"
)

// Update implements tea.Model (spec §4.5's single-threaded cooperative
// loop): drains one event, mutates state, raises the dirty flags the
// mutation affects, and lets View() redraw only what's dirty.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.dirty.markAll()
		return m, nil

	case tickMsg:
		m.tick++
		m.pruneMessages()
		return m, m.scheduleTick()

	case listRefreshedMsg:
		if msg.err != nil {
			m.pushMessage(model.MessageError, fmt.Sprintf("listing failed: %v", msg.err))
			return m, nil
		}
		m.items = msg.items
		if m.cursor >= len(m.items) {
			m.cursor = max0(len(m.items) - 1)
		}
		m.dirty.list = true
		return m, nil

	case selectionEventMsg:
		return m.handleSelectionEvent(msg)

	case clipboardDoneMsg:
		if msg.err != nil {
			m.pushMessage(model.MessageError, msg.err.Error())
			if msg.quit {
				m.quitErr = msg.err
			}
			if !msg.quit {
				return m, nil
			}
		}
		if msg.quit {
			m.quitting = true
			return m, tea.Quit
		}
		m.pushMessage(model.MessageInfo, "copied to clipboard")
		return m, nil

	case tea.KeyMsg:
		m.touch()
		return m.handleKey(msg)
	}

	return m, nil
}

func max0(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

// handleKey dispatches a key press to the modal layer, search mode, or the
// main navigation/selection handlers, in that priority order (spec "Top
// modal captures input").
func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if _, ok := m.topModal(); ok {
		return m.handleModalKey(msg)
	}
	if m.searching {
		return m.handleSearchKey(msg)
	}

	switch msg.String() {
	case "ctrl+c":
		return m.quitImmediately()
	case "q":
		return m.quitClean()
	case "esc":
		return m.cancelPendingCount()
	case "up", "k":
		m.moveCursor(-1)
	case "down", "j":
		m.moveCursor(1)
	case "pgup":
		m.moveCursor(-10)
	case "pgdown":
		m.moveCursor(10)
	case "home":
		m.cursor = 0
		m.dirty.list = true
	case "end":
		m.cursor = max0(len(m.items) - 1)
		m.dirty.list = true
	case "enter":
		return m.openCursor()
	case "backspace":
		return m.goToParent()
	case " ":
		return m.toggleCursor()
	case "*", "a":
		return m.toggleAllVisible()
	case "tab":
		return m.toggleExpandOneLevel()
	case "shift+tab":
		return m.toggleExpandRecursive()
	case "c":
		return m.copySelection(false)
	case "f":
		m.format = m.format.Next()
		m.dirty.header, m.dirty.status = true, true
	case "n":
		if m.format != model.FormatJSON {
			m.lineNums = !m.lineNums
			m.dirty.status = true
		}
	case "/":
		m.searching = true
		m.searchQuery = m.committedQuery
		m.dirty.status = true
	case "d":
		m.ignore.UseDefaultIgnores = !m.ignore.UseDefaultIgnores
		return m.applyIgnoreChange()
	case "g":
		m.ignore.UseGitignore = !m.ignore.UseGitignore
		return m.applyIgnoreChange()
	case "b":
		m.ignore.IncludeBinaryFiles = !m.ignore.IncludeBinaryFiles
		return m.applyIgnoreChange()
	case "r":
		m.recursive = !m.recursive
		return m.applyIgnoreChange()
	case "t":
		m.ignore.GitTrackedOnly = !m.ignore.GitTrackedOnly
		return m.applyIgnoreChange()
	case "h", "?", "f1":
		m.pushModal(NewModal(ModalHelp, "Help", helpText, m.modalWidth(), m.modalHeight()))
	case "S":
		if err := m.saveConfig(); err != nil {
			m.pushMessage(model.MessageError, err.Error())
		} else {
			m.pushMessage(model.MessageInfo, "config saved")
		}
	}
	return m, nil
}

// cancelPendingCount implements spec §4.5 "Esc during counting cancels the
// current operation (bumps OperationID, signals the worker's cancellation
// token)". A no-op outside of an in-flight background count.
func (m *Model) cancelPendingCount() (tea.Model, tea.Cmd) {
	if _, ok := m.sel.PendingCount(); ok {
		m.sel.CancelPending()
		m.pushMessage(model.MessageInfo, "counting cancelled")
		m.dirty.status = true
	}
	return m, nil
}

func (m *Model) applyIgnoreChange() (tea.Model, tea.Cmd) {
	m.rebuildEngine()
	m.dirty.status = true
	return m, m.refreshListCmd()
}

func (m *Model) moveCursor(delta int) {
	m.cursor += delta
	if m.cursor < 0 {
		m.cursor = 0
	}
	if m.cursor > max0(len(m.items)-1) {
		m.cursor = max0(len(m.items) - 1)
	}
	m.dirty.list = true
}

func (m *Model) current() (model.DisplayItem, bool) {
	if m.cursor < 0 || m.cursor >= len(m.items) {
		return model.DisplayItem{}, false
	}
	return m.items[m.cursor], true
}

func (m *Model) openCursor() (tea.Model, tea.Cmd) {
	item, ok := m.current()
	if !ok {
		return m, nil
	}
	if item.IsParent {
		return m.goToParent()
	}
	if !item.IsDir {
		return m, nil
	}
	m.currentDir = item.RelPath
	m.cursor = 0
	m.dirty.list, m.dirty.header = true, true
	return m, m.refreshListCmd()
}

func (m *Model) goToParent() (tea.Model, tea.Cmd) {
	if m.currentDir == "." {
		return m, nil
	}
	m.currentDir = parentOf(m.currentDir)
	m.cursor = 0
	m.dirty.list, m.dirty.header = true, true
	return m, m.refreshListCmd()
}

func (m *Model) toggleCursor() (tea.Model, tea.Cmd) {
	item, ok := m.current()
	if !ok || item.IsParent {
		return m, nil
	}
	applied, err := m.sel.Toggle(context.Background(), item.RelPath, item.IsDir)
	if err != nil {
		m.pushMessage(model.MessageError, err.Error())
		if ase, ok := err.(*model.AIBundleError); ok && ase.Kind == model.ErrSelectionLimit {
			m.pushModal(NewModal(ModalLimitExceeded, "Selection limit", ase.Error(), m.modalWidth(), m.modalHeight()))
		}
		return m, nil
	}
	if !applied {
		m.pushMessage(model.MessageInfo, "counting "+item.RelPath+"...")
	}
	m.dirty.list, m.dirty.status = true, true
	return m, nil
}

func (m *Model) toggleAllVisible() (tea.Model, tea.Cmd) {
	visible := visiblePaths(m.items)
	selectAll := !allSelected(m.sel, visible)
	applied, err := m.sel.ToggleAll(visible, selectAll)
	if err != nil {
		m.pushMessage(model.MessageError, err.Error())
		if ase, ok := err.(*model.AIBundleError); ok && ase.Kind == model.ErrSelectionLimit {
			m.pushModal(NewModal(ModalLimitExceeded, "Selection limit", ase.Error(), m.modalWidth(), m.modalHeight()))
		}
		return m, nil
	}
	if applied {
		m.dirty.list, m.dirty.status = true, true
	}
	return m, nil
}

func (m *Model) toggleExpandOneLevel() (tea.Model, tea.Cmd) {
	item, ok := m.current()
	if !ok || item.IsParent || !item.IsDir {
		return m, nil
	}
	m.expanded[item.RelPath] = !m.expanded[item.RelPath]
	m.dirty.list = true
	return m, m.refreshListCmd()
}

func (m *Model) toggleExpandRecursive() (tea.Model, tea.Cmd) {
	item, ok := m.current()
	if !ok || item.IsParent || !item.IsDir {
		return m, nil
	}
	if err := m.expandRecursive(context.Background(), item.RelPath); err != nil {
		m.pushMessage(model.MessageError, err.Error())
		return m, nil
	}
	m.dirty.list = true
	return m, m.refreshListCmd()
}

// copySelection renders the current selection with the active formatter and
// delivers it to the clipboard. quit also breaks the event loop once the
// write completes (spec "q copy+quit"/"Ctrl+C immediate copy+quit" --
// "if a selection is non-empty, run the clipboard copy, then break the
// loop").
func (m *Model) copySelection(quit bool) (tea.Model, tea.Cmd) {
	if m.sel.Len() == 0 {
		if quit {
			m.quitting = true
			return m, tea.Quit
		}
		m.pushMessage(model.MessageInfo, "nothing selected")
		return m, nil
	}

	tree, err := format.BuildTree(m.sel.Paths(), m.root)
	if err != nil {
		m.pushMessage(model.MessageError, err.Error())
		return m, nil
	}
	out, stats, err := format.ForFormat(m.format).Format(tree, format.Options{
		Root:            m.root,
		ShowLineNumbers: m.lineNums,
		IncludeBinary:   m.ignore.IncludeBinaryFiles,
		Ignore:          m.ignore,
	})
	if err != nil {
		m.pushMessage(model.MessageError, err.Error())
		return m, nil
	}
	m.lastStats = stats
	m.dirty.status = true
	return m, writeClipboardCmd(m.clip, out, quit)
}

func (m *Model) quitClean() (tea.Model, tea.Cmd) {
	if _, ok := m.topModal(); ok {
		m.popModal()
		return m, nil
	}
	return m.copySelection(true)
}

func (m *Model) quitImmediately() (tea.Model, tea.Cmd) {
	if m.sel.Len() == 0 {
		m.quitting = true
		return m, tea.Quit
	}
	return m.copySelection(true)
}

// handleSelectionEvent applies a drained background count result and
// re-arms the listener so the loop keeps draining the channel (spec §4.3
// OperationID fencing, property 4).
func (m *Model) handleSelectionEvent(msg selectionEventMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	if msg.Kind == selection.EventCountReady {
		applied, err := m.sel.ApplyCountResult(msg.OpID, msg.Count)
		if err != nil {
			m.pushMessage(model.MessageError, err.Error())
			if ase, ok := err.(*model.AIBundleError); ok && ase.Kind == model.ErrSelectionLimit {
				m.pushModal(NewModal(ModalLimitExceeded, "Selection limit", ase.Error(), m.modalWidth(), m.modalHeight()))
			}
		} else if applied {
			m.dirty.list, m.dirty.status = true, true
			cmd = m.refreshListCmd()
		}
	}
	return m, tea.Batch(cmd, listenSelectionEvents(m.sel.Events()))
}
