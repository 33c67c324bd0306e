package tuiapp

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/aibundle/aibundle/internal/clipboard"
	"github.com/aibundle/aibundle/internal/model"
	"github.com/aibundle/aibundle/internal/selection"
)

// tickMsg drives the adaptive poll loop (spec §4.5).
type tickMsg time.Time

// listRefreshedMsg carries a freshly flattened display list back from the
// worker goroutine flatten() ran on.
type listRefreshedMsg struct {
	items []model.DisplayItem
	err   error
}

// selectionEventMsg wraps a selection.Event drained from the Set's channel.
type selectionEventMsg selection.Event

// clipboardDoneMsg reports the outcome of a background clipboard write.
type clipboardDoneMsg struct {
	quit bool
	err  error
}

// listenSelectionEvents blocks on the selection set's event channel and
// turns the next event into a tea.Msg; Update re-issues this command after
// each delivery so the loop keeps draining (spec §4.5 "background work...
// returns results via a bounded channel; the loop polls the channel each
// tick").
func listenSelectionEvents(events <-chan selection.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return nil
		}
		return selectionEventMsg(ev)
	}
}

func writeClipboardCmd(clip clipboard.Writer, text string, quit bool) tea.Cmd {
	return func() tea.Msg {
		err := clip.Write(text)
		return clipboardDoneMsg{quit: quit, err: err}
	}
}
