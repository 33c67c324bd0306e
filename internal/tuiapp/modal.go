package tuiapp

import (
	"github.com/charmbracelet/bubbles/viewport"
)

// ModalKind distinguishes the handful of modal dialogs the event loop can
// stack (spec §4.5 "Modal stack: LIFO. Top modal captures input").
type ModalKind int

const (
	ModalHelp ModalKind = iota
	ModalLimitExceeded
	ModalInfo
)

// Modal is one entry of the LIFO modal stack. Paged content is rendered
// through a bubbles/viewport so PgUp/PgDn scrolling (spec requirement) comes
// for free instead of hand-rolling a scroll offset.
type Modal struct {
	Kind     ModalKind
	Title    string
	Viewport viewport.Model
}

// NewModal builds a modal sized to fit within width/height, with body as its
// scrollable content.
func NewModal(kind ModalKind, title, body string, width, height int) Modal {
	vp := viewport.New(width, height)
	vp.SetContent(body)
	return Modal{Kind: kind, Title: title, Viewport: vp}
}

const helpText = `AIBundle -- keyboard shortcuts

Navigation:  up/down j/k move   PgUp/PgDn +-10   Home/End ends
             Enter open dir     Backspace parent
Selection:   Space toggle       * or a toggle all visible
Folder:      Tab expand one level   Shift+Tab expand recursive
Actions:     c copy   q copy+quit   Ctrl+C immediate copy+quit
Format:      f cycle XML->MD->JSON->LLM   n toggle line numbers
Search:      / enter/exit   Esc cancel   Enter commit
Ignores:     d default   g gitignore   b binary   r recursive   t git-tracked-only
Config/help: h ? F1 this help   S save config

Esc or q closes this modal. PgUp/PgDn scroll.
`
