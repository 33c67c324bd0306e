// Package tuiapp implements the interactive terminal front-end (spec §4.5,
// C5): a cooperative bubbletea event loop with adaptive polling, dirty-region
// rendering, a LIFO modal stack, and substring/glob search, driven by the
// same selection/ignoreengine/walk/format core the CLI runner uses.
//
// Grounded on quantmind-br-shotgun-cli's internal/ui.Model (the same
// bubbletea Update/View shape, coordinator-polls-a-channel pattern for
// background work) generalised from that repo's fixed wizard-step flow into
// this spec's single-screen file explorer plus modal stack.
package tuiapp

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/aibundle/aibundle/internal/clipboard"
	"github.com/aibundle/aibundle/internal/ignoreengine"
	"github.com/aibundle/aibundle/internal/model"
	"github.com/aibundle/aibundle/internal/pathutil"
	"github.com/aibundle/aibundle/internal/selection"
	"github.com/aibundle/aibundle/internal/tomlconfig"
	"github.com/aibundle/aibundle/internal/walk"
)

// activeFor is the window after the last activity timestamp during which
// the loop polls at the faster, "active" rate (spec §4.5 "16 ms when
// now - activity < 2 s").
const (
	activePoll = 16 * time.Millisecond
	idlePoll   = 500 * time.Millisecond
	activeFor  = 2 * time.Second

	messageLifetime = 3 * time.Second
)

var logger = slog.Default().With("component", "tuiapp")

// Model is the bubbletea root model (spec §3's AppState).
type Model struct {
	root       string // absolute traversal root, fixed for the session
	currentDir string // root-relative directory currently browsed ("." at root)

	width, height int

	walker     *walk.Walker
	cache      *walk.Cache
	engine     *ignoreengine.Engine
	gitTracked map[string]bool // non-nil iff ignore.GitTrackedOnly and git ls-files succeeded

	ignore    model.IgnoreConfig
	recursive bool
	lineNums  bool
	format    model.OutputFormat

	expanded map[string]bool // root-relative dir paths shown expanded in-place

	sel *selection.Set

	items  []model.DisplayItem // current flattened display list
	cursor int

	searching      bool
	searchQuery    string
	committedQuery string

	modals []Modal

	messages []model.AppMessage
	tick     int64

	dirty       dirtyFlags
	renderCache renderCache

	lastActivity time.Time

	lastStats model.CopyStats

	configPath string
	clip       clipboard.Writer

	quitting bool
	quitErr  error
}

// dirtyFlags tracks which rendered components need recomputing this frame
// (spec §4.5 "Dirty-region rendering"). Handlers raise flags when they mutate
// the corresponding state; the renderer clears them after a successful draw.
type dirtyFlags struct {
	header bool
	list   bool
	status bool
	modal  bool
}

func (d *dirtyFlags) markAll() {
	d.header, d.list, d.status, d.modal = true, true, true, true
}

// renderCache holds each component's last rendered string, reused by View()
// whenever the matching dirty flag is clear.
type renderCache struct {
	header string
	list   string
	status string
}

// New builds the TUI model rooted at root with opts as the merged starting
// configuration (already resolved CLI>env>config>defaults, same as the CLI
// runner receives).
func New(root string, opts model.Options, configPath string, clip clipboard.Writer) (*Model, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, model.NewError(model.ErrTraversalIO, "resolving root directory", err)
	}

	limit := opts.SelectionLimit
	if limit <= 0 {
		limit = model.DefaultSelectionLimit
	}

	walker := walk.New()
	engine := ignoreengine.New(abs, opts.Ignore)

	m := &Model{
		root:       abs,
		currentDir: ".",
		walker:     walker,
		cache:      walk.NewCache(),
		engine:     engine,
		ignore:     opts.Ignore,
		recursive:  opts.Recursive,
		lineNums:   opts.LineNumbers,
		format:     opts.Format,
		expanded:   make(map[string]bool),
		sel:        selection.New(abs, walker, engine, limit),
		configPath: configPath,
		clip:       clip,
	}
	m.rebuildGitTracked()
	m.dirty.markAll()
	return m, nil
}

// rebuildGitTracked refreshes m.gitTracked from `git ls-files` when the
// git-tracked-only ignore toggle is on, matching the CLI runner's one-shot
// computation per source root (SPEC_FULL.md §3 --git-tracked-only). Failures
// (not a git repo, git missing) degrade to "no restriction applied" with a
// warning message, per spec §4.1's error-degradation rule.
func (m *Model) rebuildGitTracked() {
	if !m.ignore.GitTrackedOnly {
		m.gitTracked = nil
		return
	}
	tracked, err := ignoreengine.GitTrackedAbsSet(m.root)
	if err != nil {
		logger.Warn("git-tracked-only requested but git ls-files failed; continuing without the restriction", "error", err)
		m.pushMessage(model.MessageWarning, "git-tracked-only: "+err.Error())
		m.gitTracked = nil
		return
	}
	m.gitTracked = tracked
}

// Init kicks off the first listing and the event-loop's polling/selection
// draining commands.
func (m *Model) Init() tea.Cmd {
	m.lastActivity = zeroIfUnset(m.lastActivity)
	return tea.Batch(
		m.refreshListCmd(),
		m.scheduleTick(),
		listenSelectionEvents(m.sel.Events()),
	)
}

func zeroIfUnset(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now()
	}
	return t
}

// scheduleTick re-arms the adaptive poll timer at the rate the time since
// lastActivity calls for (spec §4.5 "Adaptive polling").
func (m *Model) scheduleTick() tea.Cmd {
	interval := idlePoll
	if time.Since(m.lastActivity) < activeFor {
		interval = activePoll
	}
	return tea.Tick(interval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m *Model) touch() {
	m.lastActivity = time.Now()
}

// refreshListCmd recomputes the flattened display list for currentDir,
// honouring the recursive flag and per-directory expand state.
func (m *Model) refreshListCmd() tea.Cmd {
	return func() tea.Msg {
		items, err := m.flatten(context.Background())
		return listRefreshedMsg{items: items, err: err}
	}
}

func (m *Model) rebuildEngine() {
	m.engine = ignoreengine.New(m.root, m.ignore)
	m.cache.Clear()
	m.rebuildGitTracked()
}

func (m *Model) pushMessage(level model.AppMessageLevel, text string) {
	m.messages = append(m.messages, model.AppMessage{
		Level:         level,
		Text:          text,
		ExpiresAtTick: m.tick + int64(messageLifetime/activePoll),
	})
	m.dirty.status = true
}

func (m *Model) pruneMessages() {
	kept := m.messages[:0]
	for _, msg := range m.messages {
		if msg.ExpiresAtTick > m.tick {
			kept = append(kept, msg)
		}
	}
	if len(kept) != len(m.messages) {
		m.dirty.status = true
	}
	m.messages = kept
}

func (m *Model) pushModal(mod Modal) {
	m.modals = append(m.modals, mod)
	m.dirty.modal = true
}

func (m *Model) popModal() {
	if len(m.modals) == 0 {
		return
	}
	m.modals = m.modals[:len(m.modals)-1]
	m.dirty.modal = true
}

func (m *Model) topModal() (Modal, bool) {
	if len(m.modals) == 0 {
		return Modal{}, false
	}
	return m.modals[len(m.modals)-1], true
}

// ExitError returns the error that caused a clipboard-on-quit failure, if
// any, so main() can derive the right process exit code after the bubbletea
// program returns.
func (m *Model) ExitError() error {
	return m.quitErr
}

func (m *Model) saveConfig() error {
	file, err := tomlconfig.Load(m.configPath)
	if err != nil {
		return err
	}
	opts := model.Options{
		SourceDir:      m.currentDir,
		Format:         m.format,
		Recursive:      m.recursive,
		LineNumbers:    m.lineNums,
		Ignore:         m.ignore,
		SelectionLimit: m.sel.Len(),
	}
	file = tomlconfig.ApplyOptions(file, true, opts)
	return tomlconfig.Save(m.configPath, file)
}

// relPathOf joins currentDir with a walk entry's own relative path into a
// path relative to the overall traversal root, which is the coordinate space
// selection.Set and format.BuildTree operate in.
func relPathOf(currentDir, entryRel string) string {
	if currentDir == "." || currentDir == "" {
		return pathutil.Normalise(entryRel)
	}
	if entryRel == "." || entryRel == "" {
		return pathutil.Normalise(currentDir)
	}
	return pathutil.Normalise(currentDir + "/" + entryRel)
}

func parentOf(dir string) string {
	if dir == "." || dir == "" {
		return "."
	}
	p := filepath.Dir(filepath.FromSlash(dir))
	if p == "." || p == string(filepath.Separator) {
		return "."
	}
	return pathutil.Normalise(p)
}
