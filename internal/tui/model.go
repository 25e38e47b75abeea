// Package tui is the terminal player: a library list, transport keys and a
// progress bar driven by the playback engine's events.
package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/resonance-audio/resonance/internal/keymap"
	"github.com/resonance-audio/resonance/internal/libview"
	"github.com/resonance-audio/resonance/internal/playback"
)

// Player is the part of the engine the interface drives.
type Player interface {
	Select(ctx context.Context, title string) error
	PlayTitle(ctx context.Context, title string) error
	Toggle() error
	Seek(target float64) error
	SeekBy(delta float64) error
	Snapshot() playback.Snapshot
}

// Volume controls the output level. Optional.
type Volume interface {
	SetVolume(level float64)
	Volume() float64
	SetMuted(muted bool)
	Muted() bool
}

// Options configures the model.
type Options struct {
	Context      context.Context
	Player       Player
	Subscription *playback.Subscription
	Library      *libview.View
	Volume       Volume
	// Refresh re-requests the song list. Optional.
	Refresh  func(context.Context) error
	Server   string
	SeekStep float64 // seconds, default 5
	Logger   *zap.Logger
}

const (
	longSeekFactor = 6
	volumeStep     = 0.05
	headerLines    = 2
	footerLines    = 5 // border, track line, progress, border, status
)

// Model is the bubbletea model of the player.
type Model struct {
	ctx      context.Context
	player   Player
	sub      *playback.Subscription
	library  *libview.View
	volume   Volume
	refresh  func(context.Context) error
	keys     *keymap.Resolver
	server   string
	seekStep float64
	log      *zap.Logger

	titles   []string
	visible  []string // titles matching the filter
	cursor   int
	offset   int
	filter   textinput.Model
	filterOn bool

	snap     playback.Snapshot
	loading  string
	errLine  string
	showHelp bool

	width  int
	height int
}

// New creates the model. Player, Subscription and Library are required.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	step := opts.SeekStep
	if step <= 0 {
		step = 5
	}
	ti := textinput.New()
	ti.Prompt = "/ "
	ti.Placeholder = "filter"
	ti.CharLimit = 120

	m := Model{
		ctx:      ctx,
		player:   opts.Player,
		sub:      opts.Subscription,
		library:  opts.Library,
		volume:   opts.Volume,
		refresh:  opts.Refresh,
		keys:     keymap.Default(),
		server:   opts.Server,
		seekStep: step,
		log:      log,
		filter:   ti,
		width:    80,
		height:   24,
	}
	m.setTitles(opts.Library.Titles())
	m.snap = opts.Player.Snapshot()
	return m
}

// Init starts watching the engine and the library.
func (m Model) Init() tea.Cmd {
	return tea.Batch(watchEngine(m.sub), watchLibrary(m.library.Updates()))
}

func (m *Model) setTitles(titles []string) {
	selected := m.selected()
	m.titles = titles
	m.applyFilter()
	if selected != "" {
		for i, t := range m.visible {
			if t == selected {
				m.cursor = i
				break
			}
		}
	}
	m.clampCursor()
}

func (m *Model) applyFilter() {
	q := strings.ToLower(strings.TrimSpace(m.filter.Value()))
	if q == "" {
		m.visible = m.titles
		return
	}
	m.visible = nil
	for _, t := range m.titles {
		if strings.Contains(strings.ToLower(t), q) {
			m.visible = append(m.visible, t)
		}
	}
}

func (m *Model) clampCursor() {
	m.cursor = max(min(m.cursor, len(m.visible)-1), 0)
	rows := m.listHeight()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+rows {
		m.offset = m.cursor - rows + 1
	}
	m.offset = max(min(m.offset, len(m.visible)-rows), 0)
}

func (m Model) selected() string {
	if m.cursor < 0 || m.cursor >= len(m.visible) {
		return ""
	}
	return m.visible[m.cursor]
}

func (m Model) listHeight() int {
	h := m.height - headerLines - footerLines
	if m.filterOn {
		h--
	}
	return max(h, 1)
}
