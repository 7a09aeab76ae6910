// Package tui is the terminal front end for the timeline editor: track
// lanes with clip blocks, a catalog tree, and keyboard-driven editing on
// top of a timeline.Store.
package tui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/hallgrim/tracksmith/internal/events"
	"github.com/hallgrim/tracksmith/internal/models"
	"github.com/hallgrim/tracksmith/internal/timeline"
)

const (
	defaultRefreshInterval = 1 * time.Second
	defaultStatusTTL       = 5 * time.Second

	minWindowWidth  = 80
	minWindowHeight = 20

	nameColumnWidth = 24
	zoomStep        = 1.25
)

// Config controls editor TUI behavior.
type Config struct {
	RefreshInterval time.Duration
	Theme           string

	// Publisher, when set, pushes engine events into the editor so external
	// mutations (simulator progress, daemon API calls) refresh immediately
	// instead of waiting for the next tick.
	Publisher events.Publisher
}

// Run starts the editor TUI over the given store and blocks until quit.
func Run(store *timeline.Store, cfg Config) error {
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = defaultRefreshInterval
	}

	program := tea.NewProgram(newModel(store, cfg), tea.WithAltScreen())

	if cfg.Publisher != nil {
		subID := "tui-" + uuid.New().String()[:8]
		err := cfg.Publisher.Subscribe(subID, events.Filter{}, func(*models.Event) {
			program.Send(storeChangedMsg{})
		})
		if err == nil {
			defer cfg.Publisher.Unsubscribe(subID)
		}
	}

	_, err := program.Run()
	return err
}

type uiMode int

const (
	modeMain uiMode = iota
	modeConfirm
	modeHelp
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusErr
)

type mainTab int

const (
	tabTimeline mainTab = iota
	tabTree
)

var tabOrder = []mainTab{tabTimeline, tabTree}

// trackRow is one visible lane: a track plus its ancestry labels.
type trackRow struct {
	Track      *models.Track
	GroupName  string
	AspectName string
}

type treeEntryKind int

const (
	treeEntryGroup treeEntryKind = iota
	treeEntryAspect
	treeEntryTrack
)

// treeEntry is one selectable line in the catalog tree.
type treeEntry struct {
	Kind     treeEntryKind
	ID       string
	Label    string
	Depth    int
	Expanded bool
	Visible  bool
}

type confirmState struct {
	ClipID string
	Prompt string
}

type model struct {
	store           *timeline.Store
	refreshInterval time.Duration
	palette         tuiPalette

	width  int
	height int

	groups []*models.Group
	state  timeline.State
	rows   []trackRow
	tree   []treeEntry

	tab        mainTab
	cursorRow  int
	cursorClip int
	treeCursor int

	mode       uiMode
	helpReturn uiMode
	confirm    *confirmState

	statusText    string
	statusKind    statusKind
	statusExpires time.Time
	quitting      bool
}

type refreshMsg struct {
	groups []*models.Group
	state  timeline.State
}

type tickMsg struct{}

// storeChangedMsg signals that the store mutated outside this model.
type storeChangedMsg struct{}

func newModel(store *timeline.Store, cfg Config) model {
	return model{
		store:           store,
		refreshInterval: cfg.RefreshInterval,
		palette:         resolvePalette(cfg.Theme),
		mode:            modeMain,
		tab:             tabTimeline,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.fetchCmd(), m.tickCmd())
}

func (m model) fetchCmd() tea.Cmd {
	store := m.store
	return func() tea.Msg {
		return refreshMsg{groups: store.Snapshot(), state: store.State()}
	}
}

func (m model) tickCmd() tea.Cmd {
	return tea.Tick(m.refreshInterval, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tickMsg:
		if !m.statusExpires.IsZero() && time.Now().After(m.statusExpires) {
			m.statusText = ""
		}
		return m, tea.Batch(m.fetchCmd(), m.tickCmd())
	case storeChangedMsg:
		return m, m.fetchCmd()
	case refreshMsg:
		m.groups = msg.groups
		m.state = msg.state
		m.rows = flattenTracks(msg.groups)
		m.tree = flattenTree(msg.groups)
		m.clampCursors()
		return m, nil
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.quitting = true
			return m, tea.Quit
		}
		switch m.mode {
		case modeConfirm:
			return m.updateConfirmMode(msg)
		case modeHelp:
			return m.updateHelpMode(msg)
		default:
			return m.updateMainMode(msg)
		}
	}
	return m, nil
}

func (m model) updateMainMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		m.quitting = true
		return m, tea.Quit
	case "?":
		m.helpReturn = m.mode
		m.mode = modeHelp
		return m, nil
	case "t":
		m.palette = cyclePalette(m.palette.Name, 1)
		m.setStatus(statusInfo, "Theme: "+m.palette.Name)
		return m, nil
	case "1":
		m.tab = tabTimeline
		return m, m.fetchCmd()
	case "2":
		m.tab = tabTree
		return m, m.fetchCmd()
	case "tab":
		m.tab = tabOrder[(int(m.tab)+1)%len(tabOrder)]
		return m, m.fetchCmd()
	}

	if m.tab == tabTree {
		return m.updateTreeKeys(msg)
	}
	return m.updateTimelineKeys(msg)
}

func (m model) updateTimelineKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "j", "down":
		m.moveRowCursor(1)
		return m, nil
	case "k", "up":
		m.moveRowCursor(-1)
		return m, nil
	case "h":
		m.moveClipCursor(-1)
		return m, nil
	case "l":
		m.moveClipCursor(1)
		return m, nil
	case "+", "=":
		m.store.SetZoom(m.state.Zoom * zoomStep)
		return m, m.fetchCmd()
	case "-":
		m.store.SetZoom(m.state.Zoom / zoomStep)
		return m, m.fetchCmd()
	case "left":
		m.store.PanViewport(-m.state.ViewportDuration / 10)
		return m, m.fetchCmd()
	case "right":
		m.store.PanViewport(m.state.ViewportDuration / 10)
		return m, m.fetchCmd()
	case "<":
		m.store.SetPlayhead(m.store.MaybeSnap(m.state.Playhead - m.playheadStep()))
		return m, m.fetchCmd()
	case ">":
		m.store.SetPlayhead(m.store.MaybeSnap(m.state.Playhead + m.playheadStep()))
		return m, m.fetchCmd()
	case "g":
		m.store.SetGridSnap(!m.state.GridSnap)
		if m.state.GridSnap {
			m.setStatus(statusInfo, "Grid snap off")
		} else {
			m.setStatus(statusInfo, "Grid snap on")
		}
		return m, m.fetchCmd()
	case " ", "space":
		if clip, ok := m.cursorClipRef(); ok {
			m.store.SelectClip(clip.ID, false, false)
		}
		return m, m.fetchCmd()
	case "m":
		if clip, ok := m.cursorClipRef(); ok {
			if m.store.IsSelected(clip.ID) {
				m.store.DeselectClip(clip.ID)
			} else {
				m.store.SelectClip(clip.ID, true, false)
			}
		}
		return m, m.fetchCmd()
	case "r":
		if clip, ok := m.cursorClipRef(); ok {
			m.store.SelectClip(clip.ID, false, true)
		}
		return m, m.fetchCmd()
	case "a":
		m.store.SelectAll()
		m.setStatus(statusInfo, fmt.Sprintf("Selected %d clips", m.store.SelectionCount()))
		return m, m.fetchCmd()
	case "esc":
		m.store.ClearSelection()
		return m, m.fetchCmd()
	case "c":
		n := m.store.CopySelection()
		m.setStatus(statusOK, fmt.Sprintf("Copied %d clips", n))
		return m, m.fetchCmd()
	case "x":
		n := m.store.Cut()
		m.setStatus(statusOK, fmt.Sprintf("Cut %d clips", n))
		return m, m.fetchCmd()
	case "p":
		row, ok := m.cursorRowRef()
		if !ok {
			return m, nil
		}
		ids := m.store.Paste(row.Track.ID, m.state.Playhead)
		if len(ids) == 0 {
			m.setStatus(statusErr, "Nothing to paste")
		} else {
			m.setStatus(statusOK, fmt.Sprintf("Pasted %d clips", len(ids)))
		}
		return m, m.fetchCmd()
	case "d":
		if clip, ok := m.cursorClipRef(); ok {
			if id := m.store.DuplicateClip(clip.ID); id != "" {
				m.setStatus(statusOK, "Duplicated clip")
			}
		}
		return m, m.fetchCmd()
	case "n":
		row, ok := m.cursorRowRef()
		if !ok {
			return m, nil
		}
		start := m.store.MaybeSnap(m.state.Playhead)
		id := m.store.AddClip(row.Track.ID, timeline.ClipData{
			TimeRange: models.TimeRange{Start: start, End: start + m.newClipDuration()},
		})
		if id == "" {
			m.setStatus(statusErr, "Clip rejected")
		} else {
			m.setStatus(statusOK, "Added clip")
		}
		return m, m.fetchCmd()
	case "D", "backspace", "delete":
		clip, ok := m.cursorClipRef()
		if !ok {
			return m, nil
		}
		m.confirm = &confirmState{
			ClipID: clip.ID,
			Prompt: fmt.Sprintf("Delete clip %q? (y/n)", clip.Name),
		}
		m.mode = modeConfirm
		return m, nil
	}
	return m, nil
}

func (m model) updateTreeKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "j", "down":
		if m.treeCursor < len(m.tree)-1 {
			m.treeCursor++
		}
		return m, nil
	case "k", "up":
		if m.treeCursor > 0 {
			m.treeCursor--
		}
		return m, nil
	case "e", "enter":
		if entry, ok := m.cursorTreeEntry(); ok {
			switch entry.Kind {
			case treeEntryGroup:
				m.store.ToggleGroupExpanded(entry.ID)
			case treeEntryAspect:
				m.store.ToggleAspectExpanded(entry.ID)
			}
		}
		return m, m.fetchCmd()
	case "v":
		if entry, ok := m.cursorTreeEntry(); ok {
			switch entry.Kind {
			case treeEntryGroup:
				m.store.ToggleGroupVisible(entry.ID)
			case treeEntryTrack:
				m.store.ToggleTrackVisible(entry.ID)
			}
		}
		return m, m.fetchCmd()
	}
	return m, nil
}

func (m model) updateConfirmMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		if m.confirm != nil && m.store.RemoveClip(m.confirm.ClipID) {
			m.setStatus(statusOK, "Clip deleted")
		}
		m.confirm = nil
		m.mode = modeMain
		return m, m.fetchCmd()
	case "n", "N", "esc":
		m.confirm = nil
		m.mode = modeMain
		return m, nil
	}
	return m, nil
}

func (m model) updateHelpMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.mode = m.helpReturn
	return m, nil
}

func (m *model) setStatus(kind statusKind, text string) {
	m.statusKind = kind
	m.statusText = text
	m.statusExpires = time.Now().Add(defaultStatusTTL)
}

func (m *model) moveRowCursor(delta int) {
	m.cursorRow += delta
	m.cursorClip = 0
	m.clampCursors()
}

func (m *model) moveClipCursor(delta int) {
	m.cursorClip += delta
	m.clampCursors()
}

func (m *model) clampCursors() {
	if m.cursorRow >= len(m.rows) {
		m.cursorRow = len(m.rows) - 1
	}
	if m.cursorRow < 0 {
		m.cursorRow = 0
	}
	clips := 0
	if row, ok := m.cursorRowRef(); ok {
		clips = len(row.Track.Clips)
	}
	if m.cursorClip >= clips {
		m.cursorClip = clips - 1
	}
	if m.cursorClip < 0 {
		m.cursorClip = 0
	}
	if m.treeCursor >= len(m.tree) {
		m.treeCursor = len(m.tree) - 1
	}
	if m.treeCursor < 0 {
		m.treeCursor = 0
	}
}

func (m model) cursorRowRef() (trackRow, bool) {
	if m.cursorRow < 0 || m.cursorRow >= len(m.rows) {
		return trackRow{}, false
	}
	return m.rows[m.cursorRow], true
}

func (m model) cursorClipRef() (*models.Clip, bool) {
	row, ok := m.cursorRowRef()
	if !ok {
		return nil, false
	}
	if m.cursorClip < 0 || m.cursorClip >= len(row.Track.Clips) {
		return nil, false
	}
	return row.Track.Clips[m.cursorClip], true
}

func (m model) cursorTreeEntry() (treeEntry, bool) {
	if m.treeCursor < 0 || m.treeCursor >= len(m.tree) {
		return treeEntry{}, false
	}
	return m.tree[m.treeCursor], true
}

func (m model) playheadStep() float64 {
	if m.state.GridSnap && m.state.SnapInterval > 0 {
		return m.state.SnapInterval
	}
	return m.state.ViewportDuration / 100
}

func (m model) newClipDuration() float64 {
	d := m.state.ViewportDuration / 10
	if d <= 0 {
		d = 60
	}
	return d
}

// flattenTracks lists the visible lanes: tracks of visible, expanded groups
// and aspects, in display order.
func flattenTracks(groups []*models.Group) []trackRow {
	var rows []trackRow
	for _, group := range groups {
		if !group.Visible || !group.Expanded {
			continue
		}
		for _, aspect := range group.Aspects {
			if !aspect.Visible || !aspect.Expanded {
				continue
			}
			for _, track := range aspect.Tracks {
				if !track.Visible {
					continue
				}
				rows = append(rows, trackRow{
					Track:      track,
					GroupName:  group.Name,
					AspectName: aspect.Name,
				})
			}
		}
	}
	return rows
}

// flattenTree lists every entity as a selectable line, honoring expansion.
func flattenTree(groups []*models.Group) []treeEntry {
	var entries []treeEntry
	for _, group := range groups {
		entries = append(entries, treeEntry{
			Kind:     treeEntryGroup,
			ID:       group.ID,
			Label:    group.Name,
			Depth:    0,
			Expanded: group.Expanded,
			Visible:  group.Visible,
		})
		if !group.Expanded {
			continue
		}
		for _, aspect := range group.Aspects {
			entries = append(entries, treeEntry{
				Kind:     treeEntryAspect,
				ID:       aspect.ID,
				Label:    aspect.Name,
				Depth:    1,
				Expanded: aspect.Expanded,
				Visible:  aspect.Visible,
			})
			if !aspect.Expanded {
				continue
			}
			for _, track := range aspect.Tracks {
				label := track.Name
				if track.Unit != "" {
					label += " [" + track.Unit + "]"
				}
				entries = append(entries, treeEntry{
					Kind:    treeEntryTrack,
					ID:      track.ID,
					Label:   label,
					Depth:   2,
					Visible: track.Visible,
				})
			}
		}
	}
	return entries
}
