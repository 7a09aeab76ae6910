package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/hallgrim/tracksmith/internal/models"
)

func (m model) View() string {
	if m.quitting {
		return ""
	}

	width := m.effectiveWidth()
	height := m.effectiveHeight()

	header := m.renderHeader(width)
	tabBar := m.renderTabBar(width)

	overhead := 3
	if m.statusText != "" {
		overhead++
	}
	bodyHeight := maxInt(8, height-overhead)

	var body string
	switch {
	case m.mode == modeHelp:
		body = m.renderHelp(width)
	case m.tab == tabTree:
		body = m.renderTree(width, bodyHeight)
	default:
		body = m.renderTimeline(width, bodyHeight)
	}

	parts := []string{header, tabBar, body}
	if m.mode == modeConfirm && m.confirm != nil {
		parts = append(parts, m.renderConfirm(width))
	}
	if m.statusText != "" {
		parts = append(parts, m.renderStatusLine(width))
	}
	return strings.Join(parts, "\n")
}

func (m model) effectiveWidth() int {
	if m.width < minWindowWidth {
		return minWindowWidth
	}
	return m.width
}

func (m model) effectiveHeight() int {
	if m.height < minWindowHeight {
		return minWindowHeight
	}
	return m.height
}

func (m model) renderHeader(width int) string {
	title := lipgloss.NewStyle().Foreground(lipgloss.Color(m.palette.Accent)).Bold(true).Render("tracksmith")

	snap := "off"
	if m.state.GridSnap {
		snap = fmt.Sprintf("%.0fs", m.state.SnapInterval)
	}
	info := fmt.Sprintf("  %s  zoom %.4gpx/s  playhead %s  snap %s  sel %d",
		m.state.StartTime.UTC().Format("2006-01-02 15:04:05"),
		m.state.Zoom,
		formatClock(m.state.Playhead),
		snap,
		m.store.SelectionCount(),
	)
	line := title + lipgloss.NewStyle().Foreground(lipgloss.Color(m.palette.TextMuted)).Render(info)
	return truncate(line, width)
}

func (m model) renderTabBar(width int) string {
	active := lipgloss.NewStyle().Foreground(lipgloss.Color(m.palette.Focus)).Bold(true)
	inactive := lipgloss.NewStyle().Foreground(lipgloss.Color(m.palette.TextMuted))

	labels := []string{"[1] Timeline", "[2] Tree"}
	for i := range labels {
		if mainTab(i) == m.tab {
			labels[i] = active.Render(labels[i])
		} else {
			labels[i] = inactive.Render(labels[i])
		}
	}
	return truncate(strings.Join(labels, "  "), width)
}

func (m model) renderTimeline(width, height int) string {
	laneWidth := width - nameColumnWidth - 1
	if laneWidth < 10 {
		laneWidth = 10
	}

	lines := []string{m.renderRuler(laneWidth)}
	maxRows := height - 1

	for i, row := range m.rows {
		if i >= maxRows {
			break
		}
		lines = append(lines, m.renderLane(row, i == m.cursorRow, laneWidth))
	}
	if len(m.rows) == 0 {
		empty := lipgloss.NewStyle().Foreground(lipgloss.Color(m.palette.TextMuted)).
			Render("No tracks. Import a catalog to begin.")
		lines = append(lines, empty)
	}
	return strings.Join(lines, "\n")
}

// renderRuler draws the viewport time scale with the playhead marker.
func (m model) renderRuler(laneWidth int) string {
	cells := make([]rune, laneWidth)
	for i := range cells {
		cells[i] = '─'
	}

	// Tick labels every eighth of the lane.
	var labels []string
	step := laneWidth / 8
	if step < 8 {
		step = 8
	}
	for col := 0; col < laneWidth; col += step {
		t := m.state.ViewportStart + float64(col)/float64(laneWidth)*m.state.ViewportDuration
		labels = append(labels, fmt.Sprintf("%-*s", step, formatClock(t)))
		cells[col] = '┬'
	}

	if col, ok := timeToColumn(m.state.Playhead, m.state.ViewportStart, m.state.ViewportDuration, laneWidth); ok {
		cells[col] = '▼'
	}

	muted := lipgloss.NewStyle().Foreground(lipgloss.Color(m.palette.TextMuted))
	pad := strings.Repeat(" ", nameColumnWidth+1)
	labelLine := pad + muted.Render(truncate(strings.Join(labels, ""), laneWidth))
	rulerLine := pad + muted.Render(string(cells))
	return labelLine + "\n" + rulerLine
}

func (m model) renderLane(row trackRow, focused bool, laneWidth int) string {
	nameStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(m.palette.Text)).Width(nameColumnWidth)
	if focused {
		nameStyle = nameStyle.Foreground(lipgloss.Color(m.palette.Focus)).Bold(true)
	}
	name := truncate(row.AspectName+"/"+row.Track.Name, nameColumnWidth)

	cursorID := ""
	if focused {
		if clip, ok := m.cursorClipRef(); ok {
			cursorID = clip.ID
		}
	}

	var lane strings.Builder
	col := 0
	for _, clip := range sortedByStart(row.Track) {
		startCol, endCol, visible := clipSpan(clip.TimeRange, m.state.ViewportStart, m.state.ViewportDuration, laneWidth)
		if !visible || endCol <= col {
			continue
		}
		if startCol > col {
			lane.WriteString(strings.Repeat(" ", startCol-col))
			col = startCol
		}
		lane.WriteString(m.renderClipBlock(clip, endCol-col, clip.ID == cursorID))
		col = endCol
	}
	if col < laneWidth {
		lane.WriteString(strings.Repeat(" ", laneWidth-col))
	}

	return nameStyle.Render(name) + "│" + lane.String()
}

func (m model) renderClipBlock(clip *models.Clip, width int, cursor bool) string {
	style := lipgloss.NewStyle().Foreground(lipgloss.Color(m.clipColor(clip.State)))
	if m.store.IsSelected(clip.ID) {
		style = style.Reverse(true)
	}
	if cursor {
		style = style.Bold(true).Underline(true)
	}
	return style.Render(clipLabel(clip, width))
}

func (m model) clipColor(state models.ClipState) string {
	switch state {
	case models.ClipStateUploading:
		return m.palette.Info
	case models.ClipStateProcessing:
		return m.palette.Warning
	case models.ClipStateComplete:
		return m.palette.Success
	case models.ClipStateError:
		return m.palette.Error
	default:
		return m.palette.Accent
	}
}

func (m model) renderTree(width, height int) string {
	focus := lipgloss.NewStyle().Foreground(lipgloss.Color(m.palette.Focus)).Bold(true)
	text := lipgloss.NewStyle().Foreground(lipgloss.Color(m.palette.Text))
	muted := lipgloss.NewStyle().Foreground(lipgloss.Color(m.palette.TextMuted))

	var lines []string
	for i, entry := range m.tree {
		if i >= height {
			break
		}
		marker := "  "
		switch {
		case entry.Kind == treeEntryTrack:
		case entry.Expanded:
			marker = "▾ "
		default:
			marker = "▸ "
		}
		line := strings.Repeat("  ", entry.Depth) + marker + entry.Label
		if !entry.Visible {
			line += " (hidden)"
		}

		style := text
		if !entry.Visible {
			style = muted
		}
		if i == m.treeCursor {
			style = focus
			line = "> " + line
		} else {
			line = "  " + line
		}
		lines = append(lines, style.Render(truncate(line, width)))
	}
	if len(lines) == 0 {
		lines = append(lines, muted.Render("Catalog is empty."))
	}
	return strings.Join(lines, "\n")
}

func (m model) renderConfirm(width int) string {
	style := lipgloss.NewStyle().
		Foreground(lipgloss.Color(m.palette.Warning)).
		Bold(true)
	return style.Render(truncate(m.confirm.Prompt, width))
}

func (m model) renderHelp(width int) string {
	rows := []string{
		"Keys",
		"  1/2, tab      switch between timeline and tree",
		"  j/k h/l       move track / clip cursor",
		"  +/-           zoom in / out",
		"  left/right    pan the viewport",
		"  </>           move the playhead",
		"  space m r a   select / toggle / range / all",
		"  esc           clear selection",
		"  c x p         copy / cut / paste at playhead",
		"  n d D         new / duplicate / delete clip",
		"  g             toggle grid snap",
		"  e v           (tree) expand / visibility",
		"  t             cycle theme",
		"  q             quit",
	}
	style := lipgloss.NewStyle().Foreground(lipgloss.Color(m.palette.Text))
	for i := range rows {
		rows[i] = style.Render(truncate(rows[i], width))
	}
	return strings.Join(rows, "\n")
}

func (m model) renderStatusLine(width int) string {
	color := m.palette.Info
	switch m.statusKind {
	case statusOK:
		color = m.palette.Success
	case statusErr:
		color = m.palette.Error
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Render(truncate(m.statusText, width))
}

// clipSpan projects a clip's time range onto lane columns. A clip entirely
// outside the viewport is not visible; one partially outside is clamped.
func clipSpan(r models.TimeRange, viewportStart, viewportDuration float64, laneWidth int) (startCol, endCol int, visible bool) {
	if viewportDuration <= 0 || laneWidth <= 0 {
		return 0, 0, false
	}
	scale := float64(laneWidth) / viewportDuration
	start := int((r.Start - viewportStart) * scale)
	end := int((r.End - viewportStart) * scale)

	if end <= 0 || start >= laneWidth {
		return 0, 0, false
	}
	if start < 0 {
		start = 0
	}
	if end > laneWidth {
		end = laneWidth
	}
	if end <= start {
		end = start + 1
	}
	return start, end, true
}

// timeToColumn maps a single instant to a lane column.
func timeToColumn(t, viewportStart, viewportDuration float64, laneWidth int) (int, bool) {
	if viewportDuration <= 0 || laneWidth <= 0 {
		return 0, false
	}
	col := int((t - viewportStart) / viewportDuration * float64(laneWidth))
	if col < 0 || col >= laneWidth {
		return 0, false
	}
	return col, true
}

// clipLabel fills the block with the clip name and, for in-flight clips,
// the progress percentage when the block is wide enough.
func clipLabel(clip *models.Clip, width int) string {
	if width <= 0 {
		return ""
	}
	label := clip.Name
	if (clip.State == models.ClipStateUploading || clip.State == models.ClipStateProcessing) && width >= 6 {
		label = fmt.Sprintf("%s %0.f%%", clip.Name, clip.Progress)
	}
	if clip.State == models.ClipStateError && width >= 3 {
		label = "! " + clip.Name
	}

	runes := []rune(label)
	if len(runes) > width {
		return string(runes[:width])
	}
	return label + strings.Repeat("▒", width-len(runes))
}

// sortedByStart returns the track's clips ordered by start time so lane
// rendering walks columns left to right.
func sortedByStart(track *models.Track) []*models.Clip {
	out := make([]*models.Clip, len(track.Clips))
	copy(out, track.Clips)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TimeRange.Start < out[j].TimeRange.Start
	})
	return out
}

func formatClock(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int(seconds)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

func truncate(s string, width int) string {
	if lipgloss.Width(s) <= width {
		return s
	}
	runes := []rune(s)
	if len(runes) > width {
		return string(runes[:width])
	}
	return s
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
