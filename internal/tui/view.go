package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/resonance-audio/resonance/internal/keymap"
	"github.com/resonance-audio/resonance/internal/playback"
)

// View renders the screen.
func (m Model) View() string {
	if m.showHelp {
		return m.viewHelp()
	}

	var b strings.Builder
	b.WriteString(m.viewHeader())
	b.WriteString("\n")
	if m.filterOn {
		b.WriteString(m.filter.View())
		b.WriteString("\n")
	}
	b.WriteString(m.viewList())
	b.WriteString(m.viewPlayer())
	b.WriteString("\n")
	b.WriteString(m.viewStatus())
	return b.String()
}

func (m Model) viewHeader() string {
	left := titleStyle.Render("resonance")
	if m.server != "" {
		left += mutedStyle.Render("  " + m.server)
	}
	count := fmt.Sprintf("%d tracks", len(m.titles))
	if len(m.visible) != len(m.titles) {
		count = fmt.Sprintf("%d/%d tracks", len(m.visible), len(m.titles))
	}
	return row(left, subtleStyle.Render(count), m.width) + "\n" +
		subtleStyle.Render(strings.Repeat("─", max(m.width, 1)))
}

func (m Model) viewList() string {
	rows := m.listHeight()
	var b strings.Builder
	if len(m.visible) == 0 {
		msg := "No tracks on the server yet"
		if len(m.titles) > 0 {
			msg = "No titles match the filter"
		}
		b.WriteString(mutedStyle.Render(msg))
		b.WriteString("\n")
		rows--
	}

	current := m.snap.Track.Title
	for i := m.offset; i < m.offset+rows; i++ {
		if i >= len(m.visible) {
			b.WriteString("\n")
			continue
		}
		title := m.visible[i]
		marker := "  "
		switch {
		case title == m.loading:
			marker = "… "
		case title == current && m.snap.Playing:
			marker = "▶ "
		case title == current:
			marker = "⏸ "
		}
		line := marker + truncateAndPad(title, max(m.width-2, 1))
		switch {
		case i == m.cursor:
			line = cursorStyle.Render(line)
		case title == current:
			line = playingStyle.Render(line)
		default:
			line = baseStyle.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) viewPlayer() string {
	inner := max(m.width-4, 10)
	if !m.snap.State.HasTrack() {
		return barStyle.Width(inner + 2).Render(mutedStyle.Render("Nothing loaded") + "\n")
	}

	t := m.snap.Track
	info := humanize.Bytes(uint64(max(t.Size, 0)))
	if m.volume != nil {
		vol := fmt.Sprintf("vol %d%%", int(m.volume.Volume()*100+0.5))
		if m.volume.Muted() {
			vol = "muted"
		}
		info += "  " + vol
	}
	line := row(titleStyle.Render(truncate(t.Title, inner-lipgloss.Width(info)-2)), mutedStyle.Render(info), inner)

	bar := renderProgressBar(seconds(m.snap.Position), seconds(t.Duration), inner, m.snap.Playing)
	if m.snap.State == playback.StateCompleted {
		bar = subtleStyle.Render(bar)
	}
	return barStyle.Width(inner + 2).Render(line + "\n" + bar)
}

func (m Model) viewStatus() string {
	switch {
	case m.errLine != "":
		return errorStyle.Render(truncate(m.errLine, m.width))
	case m.loading != "":
		return warningStyle.Render(truncate("Loading "+m.loading+"...", m.width))
	}
	return subtleStyle.Render("? help  enter play  space pause  ←/→ seek  q quit")
}

func (m Model) viewHelp() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Keys"))
	b.WriteString("\n")
	for _, ctx := range keymap.Contexts {
		b.WriteString("\n")
		b.WriteString(playingStyle.Render(ctx))
		b.WriteString("\n")
		for _, kb := range keymap.ByContext(ctx) {
			keys := make([]string, len(kb.Keys))
			for i, k := range kb.Keys {
				if k == " " {
					k = "space"
				}
				keys[i] = k
			}
			fmt.Fprintf(&b, "  %s %s\n",
				baseStyle.Render(truncateAndPad(strings.Join(keys, ", "), 22)),
				mutedStyle.Render(kb.Description))
		}
	}
	b.WriteString("\n")
	b.WriteString(subtleStyle.Render("press ? to close"))
	return b.String()
}
