package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/psycho-baller/text2dot/pkg/stream"
)

// Theme defines the colors of the status line.
type Theme struct {
	Primary lipgloss.Color // open, playing
	Warn    lipgloss.Color // connecting, loading
	Dim     lipgloss.Color // idle, closed, no audio
}

// DefaultTheme is the default bright green theme.
var DefaultTheme = Theme{
	Primary: lipgloss.Color("#00ff9f"),
	Warn:    lipgloss.Color("#ffb86c"),
	Dim:     lipgloss.Color("#6e7681"),
}

// Styles holds all styles derived from a theme.
type Styles struct {
	Active lipgloss.Style
	Busy   lipgloss.Style
	Idle   lipgloss.Style
	Label  lipgloss.Style
}

// NewStyles creates styles from a theme.
func NewStyles(t Theme) Styles {
	return Styles{
		Active: lipgloss.NewStyle().Bold(true).Foreground(t.Primary),
		Busy:   lipgloss.NewStyle().Bold(true).Foreground(t.Warn),
		Idle:   lipgloss.NewStyle().Foreground(t.Dim),
		Label:  lipgloss.NewStyle().Foreground(t.Dim),
	}
}

// StatusLine renders a stream.Status as one line, for example
//
//	● open ws://localhost:4000/  ▶ playing  epoch 3  12.0 KB
type StatusLine struct {
	Styles Styles
}

// NewStatusLine creates a StatusLine with the default theme.
func NewStatusLine() StatusLine {
	return StatusLine{Styles: NewStyles(DefaultTheme)}
}

// Render renders st, cut to width cells. A width <= 0 disables the cut.
func (l StatusLine) Render(st stream.Status, width int) string {
	conn := l.connStyle(st.Conn).Render("● " + st.Conn.String())
	if st.Retrying {
		conn += l.Styles.Busy.Render(" (retrying)")
	}
	parts := []string{
		conn + " " + l.Styles.Label.Render(st.Addr),
		l.playbackStyle(st.Playback).Render(playbackGlyph(st.Playback) + " " + st.Playback.String()),
		l.Styles.Label.Render(fmt.Sprintf("epoch %d", st.Epoch)),
	}
	if st.Buffered > 0 {
		parts = append(parts, l.Styles.Label.Render(FormatBytes(st.Buffered)))
	}
	line := strings.Join(parts, "  ")
	if width > 0 {
		line = lipgloss.NewStyle().MaxWidth(width).Render(line)
	}
	return line
}

func (l StatusLine) connStyle(s stream.ConnState) lipgloss.Style {
	switch s {
	case stream.ConnOpen:
		return l.Styles.Active
	case stream.ConnConnecting:
		return l.Styles.Busy
	default:
		return l.Styles.Idle
	}
}

func (l StatusLine) playbackStyle(s stream.PlaybackState) lipgloss.Style {
	switch s {
	case stream.Playing:
		return l.Styles.Active
	case stream.Loading:
		return l.Styles.Busy
	default:
		return l.Styles.Idle
	}
}

func playbackGlyph(s stream.PlaybackState) string {
	switch s {
	case stream.Playing:
		return "▶"
	case stream.Loading:
		return "…"
	default:
		return "■"
	}
}
