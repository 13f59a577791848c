package tui

import (
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// ShimmerConfig controls the highlight sweep over the selected row title
type ShimmerConfig struct {
	Enabled    bool
	Speed      time.Duration // tick interval
	WidthRatio float64       // highlight width relative to the text
	Cycle      time.Duration // one full sweep
	Pause      time.Duration // rest between sweeps
}

// DefaultShimmerConfig returns the standard sweep settings
func DefaultShimmerConfig() ShimmerConfig {
	return ShimmerConfig{
		Enabled:    true,
		Speed:      100 * time.Millisecond,
		WidthRatio: 0.25,
		Cycle:      1800 * time.Millisecond,
		Pause:      500 * time.Millisecond,
	}
}

type shimmerTickMsg struct{}

// Shimmer animates a gaussian highlight across a line of text. Positions
// are counted in runes so Hangul titles sweep evenly.
type Shimmer struct {
	cfg       ShimmerConfig
	center    float64
	paused    bool
	pauseLeft time.Duration
	trueColor bool
}

// NewShimmer creates a shimmer. Animation is off when the terminal does not
// advertise truecolor.
func NewShimmer(cfg ShimmerConfig) *Shimmer {
	return &Shimmer{
		cfg:       cfg,
		trueColor: os.Getenv("COLORTERM") == "truecolor",
	}
}

// Tick schedules the next animation frame
func (s *Shimmer) Tick() tea.Cmd {
	if s == nil || !s.cfg.Enabled || !s.trueColor {
		return nil
	}
	return tea.Tick(s.cfg.Speed, func(time.Time) tea.Msg { return shimmerTickMsg{} })
}

// Reset starts the sweep again, used when the selection moves
func (s *Shimmer) Reset() {
	s.center = 0
	s.paused = false
	s.pauseLeft = 0
}

// Advance moves the highlight one frame for text of n runes
func (s *Shimmer) Advance(n int) {
	if n <= 0 {
		return
	}
	if s.paused {
		s.pauseLeft -= s.cfg.Speed
		if s.pauseLeft <= 0 {
			s.paused = false
			s.center = -float64(n) * s.cfg.WidthRatio
		}
		return
	}

	ticks := float64(s.cfg.Cycle) / float64(s.cfg.Speed)
	distance := float64(n) * (1 + 2*s.cfg.WidthRatio)
	s.center += distance / ticks

	end := float64(n) * (1 + s.cfg.WidthRatio)
	if s.center >= end {
		s.center = end
		s.paused = true
		s.pauseLeft = s.cfg.Pause
	}
}

// Render paints text with the highlight at its current position
func (s *Shimmer) Render(text string) string {
	if s == nil || !s.cfg.Enabled || !s.trueColor {
		return headerStyle.Render(text)
	}

	runes := []rune(text)
	sigma := math.Max(1, s.cfg.WidthRatio*float64(len(runes))/2)

	// base #B1B8C7, highlight #EAE6FF
	const (
		baseR, baseG, baseB = 177, 184, 199
		hiR, hiG, hiB       = 234, 230, 255
	)

	var b strings.Builder
	for i, r := range runes {
		dx := float64(i) - s.center
		w := math.Exp(-(dx * dx) / (2 * sigma * sigma))
		red := int(baseR*(1-w) + hiR*w)
		green := int(baseG*(1-w) + hiG*w)
		blue := int(baseB*(1-w) + hiB*w)
		fmt.Fprintf(&b, "\033[38;2;%d;%d;%dm%c", red, green, blue, r)
	}
	b.WriteString("\033[0m")
	return b.String()
}
