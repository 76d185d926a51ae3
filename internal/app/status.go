package app

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/guidoenr/retrobars/internal/render"
	"github.com/guidoenr/retrobars/internal/scheduler"
)

func statusStyle(excited bool) lipgloss.Style {
	bg := render.Calm.GradientStart
	if excited {
		bg = render.Excited.GradientEnd
	}
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color("#1a1a1a")).
		Background(lipgloss.Color(bg))
}

func statusText(info scheduler.FrameInfo, stats scheduler.Stats, fps float64, width, height int) string {
	mode := "CALM"
	if info.Excited {
		mode = "EXCITED"
	}
	glitch := ""
	if info.Glitched {
		glitch = " *glitch*"
	}
	return fmt.Sprintf("%s | %dx%d px | frame %d glitches %d | fps %.1f | space=toggle r=restart q=quit%s",
		mode, width, height, info.Seq, stats.Glitches, fps, glitch)
}

// statusBar pads or truncates text to width, styled per palette when colour
// is enabled.
func statusBar(text string, width int, excited, styled bool) string {
	if width <= 0 {
		return text
	}
	if len(text) >= width {
		text = text[:width]
	} else {
		text += strings.Repeat(" ", width-len(text))
	}
	if !styled {
		return text
	}
	return statusStyle(excited).Render(text)
}
