// SPDX-License-Identifier: MIT
package display

import (
	"fmt"
	"io"
	"strings"

	"lcdspectrum/internal/config"
	"lcdspectrum/internal/render"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

const (
	DefaultTerminalCols = 80
	DefaultTerminalRows = 24 // Each row shows two pixel rows

	upperHalfBlock = "▀"
	cursorHome     = "\x1b[H"
)

// Terminal previews frames in an ANSI terminal. The 320x240 image is
// downsampled by nearest neighbour; each character cell shows two pixels
// using the upper half block with separate foreground and background colours.
type Terminal struct {
	w        io.Writer
	renderer *lipgloss.Renderer
	cols     int
	rows     int
	styles   map[[2]render.Color]lipgloss.Style
	sb       strings.Builder
}

func NewTerminal(w io.Writer, cols, rows int) *Terminal {
	cols = min(max(cols, 1), render.ImageWidth)
	rows = min(max(rows, 1), render.ImageHeight/2)
	return &Terminal{
		w:        w,
		renderer: lipgloss.NewRenderer(w),
		cols:     cols,
		rows:     rows,
		styles:   make(map[[2]render.Color]lipgloss.Style),
	}
}

// ColorProfile maps a configured colour setting onto a termenv profile.
// "auto" and unknown names follow the environment, which honours NO_COLOR
// and CLICOLOR_FORCE.
func ColorProfile(name string) termenv.Profile {
	switch name {
	case config.ColorsTrueColor:
		return termenv.TrueColor
	case config.ColorsANSI256:
		return termenv.ANSI256
	case config.ColorsANSI:
		return termenv.ANSI
	case config.ColorsNone:
		return termenv.Ascii
	default:
		return termenv.EnvColorProfile()
	}
}

// SetColorProfile overrides the profile detected from the writer.
func (t *Terminal) SetColorProfile(p termenv.Profile) {
	t.renderer.SetColorProfile(p)
	clear(t.styles)
}

func (t *Terminal) Blit(x, y, width, height int, buf *render.PixelBuffer) error {
	if err := checkFullFrame(x, y, width, height); err != nil {
		return err
	}
	_, err := io.WriteString(t.w, t.Frame(buf))
	return err
}

// Frame renders buf as rows lines of cols cells, prefixed with a cursor
// home sequence so successive frames overwrite each other.
func (t *Terminal) Frame(buf *render.PixelBuffer) string {
	t.sb.Reset()
	t.sb.WriteString(cursorHome)

	for r := range t.rows {
		top := (2 * r) * render.ImageHeight / (2 * t.rows)
		bottom := (2*r + 1) * render.ImageHeight / (2 * t.rows)
		for c := range t.cols {
			px := c * render.ImageWidth / t.cols
			t.sb.WriteString(t.style(buf.Pixel(px, top), buf.Pixel(px, bottom)).Render(upperHalfBlock))
		}
		t.sb.WriteByte('\n')
	}
	return t.sb.String()
}

func (t *Terminal) style(top, bottom render.Color) lipgloss.Style {
	key := [2]render.Color{top, bottom}
	if s, ok := t.styles[key]; ok {
		return s
	}
	s := t.renderer.NewStyle().
		Foreground(lipgloss.Color(hex(top))).
		Background(lipgloss.Color(hex(bottom)))
	t.styles[key] = s
	return s
}

func hex(c render.Color) string {
	r, g, b, _ := c.RGBA()
	return fmt.Sprintf("#%02x%02x%02x", r>>8, g>>8, b>>8)
}

func (t *Terminal) Close() error { return nil }
