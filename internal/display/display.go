// SPDX-License-Identifier: MIT
/*
Package display hands rendered frames to something that shows them.

A Sink receives the whole frame buffer after every render, addressed the way
the LCD driver takes a picture: a panel-space rectangle at (x, y) of
width x height pixels. Host sinks only accept the full panel.
*/
package display

import (
	"fmt"
	"io"
	"os"

	"lcdspectrum/internal/config"
	applog "lcdspectrum/internal/log"
	"lcdspectrum/internal/render"
)

var logger = applog.Scope("display")

// Sink shows a frame. buf must not be retained after Blit returns.
type Sink interface {
	Blit(x, y, width, height int, buf *render.PixelBuffer) error
}

// Open builds the sink selected by cfg.
func Open(cfg *config.Config) (Sink, io.Closer, error) {
	switch cfg.Display.Type {
	case config.DisplayTerminal:
		t := NewTerminal(os.Stdout, DefaultTerminalCols, DefaultTerminalRows)
		t.SetColorProfile(ColorProfile(cfg.Display.Colors))
		return t, t, nil
	case config.DisplayBMP:
		b, err := NewBMP(cfg.Display.Path, cfg.Display.Every)
		if err != nil {
			return nil, nil, err
		}
		return b, b, nil
	case config.DisplayWebSocket:
		ws, err := NewWebSocket(cfg.Display.Address)
		if err != nil {
			return nil, nil, err
		}
		return ws, ws, nil
	case config.DisplayDiscard:
		d := NewDiscard()
		return d, d, nil
	default:
		return nil, nil, fmt.Errorf("unknown display type %q", cfg.Display.Type)
	}
}

// checkFullFrame rejects partial blits.
func checkFullFrame(x, y, width, height int) error {
	if x != 0 || y != 0 || width != render.PanelWidth || height != render.PanelHeight {
		return fmt.Errorf("unsupported region %dx%d at (%d,%d), want full %dx%d panel",
			width, height, x, y, render.PanelWidth, render.PanelHeight)
	}
	return nil
}

// Discard accepts frames and only counts them.
type Discard struct {
	frames int
}

func NewDiscard() *Discard {
	logger.Infof("using discard sink")
	return &Discard{}
}

func (d *Discard) Blit(x, y, width, height int, buf *render.PixelBuffer) error {
	if err := checkFullFrame(x, y, width, height); err != nil {
		return err
	}
	d.frames++
	return nil
}

// Frames returns the number of frames received.
func (d *Discard) Frames() int { return d.frames }

func (d *Discard) Close() error {
	logger.Debugf("discard sink closed after %d frames", d.frames)
	return nil
}

// Ensure the sinks satisfy the interface at compile time.
var (
	_ Sink = (*Discard)(nil)
	_ Sink = (*BMP)(nil)
	_ Sink = (*Terminal)(nil)
	_ Sink = (*WebSocket)(nil)
)
