// SPDX-License-Identifier: MIT
package display

import (
	"fmt"
	"os"
	"path/filepath"

	"lcdspectrum/internal/render"

	"golang.org/x/image/bmp"
)

// BMP writes every Nth frame to a bitmap file in the panel's visible
// orientation. The file is replaced atomically, so a viewer polling it never
// sees a partial image.
type BMP struct {
	path   string
	every  int
	frames int
}

func NewBMP(path string, every int) (*BMP, error) {
	if every <= 0 {
		return nil, fmt.Errorf("invalid snapshot interval %d", every)
	}
	logger.Infof("writing every %d frames to %s", every, path)
	return &BMP{path: path, every: every}, nil
}

func (b *BMP) Blit(x, y, width, height int, buf *render.PixelBuffer) error {
	if err := checkFullFrame(x, y, width, height); err != nil {
		return err
	}
	b.frames++
	if (b.frames-1)%b.every != 0 {
		return nil
	}
	return b.write(buf)
}

func (b *BMP) write(buf *render.PixelBuffer) error {
	tmp, err := os.CreateTemp(filepath.Dir(b.path), ".snapshot-*.bmp")
	if err != nil {
		return fmt.Errorf("failed to create snapshot: %w", err)
	}
	defer os.Remove(tmp.Name()) // no-op after a successful rename

	if err := bmp.Encode(tmp, buf); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), b.path); err != nil {
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}
	return nil
}

// Frames returns the number of frames received, written or not.
func (b *BMP) Frames() int { return b.frames }

func (b *BMP) Close() error { return nil }
