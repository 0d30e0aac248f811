// SPDX-License-Identifier: MIT
/*
Package render rasterizes a power spectrum into the LCD frame buffer.

The frame buffer mirrors the panel's GRAM: 38400 32-bit words, each carrying
two identical RGB565 pixels. The renderer addresses it as 160 double-pixel
columns of 240 words, word (x, y) at index y + x*240. Rows 0..119 and
120..239 of a column are the two halves a bar is mirrored into.
*/
package render

import (
	"encoding/binary"
	"image"
	"image/color"
)

const (
	// Panel geometry in its native portrait orientation.
	PanelWidth  = 240
	PanelHeight = 320

	// Word raster addressed by the renderer.
	Columns = 160
	Rows    = 240
	Half    = Rows / 2
	Words   = Columns * Rows

	// Logical landscape image after the panel's XY swap.
	ImageWidth  = PanelHeight
	ImageHeight = PanelWidth
)

// Color is an RGB565 pixel.
type Color uint16

// Colours used by the spectrum display.
const (
	Black Color = 0x0000
	Blue  Color = 0x001f
	Red   Color = 0xf800
	Green Color = 0x07e0
	White Color = 0xffff
)

// Word packs c into both pixels of a GRAM word.
func (c Color) Word() uint32 {
	return uint32(c)<<16 | uint32(c)
}

// RGBA implements color.Color, expanding 5/6/5 bits to 16 bits per channel.
func (c Color) RGBA() (r, g, b, a uint32) {
	r5 := uint32(c>>11) & 0x1f
	g6 := uint32(c>>5) & 0x3f
	b5 := uint32(c) & 0x1f
	r = (r5<<11 | r5<<6 | r5<<1) & 0xffff
	g = (g6<<10 | g6<<4 | g6>>2) & 0xffff
	b = (b5<<11 | b5<<6 | b5<<1) & 0xffff
	return r, g, b, 0xffff
}

// RGB565Model converts any colour to the nearest RGB565 Color.
var RGB565Model = color.ModelFunc(func(c color.Color) color.Color {
	if c, ok := c.(Color); ok {
		return c
	}
	r, g, b, _ := c.RGBA()
	return Color((r>>11)<<11 | (g>>10)<<5 | b>>11)
})

// PixelBuffer is one full frame in panel GRAM layout.
type PixelBuffer [Words]uint32

// Clear fills the whole frame with c.
func (p *PixelBuffer) Clear(c Color) {
	w := c.Word()
	for i := range p {
		p[i] = w
	}
}

// WordAt returns the word at double-pixel column x, row y.
func (p *PixelBuffer) WordAt(x, y int) uint32 {
	return p[y+x*Rows]
}

// Bytes writes the frame as little-endian words into dst and returns it,
// allocating when dst holds fewer than 4*Words bytes. This is the order the
// DMA engine streams.
func (p *PixelBuffer) Bytes(dst []byte) []byte {
	if cap(dst) < 4*Words {
		dst = make([]byte, 4*Words)
	}
	dst = dst[:4*Words]
	for i, w := range p {
		binary.LittleEndian.PutUint32(dst[4*i:], w)
	}
	return dst
}

// ColorModel implements image.Image.
func (p *PixelBuffer) ColorModel() color.Model { return RGB565Model }

// Bounds implements image.Image. The frame is seen the way the rotated panel
// shows it: ImageWidth x ImageHeight, origin top-left.
func (p *PixelBuffer) Bounds() image.Rectangle { return image.Rect(0, 0, ImageWidth, ImageHeight) }

// At implements image.Image.
//
// The panel streams GRAM row-major at PanelWidth pixels per row, two pixels
// per word, then swaps X/Y and flips vertically. Logical column X is panel
// row X, so word column X/2 and half X%2; logical row Y is panel column
// 239-Y, so row (239-Y)/2 within that half and pixel (239-Y)%2 of the word.
func (p *PixelBuffer) At(x, y int) color.Color {
	return p.Pixel(x, y)
}

// Pixel is At without the interface conversion.
func (p *PixelBuffer) Pixel(x, y int) Color {
	if x < 0 || x >= ImageWidth || y < 0 || y >= ImageHeight {
		return Black
	}
	c := PanelWidth - 1 - y
	row := c/2 + (x%2)*Half
	w := p[row+(x/2)*Rows]
	if c%2 == 0 {
		return Color(w >> 16)
	}
	return Color(w)
}

var _ image.Image = (*PixelBuffer)(nil)
