// SPDX-License-Identifier: MIT
package render

import "math"

const (
	// NumFreq is the number of bars drawn.
	NumFreq = 53

	// FirstBin is the first power bin shown; DC and the bin next to it are skipped.
	FirstBin = 2

	// MinPowerLen is the shortest power slice Draw accepts.
	MinPowerLen = FirstBin + NumFreq

	// MaxHeight is the tallest bar in word rows.
	MaxHeight = Half

	// HeightScale maps the 0..140 power range onto MaxHeight: 120/140.
	HeightScale = 0.8571

	// BarStride is the number of word columns per bar: two lit, one gap.
	BarStride = 3

	// Tick marks approximate 1..8 kHz.
	NumTicks  = 8
	TickStart = 13
	TickStep  = 17.5
)

// Height maps a power value onto a bar height in [0, MaxHeight].
// Negative values, -Inf and NaN give 0; +Inf gives MaxHeight.
func Height(power float64) int {
	v := math.Round(HeightScale * power)
	if !(v > 0) {
		return 0
	}
	if v > MaxHeight {
		return MaxHeight
	}
	return int(v)
}

// Heights fills dst with the heights of bars 0..len(dst)-1, bar i showing
// power[i+FirstBin].
func Heights(dst []int, power []float64) {
	for i := range dst {
		dst[i] = Height(power[i+FirstBin])
	}
}

// TickColumn returns the word column of tick i. The fractional step is
// truncated, so the spacing alternates between 17 and 18 columns.
func TickColumn(i int) int {
	return int(TickStart + float64(i)*TickStep)
}

// Draw paints the bar graph for power into buf.
//
// Each bar occupies BarStride word columns: the first two are fg up to the
// bar height and bg above it, the third is always bg. Every word of both
// halves of those columns is written. Tick columns are painted last over the
// lower half, overwriting whatever the bars left there. Column 159 lies past
// the last bar and is not touched; clear buf once before the first frame.
//
// power must hold at least MinPowerLen values.
func Draw(power []float64, buf *PixelBuffer, fg, bg, tick Color) {
	_ = power[MinPowerLen-1]

	var h [NumFreq]int
	Heights(h[:], power)

	fw := fg.Word()
	bw := bg.Word()
	tw := tick.Word()

	for i := range NumFreq {
		x := i * BarStride
		lit := buf[x*Rows : (x+1)*Rows]
		lit2 := buf[(x+1)*Rows : (x+2)*Rows]
		gap := buf[(x+2)*Rows : (x+3)*Rows]

		for y := range Half {
			w := bw
			if y < h[i] {
				w = fw
			}
			lit[y], lit[y+Half] = w, w
			lit2[y], lit2[y+Half] = w, w
			gap[y], gap[y+Half] = bw, bw
		}
	}

	for i := range NumTicks {
		col := buf[TickColumn(i)*Rows:]
		for y := range Half {
			col[y] = tw
		}
	}
}
