// SPDX-License-Identifier: MIT
package spectrum

import "math"

// ToPower converts complex bins into the log-power scale shown on the display:
//
//	power[i] = 20 * ln(2 * |bin[i]| / N)
//
// with N = len(bins). This is the natural logarithm, not log10, so values
// are about 2.3x larger than dBFS. The renderer's 0..140 range is tuned to it.
//
// A zero-magnitude bin yields math.Inf(-1). It is never NaN: squares are
// summed in float64, so int16 extremes cannot overflow.
func ToPower(dst []float64, bins []Bin) {
	n := float64(len(bins))
	for i, b := range bins {
		dst[i] = 20 * math.Log(2*b.Magnitude()/n)
	}
}

// Magnitude returns |b|.
func (b Bin) Magnitude() float64 {
	re := float64(b.Real)
	im := float64(b.Imag)
	return math.Sqrt(re*re + im*im)
}
