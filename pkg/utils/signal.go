// Package utils generates synthetic sample frames for the tone source and
// for tests, and locates spectral peaks.
package utils

import "math"

// Sample converts v to a 16-bit microphone sample. v is rounded and
// saturated to int16 and then kept bit-for-bit as uint16, which is how the
// I2S bus delivers signed audio.
func Sample(v float64) uint16 {
	v = math.Round(v)
	if v > math.MaxInt16 {
		v = math.MaxInt16
	} else if v < math.MinInt16 {
		v = math.MinInt16
	}
	return uint16(int16(v))
}

// FillSine writes a sine of the given frequency and peak amplitude into dst.
// start is the absolute index of dst[0], so consecutive calls continue the
// waveform without a phase jump.
func FillSine(dst []uint16, sampleRate, frequency, amplitude float64, start int) {
	FillInterleavedSine(dst, 1, sampleRate, frequency, amplitude, start)
}

// FillInterleavedSine writes the same sine to every channel of an
// interleaved buffer. sampleRate is per channel and start is the absolute
// sample index of dst[0], counted across channels, so a call may end in the
// middle of a frame and the next one carries on.
func FillInterleavedSine(dst []uint16, channels int, sampleRate, frequency, amplitude float64, start int) {
	for i := range dst {
		t := float64((start+i)/channels) / sampleRate
		dst[i] = Sample(amplitude * math.Sin(2*math.Pi*frequency*t))
	}
}

// GenerateSineFrame returns size samples of a sine wave.
func GenerateSineFrame(size int, sampleRate, frequency, amplitude float64) []uint16 {
	frame := make([]uint16, size)
	FillSine(frame, sampleRate, frequency, amplitude, 0)
	return frame
}

// GenerateComplexFrame returns size samples of a 440Hz fundamental plus two
// harmonics at roughly 90% of full scale.
func GenerateComplexFrame(size int, sampleRate float64) []uint16 {
	frame := make([]uint16, size)
	for i := range frame {
		tm := float64(i) / sampleRate
		signal := math.Sin(2*math.Pi*440*tm)*0.5 +
			math.Sin(2*math.Pi*880*tm)*0.3 +
			math.Sin(2*math.Pi*1320*tm)*0.2
		frame[i] = Sample(signal * math.MaxInt16 * 0.9)
	}
	return frame
}

// FindPeakBin returns the index of the largest value in values[startBin..endBin].
// The range is clamped to the slice. -Inf entries never win over finite ones.
func FindPeakBin(values []float64, startBin, endBin int) int {
	if len(values) == 0 {
		return 0
	}

	if startBin < 0 {
		startBin = 0
	}

	if endBin >= len(values) {
		endBin = len(values) - 1
	}

	peakBin := startBin
	peakValue := values[startBin]

	for bin := startBin + 1; bin <= endBin; bin++ {
		if values[bin] > peakValue {
			peakValue = values[bin]
			peakBin = bin
		}
	}

	return peakBin
}
