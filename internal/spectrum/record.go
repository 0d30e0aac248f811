// SPDX-License-Identifier: MIT
/*
Package spectrum turns one frame of microphone samples into a power spectrum.

The transform engine consumes and produces packed complex records: two
complex int16 samples per 64-bit word, the layout a K210-style FFT
accelerator moves over DMA. Pack and Unpack adapt between that layout and
plain sample and bin slices without reinterpreting memory, and ToPower maps
the complex bins onto the logarithmic scale the bar graph renders.

Hot Path:
- Pipeline pre-allocates every buffer, Process does not allocate
- The zero bin maps to -Inf, see ToPower
*/
package spectrum

const (
	// Size is the transform size N, the number of complex bins per frame.
	Size = 512

	// FrameLen is the number of raw samples acquired per frame: Size
	// interleaved left/right pairs. Only the first Size samples, Size/2 pairs,
	// are packed.
	FrameLen = 2 * Size

	// Records is the number of packed records per transform buffer.
	Records = Size / 2

	// SampleRate of the I2S microphone in Hz, per channel.
	SampleRate = 38640

	// Channels interleaved in a frame. The transform runs over the
	// interleaved sequence, so bins are spaced PairRate/Size apart.
	Channels = 2

	// PairRate is the rate of the interleaved sample sequence.
	PairRate = SampleRate * Channels

	// ForwardShift is the per-stage shift mask used for the forward transform.
	// With no shift a tone much above 128 peak amplitude saturates its bin,
	// see saturate.
	ForwardShift uint32 = 0x0
)

// Record packs two complex samples, the unit the transform engine moves.
type Record struct {
	R1, I1 int16 // first complex sample
	R2, I2 int16 // second complex sample
}

// Bin is one complex frequency bin.
type Bin struct {
	Real, Imag int16
}

// Word returns the record as the engine's 64-bit DMA word:
//
//	bits  0-15  I1
//	bits 16-31  R1
//	bits 32-47  I2
//	bits 48-63  R2
func (r Record) Word() uint64 {
	return word(r.R1, r.I1, r.R2, r.I2)
}

func word(r1, i1, r2, i2 int16) uint64 {
	return uint64(uint16(i1)) |
		uint64(uint16(r1))<<16 |
		uint64(uint16(i2))<<32 |
		uint64(uint16(r2))<<48
}

// RecordFromWord is the inverse of Record.Word.
func RecordFromWord(w uint64) Record {
	return Record{
		I1: int16(uint16(w)),
		R1: int16(uint16(w >> 16)),
		I2: int16(uint16(w >> 32)),
		R2: int16(uint16(w >> 48)),
	}
}

// Pack places sample 2i as the real part of the first slot and sample 2i+1
// as the real part of the second slot of dst[i]. Imaginary parts are zero.
// Samples keep their 16 bits, int16(uint16) is a reinterpretation.
//
// frame must hold at least 2*len(dst) samples; a short frame panics.
func Pack(dst []Record, frame []uint16) {
	for i := range dst {
		dst[i] = Record{
			R1: int16(frame[2*i]),
			R2: int16(frame[2*i+1]),
		}
	}
}

// Unpack is the inverse of Pack's layout: record i yields bins 2i and 2i+1,
// so bin order 0..N-1 is preserved. dst must hold 2*len(src) bins.
func Unpack(dst []Bin, src []Record) {
	for i, r := range src {
		dst[2*i] = Bin{Real: r.R1, Imag: r.I1}
		dst[2*i+1] = Bin{Real: r.R2, Imag: r.I2}
	}
}
