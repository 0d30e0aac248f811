// SPDX-License-Identifier: MIT
package spectrum

import (
	"fmt"
	"math"
	"strings"

	"lcdspectrum/pkg/bitint"

	dspfft "github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/dsp/fourier"
)

// Engine runs the forward transform on packed records. It stands in for the
// FFT accelerator: dst and src hold Records records, the call blocks until dst
// is filled and never fails.
type Engine interface {
	Transform(dst, src []Record)
}

// EngineFunc adapts a function to the Engine interface.
type EngineFunc func(dst, src []Record)

func (f EngineFunc) Transform(dst, src []Record) { f(dst, src) }

// Identity copies src to dst. Tests use it to check the format adapters in
// isolation.
var Identity Engine = EngineFunc(func(dst, src []Record) { copy(dst, src) })

// Engine names accepted by NewEngine.
const (
	EngineFourier  = "fourier"
	EngineDSP      = "dsp"
	EngineIdentity = "identity"
)

// NewEngine returns the engine registered under name for a transform of the
// given size and per-stage shift mask.
func NewEngine(name string, size int, shift uint32) (Engine, error) {
	switch canonicalEngine(name) {
	case EngineFourier:
		return NewFourierEngine(size, shift)
	case EngineDSP:
		return NewDSPEngine(size, shift)
	case EngineIdentity:
		return Identity, nil
	default:
		return nil, fmt.Errorf("unknown transform engine %q", name)
	}
}

// KnownEngine reports whether NewEngine accepts name.
func KnownEngine(name string) bool {
	switch canonicalEngine(name) {
	case EngineFourier, EngineDSP, EngineIdentity:
		return true
	}
	return false
}

// canonicalEngine folds case and maps the empty name to the default engine.
func canonicalEngine(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return EngineFourier
	}
	return name
}

// fixedPoint holds what both software engines share: the complex scratch
// buffers and the output scale derived from the shift mask.
type fixedPoint struct {
	size  int
	scale float64
	in    []complex128
	out   []complex128
}

func newFixedPoint(size int, shift uint32) (fixedPoint, error) {
	if !bitint.IsPowerOfTwo(size) || size < 2 {
		return fixedPoint{}, fmt.Errorf("transform size must be a power of 2, got %d", size)
	}
	halvings := bitint.ShiftCount(shift, bitint.Log2(size))
	return fixedPoint{
		size:  size,
		scale: math.Ldexp(1, -halvings),
		in:    make([]complex128, size),
		out:   make([]complex128, size),
	}, nil
}

// load and store move records through the 64-bit DMA word, the only form
// the accelerator sees.
func (fp *fixedPoint) load(src []Record) {
	for i, r := range src {
		w := r.Word()
		fp.in[2*i] = complex(float64(int16(w>>16)), float64(int16(w)))
		fp.in[2*i+1] = complex(float64(int16(w>>48)), float64(int16(w>>32)))
	}
}

func (fp *fixedPoint) store(dst []Record, coeffs []complex128) {
	for i := range dst {
		a := coeffs[2*i]
		b := coeffs[2*i+1]
		dst[i] = RecordFromWord(word(
			saturate(real(a)*fp.scale),
			saturate(imag(a)*fp.scale),
			saturate(real(b)*fp.scale),
			saturate(imag(b)*fp.scale),
		))
	}
}

// saturate rounds v to the nearest int16, clipping like the accelerator's
// 16-bit datapath does on overflow.
func saturate(v float64) int16 {
	v = math.Round(v)
	switch {
	case v > math.MaxInt16:
		return math.MaxInt16
	case v < math.MinInt16:
		return math.MinInt16
	}
	return int16(v)
}

// FourierEngine is a software transform engine built on gonum's complex FFT.
// Its output is scaled by 2^-k, k being the number of set bits in the shift
// mask, then rounded and saturated to int16.
type FourierEngine struct {
	fixedPoint
	fft *fourier.CmplxFFT
}

// NewFourierEngine pre-allocates an engine for size-point transforms.
func NewFourierEngine(size int, shift uint32) (*FourierEngine, error) {
	fp, err := newFixedPoint(size, shift)
	if err != nil {
		return nil, err
	}
	return &FourierEngine{fixedPoint: fp, fft: fourier.NewCmplxFFT(size)}, nil
}

// Transform implements Engine without allocating.
func (e *FourierEngine) Transform(dst, src []Record) {
	e.load(src)
	e.fft.Coefficients(e.out, e.in)
	e.store(dst, e.out)
}

// DSPEngine produces the same fixed-point output as FourierEngine using
// go-dsp's FFT. go-dsp allocates its result, so this engine is not
// allocation free; it exists to cross-check the gonum path.
type DSPEngine struct {
	fixedPoint
}

// NewDSPEngine returns a go-dsp backed engine for size-point transforms.
func NewDSPEngine(size int, shift uint32) (*DSPEngine, error) {
	fp, err := newFixedPoint(size, shift)
	if err != nil {
		return nil, err
	}
	return &DSPEngine{fixedPoint: fp}, nil
}

// Transform implements Engine.
func (e *DSPEngine) Transform(dst, src []Record) {
	e.load(src)
	e.store(dst, dspfft.FFT(e.in))
}

var (
	_ Engine = (*FourierEngine)(nil)
	_ Engine = (*DSPEngine)(nil)
)
