// SPDX-License-Identifier: MIT
package visualizer

import (
	"context"
	"errors"
	"io"
	"math"
	"strings"
	"testing"

	"lcdspectrum/internal/display"
	"lcdspectrum/internal/metrics"
	"lcdspectrum/internal/render"
	"lcdspectrum/internal/source"
	"lcdspectrum/internal/spectrum"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

// spike delivers frames that are silent except for one sample. Through the
// identity engine that sample becomes bin `bin` of the spectrum.
type spike struct {
	bin   int
	value uint16
	limit int // io.EOF after this many frames, 0 for unlimited
	err   error
	n     int
	inits int
}

func (s *spike) Acquire(frame []uint16) error {
	if s.err != nil {
		return s.err
	}
	if s.limit > 0 && s.n >= s.limit {
		return io.EOF
	}
	clear(frame)
	frame[s.bin] = s.value
	s.n++
	return nil
}

func (s *spike) Initialize() error {
	s.inits++
	return nil
}

type recordingSink struct {
	blits int
	last  render.PixelBuffer
	err   error
}

func (r *recordingSink) Blit(x, y, width, height int, buf *render.PixelBuffer) error {
	if r.err != nil {
		return r.err
	}
	if x != 0 || y != 0 || width != render.PanelWidth || height != render.PanelHeight {
		return errors.New("partial blit")
	}
	r.blits++
	r.last = *buf
	return nil
}

type capture struct {
	calls  int
	values []float64
}

func (c *capture) Publish(values []float64) {
	c.calls++
	c.values = append(c.values[:0], values...)
}

var errBoom = errors.New("boom")

// Full-scale sample at bin 10, drawn as bar 8.
const (
	spikeBin = 10
	spikeBar = spikeBin - render.FirstBin
)

func fullScale() uint16 { return math.MaxInt16 }

func TestStepDrawsSpike(t *testing.T) {
	sink := &recordingSink{}
	l := New(&spike{bin: spikeBin, value: fullScale()}, spectrum.Identity, sink)
	if err := l.Initialize(); err != nil {
		t.Fatal(err)
	}
	if err := l.Step(); err != nil {
		t.Fatal(err)
	}

	// 20*ln(2*32767/512) = 97.04, height round(0.8571*97.04) = 83.
	f := l.Frame()
	for i, h := range f.Heights {
		want := 0
		if i == spikeBar {
			want = 83
		}
		if h != want {
			t.Errorf("height[%d] = %d, want %d", i, h, want)
		}
	}

	x := spikeBar * render.BarStride
	if got := sink.last.WordAt(x, 82); got != BarColor.Word() {
		t.Errorf("top of bar = %#x, want bar colour", got)
	}
	if got := sink.last.WordAt(x+1, 82+render.Half); got != BarColor.Word() {
		t.Errorf("mirrored half = %#x, want bar colour", got)
	}
	if got := sink.last.WordAt(x, 83); got != BackgroundColor.Word() {
		t.Errorf("above bar = %#x, want background", got)
	}
	if got := sink.last.WordAt(render.TickColumn(0), 0); got != TickColor.Word() {
		t.Errorf("tick = %#x, want tick colour", got)
	}
	if f.Index != 1 {
		t.Errorf("Index = %d, want 1", f.Index)
	}
}

func TestRunFrameBudget(t *testing.T) {
	src := &spike{bin: spikeBin, value: 1000}
	sink := &recordingSink{}
	l := New(src, spectrum.Identity, sink)

	if err := l.Run(context.Background(), 3); err != nil {
		t.Fatal(err)
	}
	if sink.blits != 3 {
		t.Errorf("blits = %d, want 3", sink.blits)
	}

	// A second Run continues the count without initializing again.
	if err := l.Run(context.Background(), 5); err != nil {
		t.Fatal(err)
	}
	if sink.blits != 5 || src.inits != 1 {
		t.Errorf("blits = %d, inits = %d; want 5, 1", sink.blits, src.inits)
	}
}

func TestRunEndings(t *testing.T) {
	tests := []struct {
		name      string
		src       *spike
		sinkErr   error
		cancel    bool
		wantErr   error
		wantBlits int
	}{
		{"Source exhausted", &spike{limit: 2}, nil, false, nil, 2},
		{"Source error", &spike{err: errBoom}, nil, false, errBoom, 0},
		{"Sink error", &spike{}, errBoom, false, errBoom, 0},
		{"Cancelled", &spike{}, nil, true, context.Canceled, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			if tt.cancel {
				cancel()
			}

			sink := &recordingSink{err: tt.sinkErr}
			err := New(tt.src, spectrum.Identity, sink).Run(ctx, 0)

			if tt.wantErr == nil && err != nil {
				t.Errorf("Run() = %v, want nil", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Run() = %v, want %v", err, tt.wantErr)
			}
			if sink.blits != tt.wantBlits {
				t.Errorf("blits = %d, want %d", sink.blits, tt.wantBlits)
			}
		})
	}
}

func TestSilenceClearsWholeFrame(t *testing.T) {
	sink := &recordingSink{}
	l := New(&spike{}, spectrum.Identity, sink)
	l.Frame().Pixels.Clear(render.White)

	if err := l.Run(context.Background(), 1); err != nil {
		t.Fatal(err)
	}

	// All bins are zero, so every power is -Inf: no bars, only ticks, and
	// the column Draw never writes is background too.
	var want render.PixelBuffer
	want.Clear(BackgroundColor)
	render.Draw(make([]float64, render.MinPowerLen), &want, BarColor, BackgroundColor, TickColor)
	if sink.last != want {
		t.Error("silent frame differs from background plus ticks")
	}
	for i, p := range l.Frame().Power[:render.MinPowerLen] {
		if !math.IsInf(p, -1) {
			t.Fatalf("power[%d] = %v, want -Inf", i, p)
		}
	}
}

func TestPublisherAndMetrics(t *testing.T) {
	pub := &capture{}
	m := metrics.New()
	l := New(&spike{bin: spikeBin, value: fullScale()}, spectrum.Identity, display.NewDiscard(),
		WithPublisher(pub), WithMetrics(m))

	if err := l.Run(context.Background(), 2); err != nil {
		t.Fatal(err)
	}

	if pub.calls != 2 || len(pub.values) != render.NumFreq {
		t.Fatalf("publisher got %d calls with %d values", pub.calls, len(pub.values))
	}
	want := 20 * math.Log(2*float64(fullScale())/spectrum.Size)
	if got := pub.values[spikeBar]; math.Abs(got-want) > 1e-9 {
		t.Errorf("published value = %v, want %v", got, want)
	}

	expected := `
# HELP lcdspectrum_frames_total Frames rendered and handed to the display
# TYPE lcdspectrum_frames_total counter
lcdspectrum_frames_total 2
# HELP lcdspectrum_lit_bars Bars with non-zero height in the last frame
# TYPE lcdspectrum_lit_bars gauge
lcdspectrum_lit_bars 1
# HELP lcdspectrum_peak_bin Index of the loudest displayed bin in the last frame
# TYPE lcdspectrum_peak_bin gauge
lcdspectrum_peak_bin 10
`
	if err := testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected),
		"lcdspectrum_frames_total", "lcdspectrum_lit_bars", "lcdspectrum_peak_bin"); err != nil {
		t.Error(err)
	}

	// The spike sits in the 10-bin mid band, every other band is silent.
	bands := map[string]float64{}
	families, err := m.Registry().Gather()
	if err != nil {
		t.Fatal(err)
	}
	for _, mf := range families {
		if mf.GetName() != "lcdspectrum_band_level" {
			continue
		}
		for _, metric := range mf.GetMetric() {
			bands[metric.GetLabel()[0].GetValue()] = metric.GetGauge().GetValue()
		}
	}
	wantMid := 20 * math.Log(2*float64(fullScale())/math.Sqrt(10)/spectrum.Size)
	if got := bands["mid"]; math.Abs(got-wantMid) > 1e-9 {
		t.Errorf("mid band level = %v, want %v", got, wantMid)
	}
	if got, ok := bands["bass"]; !ok || !math.IsInf(got, -1) {
		t.Errorf("bass band level = %v (present %v), want -Inf", got, ok)
	}
}

func TestToneLightsExpectedBar(t *testing.T) {
	const bin = 20
	engine, err := spectrum.NewFourierEngine(spectrum.Size, spectrum.ForwardShift)
	if err != nil {
		t.Fatal(err)
	}

	tone := source.NewTone(spectrum.SampleRate, spectrum.BinFrequency(bin), 100)
	l := New(tone, engine, display.NewDiscard())
	if err := l.Run(context.Background(), 1); err != nil {
		t.Fatal(err)
	}

	heights := l.Frame().Heights
	best := 0
	for i, h := range heights {
		if h > heights[best] {
			best = i
		}
	}
	if best != bin-render.FirstBin {
		t.Errorf("tallest bar = %d (heights %v), want %d", best, heights, bin-render.FirstBin)
	}
}

func TestKilohertzToneUnderFirstTick(t *testing.T) {
	engine, err := spectrum.NewFourierEngine(spectrum.Size, spectrum.ForwardShift)
	if err != nil {
		t.Fatal(err)
	}

	l := New(source.NewTone(spectrum.SampleRate, 1000, 100), engine, display.NewDiscard())
	if err := l.Run(context.Background(), 1); err != nil {
		t.Fatal(err)
	}

	heights := l.Frame().Heights
	best := 0
	for i, h := range heights {
		if h > heights[best] {
			best = i
		}
	}

	// Tick 0 (column 13) sits on bar 4, bin 6 at 906 Hz; 1 kHz peaks in
	// bin 7, the next bar.
	tickBar := render.TickColumn(0) / render.BarStride
	if best-tickBar < 0 || best-tickBar > 1 {
		t.Errorf("tallest bar = %d, want %d or %d (heights %v)", best, tickBar, tickBar+1, heights)
	}
	if heights[tickBar] == 0 {
		t.Errorf("bar %d under the first tick is dark", tickBar)
	}
	// No bin reaches the int16 ceiling of the engine.
	ceiling := 20 * math.Log(2*math.MaxInt16/float64(spectrum.Size))
	for i, p := range l.Frame().Power[:spectrum.Size/2] {
		if p >= ceiling {
			t.Errorf("bin %d saturated at power %.2f", i, p)
		}
	}
}

func TestStepNoAllocs(t *testing.T) {
	l := New(&spike{bin: spikeBin, value: 1000}, spectrum.Identity, display.NewDiscard())
	if err := l.Initialize(); err != nil {
		t.Fatal(err)
	}
	allocs := testing.AllocsPerRun(50, func() {
		_ = l.Step()
	})
	if allocs > 0 {
		t.Errorf("Step allocated: got %.1f allocs, want 0", allocs)
	}
}

func TestNewPanicsOnNil(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for nil sink")
		}
	}()
	New(&spike{}, spectrum.Identity, nil)
}

func BenchmarkStep(b *testing.B) {
	engine, err := spectrum.NewFourierEngine(spectrum.Size, spectrum.ForwardShift)
	if err != nil {
		b.Fatal(err)
	}
	l := New(source.NewTone(spectrum.SampleRate, 1000, 100), engine, display.NewDiscard())
	if err := l.Initialize(); err != nil {
		b.Fatal(err)
	}
	b.ReportAllocs()
	for b.Loop() {
		_ = l.Step()
	}
}
