// SPDX-License-Identifier: MIT
package spectrum

import (
	"math"
	"testing"

	"lcdspectrum/pkg/utils"
)

func dcFrame(v uint16) []uint16 {
	frame := make([]uint16, FrameLen)
	for i := range frame {
		frame[i] = v
	}
	return frame
}

func TestNewEngine(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		wantErr bool
	}{
		{EngineFourier, Size, false},
		{EngineDSP, Size, false},
		{EngineIdentity, Size, false},
		{"", Size, false},
		{"FOURIER", Size, false},
		{"hardware", Size, true},
		{EngineFourier, 500, true},
		{EngineDSP, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := NewEngine(tt.name, tt.size, ForwardShift)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error for %q size %d", tt.name, tt.size)
				}
				return
			}
			if err != nil || e == nil {
				t.Fatalf("NewEngine(%q) = %v, %v", tt.name, e, err)
			}
		})
	}
}

func TestKnownEngineMatchesNewEngine(t *testing.T) {
	for _, name := range []string{EngineFourier, "Dsp", " identity ", "", "fpga"} {
		_, err := NewEngine(name, Size, ForwardShift)
		if got := KnownEngine(name); got != (err == nil) {
			t.Errorf("KnownEngine(%q) = %v, NewEngine error = %v", name, got, err)
		}
	}
}

func TestFourierEngineShiftMask(t *testing.T) {
	tests := []struct {
		name  string
		shift uint32
		want  int16
	}{
		{"No shift", 0x0, 5120},   // 10 * 512
		{"Two stages", 0x3, 1280}, // 5120 / 4
		{"All stages", 0x1ff, 10}, // 5120 / 512
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := NewFourierEngine(Size, tt.shift)
			if err != nil {
				t.Fatal(err)
			}
			p := NewPipeline(e)
			p.Process(dcFrame(10))

			bins := p.Bins()
			if bins[0] != (Bin{Real: tt.want}) {
				t.Errorf("DC bin = %+v, want {%d 0}", bins[0], tt.want)
			}
			for i := 1; i < Size; i++ {
				if bins[i] != (Bin{}) {
					t.Fatalf("bin %d = %+v, want zero", i, bins[i])
				}
			}
		})
	}
}

func TestEngineReadsEveryWordField(t *testing.T) {
	// A single imaginary sample j*a at index 1, the I2 field of record 0:
	// X[k] = j*a*e^(-2*pi*j*k/N), so X[0] = j*a and X[N/4] = a.
	src := make([]Record, Records)
	src[0] = RecordFromWord(uint64(uint16(1000)) << 32)
	dst := make([]Record, Records)

	e, err := NewFourierEngine(Size, ForwardShift)
	if err != nil {
		t.Fatal(err)
	}
	e.Transform(dst, src)

	if got := dst[0]; got.R1 != 0 || got.I1 != 1000 {
		t.Errorf("X[0] = (%d, %d), want (0, 1000)", got.R1, got.I1)
	}
	if got := dst[Size/8]; got.R1 != 1000 || got.I1 != 0 {
		t.Errorf("X[N/4] = (%d, %d), want (1000, 0)", got.R1, got.I1)
	}
}

func TestFourierEngineSaturates(t *testing.T) {
	e, err := NewFourierEngine(Size, ForwardShift)
	if err != nil {
		t.Fatal(err)
	}
	p := NewPipeline(e)
	p.Process(dcFrame(0x7fff))
	if got := p.Bins()[0].Real; got != math.MaxInt16 {
		t.Errorf("DC bin real = %d, want saturation at %d", got, math.MaxInt16)
	}

	p.Process(dcFrame(0x8000))
	if got := p.Bins()[0].Real; got != math.MinInt16 {
		t.Errorf("DC bin real = %d, want saturation at %d", got, math.MinInt16)
	}
}

func TestFourierEngineFindsTone(t *testing.T) {
	const bin = 32
	frame := make([]uint16, FrameLen)
	utils.FillSine(frame, PairRate, BinFrequency(bin), 100, 0)

	e, err := NewFourierEngine(Size, ForwardShift)
	if err != nil {
		t.Fatal(err)
	}
	power := NewPipeline(e).Process(frame)

	if peak := utils.FindPeakBin(power, 1, Size/2-1); peak != bin {
		t.Errorf("peak bin = %d, want %d", peak, bin)
	}
	if peak := utils.FindPeakBin(power, Size/2+1, Size-1); peak != Size-bin {
		t.Errorf("mirrored peak bin = %d, want %d", peak, Size-bin)
	}
	// |X[k]| = A*N/2 = 25600, 20*ln(100) ~ 92.1
	if want := 20 * math.Log(100); math.Abs(power[bin]-want) > 0.5 {
		t.Errorf("peak power = %.2f, want about %.2f", power[bin], want)
	}
}

func TestDSPEngineMatchesFourierEngine(t *testing.T) {
	const shift = 0x1ff
	frame := utils.GenerateComplexFrame(FrameLen, SampleRate)

	fe, err := NewFourierEngine(Size, shift)
	if err != nil {
		t.Fatal(err)
	}
	de, err := NewDSPEngine(Size, shift)
	if err != nil {
		t.Fatal(err)
	}

	in := make([]Record, Records)
	Pack(in, frame)
	a := make([]Record, Records)
	b := make([]Record, Records)
	fe.Transform(a, in)
	de.Transform(b, in)

	near := func(x, y int16) bool { return math.Abs(float64(x)-float64(y)) <= 1 }
	for i := range a {
		if !near(a[i].R1, b[i].R1) || !near(a[i].I1, b[i].I1) ||
			!near(a[i].R2, b[i].R2) || !near(a[i].I2, b[i].I2) {
			t.Fatalf("record %d: gonum %+v, go-dsp %+v", i, a[i], b[i])
		}
	}
}

func TestPipelineHotPath(t *testing.T) {
	e, err := NewFourierEngine(Size, ForwardShift)
	if err != nil {
		t.Fatal(err)
	}
	p := NewPipeline(e)
	frame := utils.GenerateComplexFrame(FrameLen, SampleRate)

	// Warm-up call.
	p.Process(frame)
	allocs := testing.AllocsPerRun(100, func() {
		p.Process(frame)
	})

	if allocs > 0 {
		t.Errorf("Expected zero allocations in pipeline hot path, got %.1f", allocs)
	}
}

func TestNewPipelinePanicsWithoutEngine(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for nil engine")
		}
	}()
	NewPipeline(nil)
}

func BenchmarkPipelineProcess(b *testing.B) {
	e, err := NewFourierEngine(Size, ForwardShift)
	if err != nil {
		b.Fatal(err)
	}
	p := NewPipeline(e)
	frame := utils.GenerateComplexFrame(FrameLen, SampleRate)

	b.ReportAllocs()
	for b.Loop() {
		p.Process(frame)
	}
}
