// SPDX-License-Identifier: MIT
/*
Package visualizer runs the acquire, transform, draw and blit cycle.

One Loop owns one Frame: the sample buffer, the power spectrum view, the bar
heights and the pixel buffer. Nothing is shared between goroutines; Run
executes every stage synchronously, so a frame is always drawn from the
samples acquired in the same iteration.

Start-up Sequence:
- Initialize collaborators that need it (PortAudio for the microphone)
- Clear the pixel buffer to the background colour
- Loop until the context ends, the frame budget is spent or a collaborator fails
*/
package visualizer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"lcdspectrum/internal/analysis"
	"lcdspectrum/internal/display"
	applog "lcdspectrum/internal/log"
	"lcdspectrum/internal/metrics"
	"lcdspectrum/internal/render"
	"lcdspectrum/internal/source"
	"lcdspectrum/internal/spectrum"
	"lcdspectrum/pkg/utils"
)

var logger = applog.Scope("visualizer")

// Display colours.
const (
	BarColor        = render.Red
	BackgroundColor = render.Black
	TickColor       = render.Blue
)

// Frame is the state carried through one iteration.
type Frame struct {
	Index   uint64
	Samples []uint16            // spectrum.FrameLen raw samples
	Power   []float64           // Pipeline output, valid until the next Process
	Heights [render.NumFreq]int // Bar heights of the last drawn frame
	Pixels  render.PixelBuffer  // Frame buffer handed to the sink
}

// Publisher receives the displayed bins after every frame.
type Publisher interface {
	Publish(values []float64)
}

// Loop drives one display.
type Loop struct {
	source    source.Source
	pipeline  *spectrum.Pipeline
	sink      display.Sink
	publisher Publisher
	metrics   *metrics.Metrics
	bands     *analysis.BandLevels

	frame       Frame
	initialized bool
}

// Option configures optional collaborators.
type Option func(*Loop)

// WithPublisher sends the displayed bins of every frame to p.
func WithPublisher(p Publisher) Option {
	return func(l *Loop) { l.publisher = p }
}

// WithMetrics records stage timings, frame summaries and band levels in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(l *Loop) {
		l.metrics = m
		l.bands = analysis.NewBandLevels(analysis.DefaultBands())
	}
}

// New creates a loop. All three collaborators are required.
func New(src source.Source, engine spectrum.Engine, sink display.Sink, opts ...Option) *Loop {
	if src == nil || engine == nil || sink == nil {
		panic("visualizer: nil collaborator")
	}
	l := &Loop{
		source:   src,
		pipeline: spectrum.NewPipeline(engine),
		sink:     sink,
	}
	l.frame.Samples = make([]uint16, spectrum.FrameLen)
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Frame returns the loop's frame context.
func (l *Loop) Frame() *Frame { return &l.frame }

// Initialize runs collaborator start-up hooks and clears the frame buffer.
// Run calls it on first use.
func (l *Loop) Initialize() error {
	if l.initialized {
		return nil
	}
	if i, ok := l.source.(source.Initializer); ok {
		if err := i.Initialize(); err != nil {
			return fmt.Errorf("failed to initialize source: %w", err)
		}
	}
	// Draw never touches the column past the last bar.
	l.frame.Pixels.Clear(BackgroundColor)
	if l.metrics != nil {
		l.metrics.Started(time.Now())
	}
	l.initialized = true
	return nil
}

// Step acquires, renders and shows one frame.
func (l *Loop) Step() error {
	f := &l.frame

	start := time.Now()
	if err := l.source.Acquire(f.Samples); err != nil {
		l.stageError(metrics.StageAcquire)
		return fmt.Errorf("acquire: %w", err)
	}
	start = l.observe(metrics.StageAcquire, start)

	f.Power = l.pipeline.Process(f.Samples)
	start = l.observe(metrics.StageProcess, start)

	render.Draw(f.Power, &f.Pixels, BarColor, BackgroundColor, TickColor)
	render.Heights(f.Heights[:], f.Power)
	start = l.observe(metrics.StageDraw, start)

	if err := l.sink.Blit(0, 0, render.PanelWidth, render.PanelHeight, &f.Pixels); err != nil {
		l.stageError(metrics.StageBlit)
		return fmt.Errorf("blit: %w", err)
	}
	l.observe(metrics.StageBlit, start)

	displayed := f.Power[render.FirstBin : render.FirstBin+render.NumFreq]
	if l.publisher != nil {
		l.publisher.Publish(displayed)
	}
	if l.metrics != nil {
		peak := utils.FindPeakBin(f.Power, render.FirstBin, render.FirstBin+render.NumFreq-1)
		l.metrics.FrameShown(peak, f.Power[peak], litBars(f.Heights[:]))
		levels := l.bands.Process(l.pipeline.Bins())
		for i, band := range l.bands.Bands() {
			l.metrics.BandLevel(band.Name, levels[i])
		}
	}

	f.Index++
	return nil
}

// Run initializes and then steps until ctx is done, maxFrames frames have
// been shown (0 means no limit), or a collaborator fails. A source that runs
// out of samples ends the loop without error. Cancellation returns ctx.Err().
func (l *Loop) Run(ctx context.Context, maxFrames int) error {
	if err := l.Initialize(); err != nil {
		return err
	}

	logger.Infof("running (frames: %d)", maxFrames)
	for maxFrames <= 0 || l.frame.Index < uint64(maxFrames) {
		if err := ctx.Err(); err != nil {
			logger.Infof("stopped after %d frames", l.frame.Index)
			return err
		}
		if err := l.Step(); err != nil {
			if errors.Is(err, io.EOF) {
				logger.Infof("source exhausted after %d frames", l.frame.Index)
				return nil
			}
			logger.Errorf("frame %d: %v", l.frame.Index, err)
			return err
		}
	}
	logger.Infof("rendered %d frames", l.frame.Index)
	return nil
}

func (l *Loop) observe(stage string, start time.Time) time.Time {
	now := time.Now()
	if l.metrics != nil {
		l.metrics.ObserveStage(stage, now.Sub(start))
	}
	return now
}

func (l *Loop) stageError(stage string) {
	if l.metrics != nil {
		l.metrics.StageError(stage)
	}
}

func litBars(heights []int) int {
	n := 0
	for _, h := range heights {
		if h > 0 {
			n++
		}
	}
	return n
}
