// SPDX-License-Identifier: MIT
// Package metrics exports display loop statistics to Prometheus.
package metrics

import (
	"errors"
	"net"
	"net/http"
	"time"

	applog "lcdspectrum/internal/log"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var logger = applog.Scope("metrics")

// Loop stages, used as the "stage" label.
const (
	StageAcquire = "acquire"
	StageProcess = "process"
	StageDraw    = "draw"
	StageBlit    = "blit"
)

// Metrics holds the collectors for one display loop. Each instance owns its
// registry, so tests and multiple loops do not collide.
type Metrics struct {
	registry *prometheus.Registry

	framesTotal   prometheus.Counter       // Frames fully rendered and shown
	errorsTotal   *prometheus.CounterVec   // Collaborator errors by stage
	stageDuration *prometheus.HistogramVec // Time spent per stage
	peakBin       prometheus.Gauge         // Loudest displayed bin of the last frame
	peakPower     prometheus.Gauge         // Its power
	litBars       prometheus.Gauge         // Bars with non-zero height in the last frame
	bandLevel     *prometheus.GaugeVec     // Level per frequency band
	startTime     prometheus.Gauge         // Unix time the loop started

	server *http.Server
}

// New creates the collectors on a fresh registry, with Go runtime and
// process collectors alongside.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		framesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "lcdspectrum_frames_total",
			Help: "Frames rendered and handed to the display",
		}),
		errorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "lcdspectrum_errors_total",
			Help: "Collaborator errors by loop stage",
		}, []string{"stage"}),
		stageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "lcdspectrum_stage_duration_seconds",
			Help:    "Time spent in each loop stage",
			Buckets: prometheus.ExponentialBuckets(10e-6, 2, 14), // 10us .. ~80ms
		}, []string{"stage"}),
		peakBin: factory.NewGauge(prometheus.GaugeOpts{
			Name: "lcdspectrum_peak_bin",
			Help: "Index of the loudest displayed bin in the last frame",
		}),
		peakPower: factory.NewGauge(prometheus.GaugeOpts{
			Name: "lcdspectrum_peak_power",
			Help: "Power of the loudest displayed bin in the last frame",
		}),
		litBars: factory.NewGauge(prometheus.GaugeOpts{
			Name: "lcdspectrum_lit_bars",
			Help: "Bars with non-zero height in the last frame",
		}),
		bandLevel: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "lcdspectrum_band_level",
			Help: "Level of each frequency band in the last frame",
		}, []string{"band"}),
		startTime: factory.NewGauge(prometheus.GaugeOpts{
			Name: "lcdspectrum_start_time_seconds",
			Help: "Unix time the display loop started",
		}),
	}
}

// Registry returns the registry the collectors live in.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Started records the loop start time.
func (m *Metrics) Started(t time.Time) { m.startTime.Set(float64(t.Unix())) }

// ObserveStage records how long a stage took.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	m.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// StageError counts an error in stage.
func (m *Metrics) StageError(stage string) {
	m.errorsTotal.WithLabelValues(stage).Inc()
}

// FrameShown records a completed frame and its summary.
func (m *Metrics) FrameShown(peakBin int, peakPower float64, lit int) {
	m.framesTotal.Inc()
	m.peakBin.Set(float64(peakBin))
	m.peakPower.Set(peakPower)
	m.litBars.Set(float64(lit))
}

// BandLevel records the level of one frequency band.
func (m *Metrics) BandLevel(band string, level float64) {
	m.bandLevel.WithLabelValues(band).Set(level)
}

// Serve exposes /metrics on addr in the background and returns the bound
// address.
func (m *Metrics) Serve(addr string) (net.Addr, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	m.server = &http.Server{Handler: mux}

	go func() {
		logger.Infof("serving metrics on %s/metrics", ln.Addr())
		if err := m.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("metrics server error: %v", err)
		}
	}()
	return ln.Addr(), nil
}

// Close stops the metrics server if one is running.
func (m *Metrics) Close() error {
	if m.server == nil {
		return nil
	}
	return m.server.Close()
}
