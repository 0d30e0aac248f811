// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"lcdspectrum/cmd"
	"lcdspectrum/internal/config"
	"lcdspectrum/internal/display"
	"lcdspectrum/internal/log"
	"lcdspectrum/internal/metrics"
	"lcdspectrum/internal/render"
	"lcdspectrum/internal/source"
	"lcdspectrum/internal/spectrum"
	"lcdspectrum/internal/transport/udp"
	"lcdspectrum/internal/tui"
	"lcdspectrum/internal/visualizer"
	"lcdspectrum/pkg/build"
)

// main is the entry point for the spectrum display.
// The program flow is divided into three distinct phases:
//
// 1. Startup Phase:
//   - Initialize build information
//   - Parse command line arguments and load configuration
//   - Execute one-off commands if requested
//
// 2. Display Loop:
//   - Open the source, transform engine and display sink
//   - Start telemetry and metrics if enabled
//   - Acquire, transform, draw and blit until interrupted
//
// 3. Shutdown Phase:
//   - Close collaborators in reverse order, flushing any recording
func main() {
	if err := build.Initialize(); err != nil {
		log.Fatalf("%v", err)
	}

	cfg, err := cmd.ParseArgs(os.Args[1:])
	if err != nil {
		log.Fatalf("%v", err)
	}
	configureLogging(cfg)
	log.Infof("%s", build.GetBuildFlags())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		stop()
		log.Fatalf("%v", err)
	}
}

func configureLogging(cfg *config.Config) {
	level, _ := log.ParseLevel(cfg.LogLevel)
	if cfg.Debug {
		level = log.LevelDebug
	}
	log.SetLevel(level)
}

func run(ctx context.Context, cfg *config.Config) error {
	switch cfg.Command {
	case cmd.CommandList:
		return listDevices(os.Stdout)
	case cmd.CommandSelect:
		device, ok, err := tui.PickDevice(fetchDevices)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		cfg.Source.Type = config.SourceMic
		cfg.Source.Device = device.ID
		log.Infof("selected device [%d] %s", device.ID, device.Name)
	}
	return visualize(ctx, cfg)
}

func listDevices(w io.Writer) error {
	if err := source.Initialize(); err != nil {
		return err
	}
	defer source.Terminate()
	return source.ListDevices(w)
}

func fetchDevices() ([]source.Device, error) {
	if err := source.Initialize(); err != nil {
		return nil, err
	}
	defer source.Terminate()
	return source.Devices()
}

// visualize wires the configured collaborators into a display loop and runs
// it until ctx ends or the frame budget is spent.
func visualize(ctx context.Context, cfg *config.Config) (err error) {
	closeWith := func(c io.Closer, what string) {
		if cerr := c.Close(); cerr != nil {
			log.Errorf("closing %s: %v", what, cerr)
			if err == nil {
				err = cerr
			}
		}
	}

	engine, err := spectrum.NewEngine(cfg.Engine, spectrum.Size, spectrum.ForwardShift)
	if err != nil {
		return err
	}

	src, srcCloser, err := source.Open(cfg)
	if err != nil {
		return err
	}
	defer closeWith(srcCloser, "source")

	sink, sinkCloser, err := display.Open(cfg)
	if err != nil {
		return err
	}
	defer closeWith(sinkCloser, "display")

	var opts []visualizer.Option

	if cfg.Transport.UDPEnabled {
		sender, err := udp.NewSender(cfg.Transport.UDPTargetAddress)
		if err != nil {
			return err
		}
		defer closeWith(sender, "udp sender")

		publisher, err := udp.NewPublisher(udp.DefaultInterval, sender, render.NumFreq)
		if err != nil {
			return err
		}
		publisher.Start()
		defer closeWith(publisher, "udp publisher")
		opts = append(opts, visualizer.WithPublisher(publisher))
	}

	if cfg.Metrics.Enabled {
		m := metrics.New()
		if _, err := m.Serve(cfg.Metrics.Address); err != nil {
			return fmt.Errorf("failed to serve metrics: %w", err)
		}
		defer closeWith(m, "metrics")
		opts = append(opts, visualizer.WithMetrics(m))
	}

	loop := visualizer.New(src, engine, sink, opts...)
	return loop.Run(ctx, cfg.Frames)
}
