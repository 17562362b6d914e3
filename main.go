// SPDX-License-Identifier: MIT
package main

import (
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"tempo/cmd"
	"tempo/internal/audio"
	"tempo/internal/config"
	"tempo/internal/detect"
	applog "tempo/internal/log"
	"tempo/internal/monitor"
	"tempo/internal/transport"
	"tempo/internal/transport/udp"
	"tempo/internal/tui"
	"tempo/pkg/build"
)

// main drives the application through three phases:
//
// 1. Startup (cold path): build info, CLI parsing, PortAudio and capture
// setup, monitor and transport construction.
//
// 2. Run (hot path): the capture callback fills the sample ring while the
// update ticker drains it through every active detector and hands the
// resulting snapshots to the transports and the TUI.
//
// 3. Shutdown (cold path): triggered by signal or TUI exit; stops the
// publisher, transports, recording, and stream in reverse order.
func main() {
	// ==================== STARTUP PHASE ====================

	build.Initialize()

	// One thread for the capture callback, one for everything else.
	runtime.GOMAXPROCS(2)

	opts, err := cmd.ParseArgs()
	if err != nil {
		applog.Fatalf("%v", err)
	}

	if opts.Command == "list" {
		if err := listDevices(); err != nil {
			applog.Fatalf("%v", err)
		}
		return
	}
	if !opts.TUIMode {
		return
	}

	cfg := opts.Config
	if level, ok := applog.ParseLevel(cfg.LogLevel); ok {
		applog.SetLevel(level)
	}

	input, capture, err := buildInput(cfg, opts.TestBPM)
	if err != nil {
		applog.Fatalf("%v", err)
	}
	if capture != nil {
		defer audio.Terminate()
		defer capture.Close()
	}

	manager, err := monitor.NewManager(cfg.Detection, input, nil, cfg.Capture.PollIntervalMS)
	if err != nil {
		applog.Fatalf("%v", err)
	}
	if _, err := manager.Spawn("main"); err != nil {
		applog.Fatalf("%v", err)
	}

	transports, publisher, err := buildTransports(cfg, manager)
	if err != nil {
		applog.Fatalf("%v", err)
	}

	// ==================== RUN PHASE ====================

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	stopLoop := make(chan struct{})
	go runUpdateLoop(manager, transports, cfg.Capture.PollIntervalMS, stopLoop)

	if publisher != nil {
		publisher.Start()
	}

	tuiDone := make(chan error, 1)
	go func() {
		tuiDone <- tui.StartMonitorUI(manager)
	}()

	select {
	case err := <-tuiDone:
		if err != nil {
			applog.Errorf("TUI error: %v", err)
		}
	case sig := <-done:
		applog.Infof("Received %v, shutting down", sig)
	}

	// ==================== SHUTDOWN PHASE ====================

	close(stopLoop)
	if publisher != nil {
		publisher.Stop()
	}
	for _, t := range transports {
		if err := t.Close(); err != nil {
			applog.Errorf("Error closing transport: %v", err)
		}
	}
	if capture != nil && cfg.Recording.Enabled {
		if err := capture.StopRecording(); err != nil {
			applog.Errorf("Error stopping recording: %v", err)
		} else {
			applog.Infof("Recording saved to: %s", cfg.Recording.OutputFile)
		}
	}
}

// buildInput constructs the audio input: the synthetic beat train in test
// mode, otherwise a PortAudio capture with optional WAV recording. The
// capture return value is nil in test mode.
func buildInput(cfg *config.Config, testBPM float64) (detect.AudioInput, *audio.Capture, error) {
	if testBPM > 0 {
		applog.Infof("Test mode: synthetic %.0f BPM beat train", testBPM)
		return audio.NewSyntheticInput(cfg.Detection.SampleRateHz, testBPM, 60, 0.8), nil, nil
	}

	if err := audio.Initialize(); err != nil {
		return nil, nil, err
	}

	capture, err := audio.NewCapture(cfg.Capture, cfg.Detection.SampleRateHz)
	if err != nil {
		audio.Terminate()
		return nil, nil, err
	}
	if err := capture.Start(); err != nil {
		audio.Terminate()
		return nil, nil, err
	}

	if cfg.Recording.Enabled {
		if err := capture.StartRecording(cfg.Recording.OutputFile, cfg.Recording.BitDepth); err != nil {
			capture.Close()
			audio.Terminate()
			return nil, nil, err
		}
	}
	return capture, capture, nil
}

// buildTransports wires up the enabled result publishers.
func buildTransports(cfg *config.Config, manager *monitor.Manager) ([]transport.Transport, *udp.Publisher, error) {
	var transports []transport.Transport

	if cfg.Debug {
		transports = append(transports, transport.NewLoggingTransport())
	}
	if cfg.Transport.WebSocketEnabled {
		transports = append(transports, transport.NewWebSocketTransport(cfg.Transport.WebSocketAddr))
	}

	var publisher *udp.Publisher
	if cfg.Transport.UDPEnabled {
		sender, err := udp.NewSender(cfg.Transport.UDPTargetAddress)
		if err != nil {
			return nil, nil, err
		}
		publisher, err = udp.NewPublisher(cfg.Transport.UDPSendInterval, sender, manager)
		if err != nil {
			sender.Close()
			return nil, nil, err
		}
	}
	return transports, publisher, nil
}

// runUpdateLoop is the detection heartbeat: every poll interval it drains
// pending samples through the active monitors and pushes the fresh
// snapshots to the transports.
func runUpdateLoop(manager *monitor.Manager, transports []transport.Transport, pollIntervalMS int64, stop <-chan struct{}) {
	ticker := time.NewTicker(time.Duration(pollIntervalMS) * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			entries := manager.UpdateAll()
			for _, t := range transports {
				t.Send(entries)
			}
		case <-stop:
			return
		}
	}
}

func listDevices() error {
	if err := audio.Initialize(); err != nil {
		return err
	}
	defer audio.Terminate()
	return audio.ListDevices()
}
