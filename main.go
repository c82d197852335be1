// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"spectra/cmd"
	"spectra/internal/api"
	"spectra/internal/audio"
	"spectra/internal/log"
	"spectra/internal/player"
	"spectra/internal/tui"
	"spectra/pkg/build"
)

// main is the entry point for the player.
// The program flow is divided into three distinct phases:
//
// 1. Startup Phase (Cold Path):
//   - Initialize build information
//   - Parse command line arguments and load configuration
//   - Configure logging
//   - Initialize PortAudio unless running headless
//   - Execute one-off commands if requested
//
// 2. Concurrent Phase (Hot Path):
//   - Build the signal graph and start the output sink
//   - Start the render loop and transports
//   - Serve the control API
//   - Load the file given on the command line
//   - Run the terminal UI, or wait for a signal
//
// 3. Shutdown Phase (Cold Path):
//   - Stop the control API
//   - Close the player and its output
func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run() error {
	// ==================== STARTUP PHASE (Cold Path) ====================

	// Build flags are injected by ldflags; plain `go build` falls back to defaults.
	if err := build.Initialize(); err != nil {
		log.Debugf("%v", err)
	}

	opts, err := cmd.ParseArgs(os.Args[1:])
	if err != nil {
		return err
	}
	if opts == nil {
		return nil
	}
	cfg := opts.Config

	closeLog, err := configureLogging(opts)
	if err != nil {
		return err
	}
	defer closeLog()

	if !cfg.Audio.Headless || opts.Command == cmd.CommandList {
		if err := audio.Initialize(); err != nil {
			return err
		}
		defer audio.Terminate()
	}

	if opts.Command == cmd.CommandList {
		return listDevices(opts.Interactive)
	}

	// ==================== CONCURRENT PHASE (Hot Path) ====================

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, err := player.New(*cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := p.Close(); err != nil {
			log.Errorf("closing player: %v", err)
		}
	}()

	if err := p.Start(ctx); err != nil {
		return fmt.Errorf("start output: %w", err)
	}

	if cfg.Server.Enabled {
		srv, err := api.Listen(cfg.Server.Addr, api.NewRouter(p, cfg.Debug))
		if err != nil {
			return fmt.Errorf("control API: %w", err)
		}
		go func() {
			if err := srv.Serve(); err != nil {
				log.Errorf("control API stopped: %v", err)
			}
		}()
		defer shutdown(srv)
	}

	if opts.File != "" {
		info, err := p.LoadFile(ctx, opts.File)
		if err != nil {
			return fmt.Errorf("load %s: %w", opts.File, err)
		}
		log.Infof("loaded %s (%s, %.1fs)", info.Name, info.MIMEType, info.Duration)
	}

	if opts.Command == cmd.CommandPlay {
		return tui.RunPlayer(p)
	}

	log.Infof("%s running, press Ctrl+C to stop", build.GetBuildInfo().Name)
	<-ctx.Done()

	// ==================== SHUTDOWN PHASE (Cold Path) ====================
	log.Infof("shutting down")
	return nil
}

// configureLogging applies the log level and picks the destination. The
// terminal UI owns the screen, so its logs go to a file.
func configureLogging(opts *cmd.Options) (func(), error) {
	log.Configure(opts.Config.LogLevel, opts.Verbose || opts.Config.Debug)

	path := opts.LogFile
	if path == "" && opts.Command == cmd.CommandPlay {
		path = filepath.Join(os.TempDir(), build.GetBuildInfo().Name+".log")
	}
	if path == "" {
		return func() {}, nil
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	log.SetOutput(f)
	return func() {
		log.SetOutput(os.Stderr)
		f.Close()
	}, nil
}

func listDevices(interactive bool) error {
	if !interactive {
		return audio.ListDevices(os.Stdout)
	}
	d, err := tui.PickDevice()
	if err != nil {
		return err
	}
	if d != nil {
		fmt.Printf("Selected [%d] %s\n", d.ID, d.Name)
	}
	return nil
}

func shutdown(srv *api.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		log.Errorf("control API shutdown: %v", err)
	}
}
