package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"chatbridge/internal/config"
	"chatbridge/internal/services"
	"chatbridge/internal/session"
	"chatbridge/internal/transport"
	"chatbridge/internal/ui"
)

var (
	transportName string
	relayURL      string
	logPath       string
	dev           bool
)

func init() {
	flag.StringVar(&transportName, "transport", "direct", "how messages reach a model: direct or relay")
	flag.StringVar(&relayURL, "relay", "", "relay socket URL (defaults to RELAY_URL)")
	flag.StringVar(&logPath, "logPath", "", "directory to write log files to")
	flag.BoolVar(&dev, "dev", false, "show the debug console")
}

func main() {
	flag.Parse()

	logFile, err := openLogFile(logPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "✗ %v\n", err)
		os.Exit(1)
	}
	if logFile != nil {
		defer logFile.Close()
	}
	// The terminal belongs to the UI; logs go to the file and/or the debug console.
	log.SetOutput(io.Discard)
	if logFile != nil {
		log.SetOutput(logFile)
	}

	cfg := config.Load()

	tr, err := newTransport(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "✗ %v\n", err)
		os.Exit(1)
	}

	s := session.New(tr)
	defer s.Close()

	chatUI := ui.New(s, transportName, dev)
	if w := chatUI.DebugWriter(); w != nil {
		if logFile != nil {
			w = io.MultiWriter(logFile, w)
		}
		log.SetOutput(w)
	}

	err = chatUI.Run()

	// The debug console is gone; whatever the transport logs while closing goes to the file.
	log.SetOutput(io.Discard)
	if logFile != nil {
		log.SetOutput(logFile)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "✗ %v\n", err)
		s.Close()
		os.Exit(1)
	}
}

func newTransport(cfg *config.Config) (session.Transport, error) {
	switch transportName {
	case "direct":
		if err := cfg.RequireAPIKey(); err != nil {
			return nil, err
		}
		return transport.NewDirect(services.NewFetcherFromConfig(cfg, nil)), nil
	case "relay":
		url := relayURL
		if url == "" {
			url = cfg.RelayURL
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		relay, err := transport.DialRelay(ctx, url)
		if err != nil {
			return nil, err
		}
		return relay, nil
	default:
		return nil, fmt.Errorf("unknown transport %q, want direct or relay", transportName)
	}
}

func openLogFile(dir string) (*os.File, error) {
	if dir == "" {
		return nil, nil
	}
	name := fmt.Sprintf("chatbridge_%s.log", time.Now().Format("20060102_150405"))
	f, err := os.OpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return f, nil
}
