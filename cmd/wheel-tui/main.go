package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"prizewheel"
)

func main() {
	var (
		configPath = flag.String("config", "", "Path to YAML wheel file (items, indicator, timings)")
		indicator  = flag.String("indicator", "", "Pointer clock position: 12, 3, 6 or 9 (overrides the file)")
		seed       = flag.Uint64("seed", 0, "Random seed (0 seeds from the clock)")
		logFile    = flag.String("log-file", "", "Write debug logs to this file")
	)
	flag.Parse()

	cfg := defaultWheelFile()
	if *configPath != "" {
		loaded, err := loadWheelFile(*configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if *indicator != "" {
		cfg.Indicator = *indicator
	}

	engineCfg, err := cfg.engineConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	// The terminal belongs to tcell, so logs only go to a file.
	logger := slog.New(slog.DiscardHandler)
	if *logFile != "" {
		f, err := os.OpenFile(*logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
		defer f.Close()
		logger = slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	opts := []prizewheel.Option{prizewheel.WithLogger(logger)}
	if *seed != 0 {
		opts = append(opts, prizewheel.WithRandom(prizewheel.NewRandom(*seed)))
	}

	app, err := newApp(engineCfg, cfg.lightsInterval(), opts...)
	if err != nil {
		if errors.Is(err, prizewheel.ErrConfig) {
			fmt.Fprintln(os.Stderr, "error: invalid wheel:", err)
		} else {
			fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		}
		os.Exit(1)
	}
	defer app.cleanup()

	app.run(16 * time.Millisecond)
}
