package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"prizewheel"
)

const version = "1.0.0"

func printVersion() {
	fmt.Printf("wheeld v%s\n", version)
	fmt.Println("Prize wheel daemon: spin engine with IPC, HTTP and websocket control")
}

func printUsage() {
	printVersion()
	fmt.Println()
	fmt.Println("USAGE:")
	fmt.Println("  wheeld [OPTIONS]")
	fmt.Println()
	fmt.Println("DESCRIPTION:")
	fmt.Println("  Hosts one prize wheel. Spins are requested over the IPC socket,")
	fmt.Println("  the HTTP API or a physical button, and every rotation frame is")
	fmt.Println("  streamed to websocket clients for rendering.")
	fmt.Println()
	fmt.Println("OPTIONS:")
	fmt.Println("  -config string")
	fmt.Println("        Path to YAML config file (defaults are used when omitted)")
	fmt.Println()
	fmt.Println("  -indicator string")
	fmt.Println("        Pointer clock position: 12, 3, 6 or 9 (default \"12\")")
	fmt.Println()
	fmt.Println("  -spin-duration-ms int")
	fmt.Printf("        Spin animation length in ms (default %d)\n", prizewheel.DefaultSpinDuration.Milliseconds())
	fmt.Println()
	fmt.Println("  -spin-delay-ms int")
	fmt.Printf("        Delay between a spin request and the first frame in ms (default %d)\n", prizewheel.DefaultSpinDelay.Milliseconds())
	fmt.Println()
	fmt.Println("  -frame-hz int")
	fmt.Printf("        Animation sampling rate in Hz (default %d)\n", defaultFrameHz)
	fmt.Println()
	fmt.Println("  -input-device string")
	fmt.Println("        Linux input event device for a spin button (e.g. /dev/input/event3)")
	fmt.Println()
	fmt.Println("  -ipc-socket string")
	fmt.Printf("        Unix domain socket path for IPC (default %q)\n", defaultSocketPath)
	fmt.Println()
	fmt.Println("  -http-addr string")
	fmt.Printf("        HTTP listen address, empty disables (default %q)\n", defaultHTTPAddr)
	fmt.Println()
	fmt.Println("  -log-level string")
	fmt.Println("        Log level: error, warn, info, debug (default \"info\")")
	fmt.Println()
	fmt.Println("  -log-file string")
	fmt.Println("        Also write logs to this size-rotated file")
	fmt.Println()
	fmt.Println("  -version")
	fmt.Println("        Print version and exit")
	fmt.Println()
	fmt.Println("  -help")
	fmt.Println("        Print this help message")
	fmt.Println()
	fmt.Println("EXAMPLES:")
	fmt.Println("  # Start with the default coupon wheel")
	fmt.Println("  wheeld")
	fmt.Println()
	fmt.Println("  # Pointer on the right, spin button on event3")
	fmt.Println("  wheeld -indicator 3 -input-device /dev/input/event3")
	fmt.Println()
	fmt.Println("  # Spin from a shell")
	fmt.Println("  wheelctl spin-to \"Free Shipping\"")
	fmt.Println()
}

func main() {
	var (
		configPath     = flag.String("config", "", "Path to YAML config file")
		indicator      = flag.String("indicator", string(prizewheel.Indicator12), "Pointer clock position: 12, 3, 6 or 9")
		spinDurationMS = flag.Int("spin-duration-ms", int(prizewheel.DefaultSpinDuration.Milliseconds()), "Spin animation length in ms")
		spinDelayMS    = flag.Int("spin-delay-ms", int(prizewheel.DefaultSpinDelay.Milliseconds()), "Delay before the first frame in ms")
		frameHz        = flag.Int("frame-hz", defaultFrameHz, "Animation sampling rate in Hz")
		inputDevice    = flag.String("input-device", "", "Linux input event device for a spin button")
		ipcSocketPath  = flag.String("ipc-socket", defaultSocketPath, "Unix domain socket path for IPC")
		httpAddr       = flag.String("http-addr", defaultHTTPAddr, "HTTP listen address (empty disables)")
		logLevelStr    = flag.String("log-level", defaultLogLevel, "Log level: error, warn, info, debug")
		logFile        = flag.String("log-file", "", "Also write logs to this size-rotated file")
		showVersion    = flag.Bool("version", false, "Print version and exit")
		showHelp       = flag.Bool("help", false, "Print help message")
	)

	flag.Usage = printUsage
	flag.Parse()

	if *showHelp {
		printUsage()
		return
	}
	if *showVersion {
		printVersion()
		return
	}

	cfg := DefaultConfig()
	if *configPath != "" {
		loaded, err := LoadConfigFile(*configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	// Only flags given on the command line override the file.
	var ov FlagOverrides
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "indicator":
			ov.Indicator = indicator
		case "spin-duration-ms":
			ov.SpinDurationMS = spinDurationMS
		case "spin-delay-ms":
			ov.SpinDelayMS = spinDelayMS
		case "frame-hz":
			ov.FrameHz = frameHz
		case "input-device":
			ov.InputDevice = inputDevice
		case "ipc-socket":
			ov.IPCSocketPath = ipcSocketPath
		case "http-addr":
			ov.HTTPAddr = httpAddr
		case "log-level":
			ov.LogLevel = logLevelStr
		case "log-file":
			ov.LogFile = logFile
		}
	})
	ov.Apply(&cfg)

	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "error: invalid config:", err)
		os.Exit(1)
	}

	logLevel, _ := parseLogLevel(cfg.Logging.Level)
	logger, logCloser := setupLogger(logLevel, cfg.Logging.File)
	defer logCloser.Close()

	if err := run(cfg, logger); err != nil {
		logger.Error("wheeld stopped", "error", err)
		logCloser.Close()
		os.Exit(1)
	}
}

func run(cfg Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	m := newMetrics(prometheus.DefaultRegisterer)
	hooks := newWheelHooks(gctx.Done(), m)

	engineCfg := cfg.ToEngineConfig()
	engineCfg.OnChange = hooks.OnChange
	engineCfg.OnFinish = hooks.OnFinish

	sched := prizewheel.NewScheduler()
	engine, err := prizewheel.New(engineCfg,
		prizewheel.WithScheduler(sched),
		prizewheel.WithLogger(logger.With("component", "engine")),
	)
	if err != nil {
		return fmt.Errorf("create engine: %w", err)
	}
	defer engine.Close()

	state := NewDaemonState(engine.Items())
	if cfg.Lights.Enabled {
		blinker := prizewheel.NewBlinker(sched, cfg.LightsInterval(), hooks.OnLights)
		blinker.Start()
		defer blinker.Stop()
	} else {
		state.Lights.On = false
	}

	events := make(chan Event, defaultEventBuffer)

	// Broadcasts only have a consumer when the websocket stream is served.
	var broadcasts chan StateBroadcast
	if cfg.HTTP.Addr != "" {
		broadcasts = make(chan StateBroadcast, 256)
	}

	logger.Info("starting wheeld",
		"version", version,
		"items", len(cfg.Wheel.Items),
		"indicator", cfg.Wheel.Indicator,
		"spin_duration_ms", cfg.Wheel.SpinDurationMS,
		"frame_hz", cfg.Wheel.FrameHz,
		"ipc", cfg.IPC.SocketPath,
		"http", cfg.HTTP.Addr,
		"input_devices", cfg.Input.Devices)

	g.Go(func() error {
		runDaemon(gctx, events, engine, hooks, state, broadcasts, m, logger.With("component", "daemon"))
		return nil
	})

	g.Go(func() error {
		return runIPCServer(gctx, cfg.IPC.SocketPath, events, logger.With("component", "ipc"))
	})

	if cfg.HTTP.Addr != "" {
		ws := NewServer(logger.With("component", "ws"), events, ServerConfig{
			Hub:            HubConfig{Metrics: m},
			AllowedOrigins: cfg.HTTP.AllowedOrigins,
		})
		router := newRouter(events, ws, defaultMetricsHandler(), cfg.HTTP.AllowedOrigins, logger.With("component", "http"))

		g.Go(func() error {
			ws.Hub().Run(gctx)
			return nil
		})
		g.Go(func() error {
			RunBroadcaster(gctx, ws.Hub(), broadcasts, logger.With("component", "ws"))
			return nil
		})
		g.Go(func() error {
			return runHTTPServer(gctx, cfg.HTTP.Addr, router, logger.With("component", "http"))
		})
	}

	if len(cfg.Input.Devices) > 0 {
		g.Go(func() error {
			return runInput(gctx, cfg.Input, events, logger.With("component", "input"))
		})
	}

	err = g.Wait()
	logger.Info("shutting down")
	return err
}
