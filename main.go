package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"gridcam/internal/config"
	"gridcam/internal/errsink"
	"gridcam/internal/ui"
)

// Version information - set by linker flags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GoVersion = "unknown"
)

// exitCodeFor maps a fatal ErrorRecord onto the process exit code taxonomy:
// 1 for camera/permission fatals (including camerasrc's reconnect
// exhaustion), 2 for deadlock-recovery-exhausted pipeline fatals, and 4 for
// any other fatal. Exit code 3 (window/surface) is reserved: no error
// category maps to it.
func exitCodeFor(rec errsink.ErrorRecord) int {
	switch rec.Category {
	case errsink.CategoryPermissionDenied, errsink.CategoryUnsupportedFormat:
		return 1
	case errsink.CategoryPipelineDeadlock:
		return 2
	case errsink.CategoryFatalInternal:
		if rec.Stage == "camerasrc" {
			return 1
		}
		return 4
	default:
		return 4
	}
}

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	configPath := flag.String("config", "", "Path to config.ini (default: ./config.ini or $GRIDCAM_CONFIG)")
	fakeCamera := flag.Bool("fake-camera", false, "Use the synthetic test-pattern camera instead of a real device")
	flag.Parse()

	if *showVersion {
		fmt.Printf("gridcam %s\n", Version)
		fmt.Printf("  Build time: %s\n", BuildTime)
		fmt.Printf("  Go version: %s\n", GoVersion)
		fmt.Printf("  Platform:   %s/%s\n", runtime.GOOS, runtime.GOARCH)
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load error: %v (using defaults)\n", err)
		cfg = config.DefaultConfig()
	}

	log, logCleanup, err := config.ConfigureLogging(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging setup error: %v\n", err)
	}
	if logCleanup != nil {
		defer logCleanup()
	}

	log.Infof("gridcam %s starting", Version)
	log.Infof("config: %dx%d @ %d fps capture, %.0f fps render, ring buffer capacity %d",
		cfg.CaptureWidth, cfg.CaptureHeight, cfg.CaptureFPS, cfg.TargetRenderFPS, cfg.RingBufferCapacity)

	if ok, warnings := cfg.Validate(); !ok {
		log.Error("config validation failed")
		for _, w := range warnings {
			log.Warn(w)
		}
		os.Exit(1)
	} else {
		for _, w := range warnings {
			log.Warn(w)
		}
	}

	sink := errsink.NewLogSink(log, func(rec errsink.ErrorRecord) {
		log.WithField("category", rec.Category.String()).Error("fatal pipeline error, exiting")
		os.Exit(exitCodeFor(rec))
	})

	application := ui.New(cfg, log, sink)

	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Infof("received signal %v, shutting down", sig)
		cancel()
		application.Stop()
		os.Exit(0)
	}()

	if err := application.Start(ctx, *fakeCamera); err != nil {
		log.WithError(err).Error("failed to start pipeline")
		os.Exit(1)
	}

	application.ShowAndRun()
	cancel()
	application.Stop()
}
