// Command capturedemo captures from a camera, optionally rescales the frames
// and reports the delivered frame rate.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pion/logging"

	"github.com/thesyncim/videocapture"
	"github.com/thesyncim/videocapture/internal/config"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	system := flag.String("system", "", "Capture system: native or testpattern")
	position := flag.String("position", "", "Camera position: front or back")
	duration := flag.Duration("duration", 0, "Run time (0 runs until interrupted)")
	switchAfter := flag.Duration("switch-after", 0, "Toggle camera position at this interval")
	scale := flag.String("scale", "", "Rescale frames to WIDTHxHEIGHT")
	logLevel := flag.String("log-level", "", "Log level: error, warn, info, debug, trace")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.LoadConfig(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
			os.Exit(1)
		}
	}

	// Explicit flags override the file
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "system":
			cfg.Capture.System = *system
		case "position":
			cfg.Capture.Position = *position
		case "duration":
			cfg.Capture.Duration = *duration
		case "switch-after":
			cfg.Capture.SwitchAfter = *switchAfter
		case "scale":
			cfg.Filter.Scale = *scale
		case "log-level":
			cfg.Log.Level = *logLevel
		}
	})
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid config: %v\n", err)
		os.Exit(1)
	}

	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "capturedemo: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	level, _ := cfg.LogLevel()
	factory := logging.NewDefaultLoggerFactory()
	factory.DefaultLogLevel = level
	videocapture.SetLoggerFactory(factory)
	log := factory.NewLogger("capturedemo")

	captureSystem, err := newCaptureSystem(cfg, factory)
	if err != nil {
		return err
	}
	for _, d := range captureSystem.CaptureDevices() {
		log.Infof("found camera %s", d)
	}

	position, _ := cfg.Position()
	preferred, _ := cfg.PreferredResolution()
	capturer := videocapture.NewCameraVideoCapturer(videocapture.CameraConfig{
		System:              captureSystem,
		Position:            position,
		PreferredResolution: preferred,
		LoggerFactory:       factory,
	})

	stream := videocapture.NewMediaStream("")
	stream.SetVideoCapturer(capturer)
	defer stream.Close()

	if filter, err := cfg.ScaleFilter(); err != nil {
		return err
	} else if filter != nil {
		stream.SetVideoFilter(filter)
	}

	counter := videocapture.NewFrameCounter()
	stream.AddVideoRenderer(counter)

	if err := capturer.Start(); err != nil {
		return fmt.Errorf("start capture: %w", err)
	}
	log.Infof("capturing from %s camera into stream %s", capturer.Position(), stream.ID())

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	if cfg.Capture.Duration > 0 {
		ctx, cancel = context.WithTimeout(ctx, cfg.Capture.Duration)
		defer cancel()
	}

	stats := time.NewTicker(cfg.Log.Interval)
	defer stats.Stop()

	var switchC <-chan time.Time
	if cfg.Capture.SwitchAfter > 0 {
		switcher := time.NewTicker(cfg.Capture.SwitchAfter)
		defer switcher.Stop()
		switchC = switcher.C
	}

	for {
		select {
		case <-ctx.Done():
			s := counter.Stats()
			log.Infof("captured %d frames", s.Frames)
			return capturer.Stop()
		case <-stats.C:
			s := counter.Stats()
			log.Infof("%d frames, %.1f fps, %dx%d from %s camera", s.Frames, s.FPS, s.Width, s.Height, s.Position)
		case <-switchC:
			if err := capturer.SwitchPosition(); err != nil {
				return fmt.Errorf("switch camera: %w", err)
			}
			counter.Reset()
			log.Infof("switched to %s camera", capturer.Position())
		}
	}
}

func newCaptureSystem(cfg *config.Config, factory logging.LoggerFactory) (videocapture.CaptureSystem, error) {
	if cfg.Capture.System == "testpattern" {
		tp := videocapture.DefaultTestPatternConfig()
		tp.MaxFPS = cfg.Capture.MaxFPS
		tp.LoggerFactory = factory
		return videocapture.NewTestPatternSystem(tp), nil
	}

	system := videocapture.GetCaptureSystem()
	if system == nil {
		return nil, fmt.Errorf("no native capture system available, try -system testpattern")
	}
	return system, nil
}
