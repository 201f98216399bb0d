package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/s1500tools/s1500d/internal/config"
	"github.com/s1500tools/s1500d/internal/daemon"
	"github.com/s1500tools/s1500d/internal/log"
	"github.com/s1500tools/s1500d/internal/scanner"
)

// Run is the event daemon. The operating mode is fixed for the process
// lifetime: log-only without arguments, legacy with a positional handler,
// config mode with -c.
type Run struct {
	Handler string `arg:"" optional:"" help:"Handler script invoked with the event name on each raw event (legacy mode)."`
	Config  string `short:"c" type:"existingfile" help:"TOML config file enabling gesture detection and profile dispatch."`

	LogLevel          string        `help:"Log level (debug, info, warn, error); overrides log_level from the config file." env:"S1500D_LOG_LEVEL"`
	PollInterval      time.Duration `default:"100ms" help:"Hardware status poll interval."`
	ReconnectInterval time.Duration `default:"2s" help:"Device enumeration retry interval while the scanner is absent."`
}

func (r *Run) Run(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if r.Handler != "" && r.Config != "" {
		return fmt.Errorf("a positional handler and -c are mutually exclusive")
	}

	opts := daemon.Options{
		Mode:              daemon.ModeLogOnly,
		PollInterval:      r.PollInterval,
		ReconnectInterval: r.ReconnectInterval,
	}

	level := r.LogLevel
	switch {
	case r.Config != "":
		cfg, err := config.Load(r.Config)
		if err != nil {
			return err
		}
		opts.Mode = daemon.ModeConfig
		opts.Handler = cfg.Handler
		opts.GestureTimeout = cfg.GestureTimeout
		opts.Profiles = cfg.Profiles
		if level == "" {
			level = cfg.LogLevel
		}
		logger = log.Setup(level)
		logger.Info("s1500d starting", "mode", "config", "config", r.Config,
			"handler", cfg.Handler, "profiles", len(cfg.Profiles),
			"gesture_timeout", cfg.GestureTimeout)
	case r.Handler != "":
		opts.Mode = daemon.ModeLegacy
		opts.Handler = r.Handler
		logger = log.Setup(level)
		logger.Info("s1500d starting", "mode", "legacy", "handler", r.Handler)
	default:
		logger = log.Setup(level)
		logger.Info("s1500d starting", "mode", "log-only")
	}

	usb := scanner.NewUSB(logger)
	defer usb.Close()

	// A hard open error at startup (typically missing permissions on the
	// usbfs node) is fatal; a merely absent scanner is not.
	if dev, err := usb.Open(ctx); err != nil {
		return fmt.Errorf("cannot access scanner: %w", err)
	} else if dev != nil {
		_ = dev.Close()
	}

	opener := daemon.OpenerFunc(func(ctx context.Context) (daemon.Conn, error) {
		dev, err := usb.Open(ctx)
		if dev == nil {
			return nil, err
		}
		return dev, err
	})

	d := daemon.New(opts, opener, daemon.ExecRunner{Log: logger}, logger)
	return d.Run(ctx)
}
