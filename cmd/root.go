// Package cmd builds the circam command line.
package cmd

import (
	"fmt"
	"log/slog"

	"github.com/smazurov/circam/internal/config"
	"github.com/smazurov/circam/internal/display"
	"github.com/smazurov/circam/internal/events"
	"github.com/smazurov/circam/internal/geometry"
	"github.com/smazurov/circam/internal/logging"
	"github.com/smazurov/circam/internal/metrics"
	"github.com/smazurov/circam/internal/v4l2"
	"github.com/smazurov/circam/internal/version"
	"github.com/smazurov/circam/internal/viewer"
	"github.com/spf13/cobra"
)

// CreateRootCmd creates the root circam command.
func CreateRootCmd() *cobra.Command {
	opts := config.DefaultOptions()

	cmd := &cobra.Command{
		Use:   "circam [flags] <device>",
		Short: "Circular camera viewer",
		Long: `Captures live frames from a V4L2 device and shows them, cropped to a
centered square, in a resizable, draggable, circular window.

Resize with +/- or the scroll wheel, drag with the left mouse button,
quit with Escape. Settings resolve with CLI flags beating CIRCAM_*
environment variables beating the TOML config file.`,
		Example: "  circam /dev/video0\n  circam -t -s 600 /dev/video2",
		Args:    cobra.ExactArgs(1),
		Version: version.String(),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Device = args[0]

			if err := config.LoadConfig(&opts, cmd); err != nil {
				slog.Warn("failed to load config", "error", err)
			}
			if err := opts.Validate(); err != nil {
				return err
			}

			// Validation passed; from here failures are runtime, not
			// usage, errors.
			cmd.SilenceUsage = true
			return run(opts)
		},
	}

	flags := cmd.Flags()
	flags.BoolVarP(&opts.Top, "top", "t", false, "keep the window always on top")
	flags.IntVarP(&opts.Size, "size", "s", config.DefaultSize,
		fmt.Sprintf("initial window size in pixels (minimum %d)", config.MinSize))
	flags.StringVarP(&opts.Config, "config", "c", "", "path to TOML config file")
	flags.StringVar(&opts.MetricsAddr, "metrics-addr", "", "expose Prometheus metrics on this address")
	flags.StringVar(&opts.LogLevel, "log-level", opts.LogLevel, "log level (debug, info, warn, error)")
	flags.StringVar(&opts.LogFormat, "log-format", opts.LogFormat, "log format (text, json)")

	return cmd
}

func run(opts config.Options) error {
	logCfg := config.LoadLoggingConfig(opts.Config)
	logCfg.Level = opts.LogLevel
	logCfg.Format = opts.LogFormat
	logging.Initialize(logCfg)

	logger := logging.GetLogger("main")
	logger.Info("starting", "version", version.String(), "device", opts.Device)

	bus := events.New()
	collector := metrics.NewCollector()
	collector.Attach(bus)
	defer collector.Detach()

	if opts.MetricsAddr != "" {
		server := collector.Serve(opts.MetricsAddr, logging.GetLogger("metrics"))
		defer server.Close()
	}

	pipeline, err := v4l2.Open(opts.Device, logging.GetLogger("capture"))
	if err != nil {
		return fmt.Errorf("opening %s: %w", opts.Device, err)
	}

	backend := display.NewSDL(logging.GetLogger("display"))
	geo := geometry.New(backend, bus, logging.GetLogger("geometry"))
	v := viewer.New(backend, pipeline, geo, bus, collector, viewer.Config{
		Title:       "circam",
		Size:        opts.Size,
		AlwaysOnTop: opts.Top,
	}, logging.GetLogger("viewer"))

	if err := v.Init(); err != nil {
		return err
	}

	if opts.Config != "" {
		watcher := newOptionsWatcher(opts.Config, v)
		if err := watcher.Start(); err != nil {
			logger.Warn("config watcher unavailable", "error", err)
		} else {
			defer watcher.Stop()
		}
	}

	v.Run()
	return nil
}

// newOptionsWatcher wires live config reload: size changes are applied
// as application-driven resizes, log level changes take effect at
// runtime.
func newOptionsWatcher(path string, v *viewer.Viewer) *config.Watcher[config.Options] {
	loader := func(path string) (config.Options, error) {
		o := config.DefaultOptions()
		o.Config = path
		err := config.LoadConfig(&o, nil)
		return o, err
	}

	watcher := config.NewConfigWatcher(path, loader, logging.GetLogger("config"))
	watcher.OnReload(func(o config.Options) {
		if o.Size >= config.MinSize {
			v.RequestSize(o.Size)
		}
		logCfg := config.LoadLoggingConfig(path)
		for module, level := range logCfg.Modules {
			logging.SetLevel(module, level)
		}
	})
	return watcher
}

// Execute runs the root command.
func Execute() error {
	return CreateRootCmd().Execute()
}
