package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/menta2k/photostrip"
	"github.com/menta2k/photostrip/internal/config"
	"github.com/menta2k/photostrip/internal/logging"
	"github.com/menta2k/photostrip/internal/utils"
	"github.com/menta2k/photostrip/pkg/types"
)

// app carries state shared by every subcommand
type app struct {
	configPath string
	logLevel   string

	cfg    *config.Config
	logger *slog.Logger
	closer io.Closer
}

func newRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   "photostrip",
		Short: "Photo booth strip compositor",
		Long: `Photostrip lays captured photos into decorative frame templates.

Photo slots are found from the transparent windows of each frame, mapped onto
the canonical print canvas, and the finished strip is duplicated onto a 4x6
print page.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
			return a.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.closer != nil {
				a.closer.Close()
			}
		},
	}

	cmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "YAML config file (default "+config.GetConfigPath()+" when present)")
	cmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level: debug|info|warn|error")

	cmd.AddCommand(
		newServeCmd(a),
		newComposeCmd(a),
		newLayoutCmd(a),
		newDetectCmd(a),
		newFramesCmd(a),
		newConfigCmd(a),
	)
	return cmd
}

func (a *app) init() error {
	path := a.configPath
	if path == "" && utils.FileExists(config.GetConfigPath()) {
		path = config.GetConfigPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}

	logger, closer, err := logging.Setup(logging.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		File:   cfg.Log.File,
	})
	if err != nil {
		return err
	}
	a.cfg, a.logger, a.closer = cfg, logger, closer
	return nil
}

// engine builds an Engine from the loaded config and registers the frames on disk
func (a *app) engine() (*photostrip.Engine, error) {
	opts, err := a.cfg.EngineOptions()
	if err != nil {
		return nil, err
	}
	opts.Logger = a.logger

	e, err := photostrip.NewWithConfig(opts)
	if err != nil {
		return nil, err
	}
	n, err := e.Discover()
	if err != nil {
		return nil, fmt.Errorf("discovering frames: %w", err)
	}
	a.logger.Debug("frames registered", "count", n, "dir", opts.FramesDir)
	return e, nil
}

func parseKey(filter, frameID string) (types.TemplateKey, error) {
	mode, err := types.ParseFilterMode(filter)
	if err != nil {
		return types.TemplateKey{}, err
	}
	if frameID == "" {
		return types.TemplateKey{}, fmt.Errorf("--frame is required")
	}
	return types.TemplateKey{Filter: mode, FrameID: frameID}, nil
}
