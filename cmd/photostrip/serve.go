package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/menta2k/photostrip/internal/server"
	"github.com/menta2k/photostrip/internal/utils"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string
	var warm bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the kiosk HTTP service",
		Long: `Starts the HTTP service used by the kiosk front end.

Endpoints:
  GET  /frame-layout?filter_type=color|bw&frame_id=ID   slot percentages for the camera preview
  POST /process      {"photos":[...],"filter_type":"...","frame_id":"..."}
  POST /print-page   {"path":"strip.jpg"}   strip must live under output.dir
  GET  /status
  GET  /healthcheck`,
		Example: `  # Start on the configured address
  photostrip serve

  # Start on a custom address and pre-detect every frame
  photostrip serve --addr :3000 --warm`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				a.cfg.Server.Addr = addr
			}
			if err := utils.EnsureDir(a.cfg.Output.Dir); err != nil {
				return fmt.Errorf("creating output directory: %w", err)
			}
			engine, err := a.engine()
			if err != nil {
				return err
			}
			if warm {
				if err := engine.Warm(cmd.Context()); err != nil {
					return err
				}
			}

			handler := server.NewWithConfig(engine, server.Config{OutputDir: a.cfg.Output.Dir}, a.logger)
			return server.Run(cmd.Context(), a.cfg.Server.Addr, handler.Routes(), a.logger)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "listen address (overrides config)")
	cmd.Flags().BoolVar(&warm, "warm", false, "detect slots for every frame before serving")

	return cmd
}
