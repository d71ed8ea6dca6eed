package main

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

func newFramesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "frames",
		Short: "List the frame templates found under the frames directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := a.engine()
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(engine.Registry().List())
		},
	}
}
