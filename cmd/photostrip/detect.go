package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newDetectCmd(a *app) *cobra.Command {
	var filter, frame, overlay string

	cmd := &cobra.Command{
		Use:   "detect",
		Short: "Detect photo slots in a frame template",
		Long: `Runs slot detection on one frame template and prints the native-space
rectangles. Unlike layout, detect never falls back to the legacy table.`,
		Example: `  photostrip detect --frame "Pop Art" --overlay debug/pop-art.png`,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := parseKey(filter, frame)
			if err != nil {
				return err
			}
			engine, err := a.engine()
			if err != nil {
				return err
			}

			slots, err := engine.DetectSlots(key)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%s: %d slot(s) in %dx%d template\n", key, slots.Len(), slots.Width, slots.Height)
			for i, r := range slots.Rects {
				fmt.Fprintf(w, "  %d: x=%d y=%d w=%d h=%d\n", i+1, r.X, r.Y, r.W, r.H)
			}

			if overlay != "" {
				if err := engine.WriteSlotOverlay(key, overlay); err != nil {
					return err
				}
				fmt.Fprintf(w, "overlay written to %s\n", overlay)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&filter, "filter", "f", "color", "filter mode: color|bw")
	cmd.Flags().StringVar(&frame, "frame", "", "frame id")
	cmd.Flags().StringVar(&overlay, "overlay", "", "write a debug image with the detected slots outlined")

	return cmd
}
