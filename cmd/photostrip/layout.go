package main

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

func newLayoutCmd(a *app) *cobra.Command {
	var filter, frame string
	var pixels bool

	cmd := &cobra.Command{
		Use:   "layout",
		Short: "Print the preview layout for a frame",
		Example: `  photostrip layout --frame "Pop Art"
  photostrip layout --filter bw --frame Noir --pixels`,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := parseKey(filter, frame)
			if err != nil {
				return err
			}
			engine, err := a.engine()
			if err != nil {
				return err
			}

			l, err := engine.Layout(key)
			if err != nil {
				return err
			}

			out := map[string]any{
				"source": l.Source,
				"family": l.Family,
				"slots":  l.Percentages(),
			}
			if l.Reason != "" {
				out["reason"] = l.Reason
			}
			if pixels {
				out["rects"] = l.Slots.Rects
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}

	cmd.Flags().StringVarP(&filter, "filter", "f", "color", "filter mode: color|bw")
	cmd.Flags().StringVar(&frame, "frame", "", "frame id")
	cmd.Flags().BoolVar(&pixels, "pixels", false, "include canonical pixel rects")

	return cmd
}
