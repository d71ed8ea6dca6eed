package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/menta2k/photostrip"
)

func newComposeCmd(a *app) *cobra.Command {
	var filter, frame, out, printOut string

	cmd := &cobra.Command{
		Use:   "compose PHOTO...",
		Short: "Compose photos into a strip and its print page",
		Example: `  photostrip compose --frame "Pop Art" capture_1.jpg capture_2.jpg capture_3.jpg capture_4.jpg
  photostrip compose --filter bw --frame Noir --out strip.png --print page.png a.jpg b.jpg`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := parseKey(filter, frame)
			if err != nil {
				return err
			}
			engine, err := a.engine()
			if err != nil {
				return err
			}

			res, err := engine.ComposeFiles(cmd.Context(), photostrip.FileRequest{
				Photos:    args,
				Key:       key,
				StripPath: out,
				PrintPath: printOut,
			})
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]any{
				"status":     "processed",
				"path":       res.StripPath,
				"print_path": res.PrintPath,
				"source":     res.Layout.Source,
			})
		},
	}

	cmd.Flags().StringVarP(&filter, "filter", "f", "color", "filter mode: color|bw")
	cmd.Flags().StringVar(&frame, "frame", "", "frame id")
	cmd.Flags().StringVarP(&out, "out", "o", "", "strip output path (default: generated in output dir)")
	cmd.Flags().StringVar(&printOut, "print", "", "print page output path (default: generated in output dir)")

	return cmd
}
