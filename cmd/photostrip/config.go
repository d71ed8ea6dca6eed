package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/menta2k/photostrip/internal/config"
)

func newConfigCmd(a *app) *cobra.Command {
	var save string

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: `Prints the configuration after the config file and PHOTOSTRIP_* environment
overrides are applied. With --save it is written out as a starting point.`,
		Example: `  photostrip config
  photostrip config --save
  photostrip config --save=./photostrip.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if save != "" {
				if err := a.cfg.SaveToFile(save); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "config written to %s\n", save)
				return nil
			}

			data, err := yaml.Marshal(a.cfg)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	cmd.Flags().StringVar(&save, "save", "", "write the configuration to a file")
	cmd.Flags().Lookup("save").NoOptDefVal = config.GetConfigPath()

	return cmd
}
