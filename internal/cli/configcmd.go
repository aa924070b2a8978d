package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return err
		}
		fmt.Printf("# %s/config.yaml\n%s", cfg.Dir(), data)
		if pushURL, err := cfg.PushURL(); err == nil && !cfg.Mock {
			fmt.Printf("# push endpoint: %s\n", pushURL)
		}
		return nil
	},
}
