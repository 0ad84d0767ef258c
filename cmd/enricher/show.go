package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const redactedValue = "<redacted>"

// NewShowCmd creates the show command.
func NewShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Long:  `Show prints the configuration after file, environment and flag overrides. API keys are redacted.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, path, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.Apollo.APIKey != "" {
				cfg.Apollo.APIKey = redactedValue
			}
			if cfg.Gemini.APIKey != "" {
				cfg.Gemini.APIKey = redactedValue
			}

			b, err := yaml.Marshal(cfg)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if path == "" {
				path = "(none)"
			}
			fmt.Fprintf(out, "# config file: %s\n", path)
			_, err = out.Write(b)
			return err
		},
	}
}
