package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shpitdev/apollo-bulk-enricher/internal/config"
)

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a starter configuration file",
		Long: `Init writes a commented configuration file to the current directory.

Examples:
  # Create .apollo-enricher.yaml in the current directory
  enricher init

  # Write the per-user config instead
  enricher init --user

  # Force overwrite an existing file
  enricher init -f`,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", config.DefaultConfigFile, "Output file path for the configuration")
	cmd.Flags().Bool("user", false, "Write to the XDG config directory instead of --output")
	cmd.Flags().BoolP("force", "f", false, "Overwrite an existing configuration file")

	return cmd
}

func runInitCmd(cmd *cobra.Command, _ []string) error {
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	user, err := cmd.Flags().GetBool("user")
	if err != nil {
		return err
	}
	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}
	if user {
		outputPath = config.XDGConfigFile()
	}

	if err := config.WriteTemplate(outputPath, force); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created configuration file: %s\n", outputPath)
	fmt.Fprintln(out, "\nSet APOLLO_API_KEY in the environment rather than in this file.")
	return nil
}
