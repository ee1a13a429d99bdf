package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/yevai/pulumi-kit/internal/common"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage pulumi-kit settings",
	Long: `Manage the settings file (default: ~/.pulumi-kit/config.yaml).

Valid keys: ` + strings.Join(common.SettingsKeys, ", ") + `.
Environment variables (PULUMI_BACKEND_URL, AWS_PROFILE, AWS_REGION) still
override the file at run time.`,
	// The file may not exist yet.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a setting",
	Example: `  # Read state from an S3 bucket
  pulumi-kit config set backendURL s3://state-bucket

  # Qualify short stack names
  pulumi-kit config set organization acme
  pulumi-kit config set project infra`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the settings file",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configShowCmd)
}

func settingsPath() (string, error) {
	if cfgFile != "" {
		return cfgFile, nil
	}
	return common.DefaultSettingsPath()
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	path, err := settingsPath()
	if err != nil {
		return err
	}

	s, err := common.ReadSettingsFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		s = &common.Settings{}
	case err != nil:
		return err
	}

	if err := s.Set(args[0], args[1]); err != nil {
		return err
	}
	if err := s.Save(path); err != nil {
		return err
	}

	color.Green("✓ %s saved to %s", args[0], path)
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	path, err := settingsPath()
	if err != nil {
		return err
	}
	s, err := common.ReadSettingsFile(path)
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	fmt.Fprint(cmd.OutOrStdout(), string(data))
	return nil
}
