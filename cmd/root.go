package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/yevai/pulumi-kit/internal/common"
)

var (
	cfgFile     string
	stackName   string
	verbose     bool
	autoApprove bool

	settings *common.Settings

	// Version information - set by main.go
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
	BuiltBy = "unknown"
)

// SetVersionInfo sets the version information from main.go
func SetVersionInfo(version, commit, date, builtBy string) {
	Version = version
	Commit = commit
	Date = date
	BuiltBy = builtBy
}

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "pulumi-kit",
	Short: "Reach the bastion hosts of a Pulumi stack",
	Long: `pulumi-kit reads the bastionInstances output of a Pulumi stack and opens
an SSM port forward to the VNC desktop of a bastion host.

Stacks are read through the Pulumi Automation API; the Pulumi CLI, the AWS
CLI and the session manager plugin must be installed.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadSettings,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	rootCmd.Version = Version
	rootCmd.SetVersionTemplate(versionText())
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Settings file (default: ~/.pulumi-kit/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&stackName, "stack", "s", "", "Pulumi stack name, short or <org>/<project>/<stack>")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVarP(&autoApprove, "yes", "y", false, "Auto-approve without prompting")
}

func versionText() string {
	return fmt.Sprintf(`pulumi-kit %s
  Commit:    %s
  Built:     %s
  Built by:  %s
`, Version, Commit, Date, BuiltBy)
}

func loadSettings(cmd *cobra.Command, args []string) error {
	s, err := common.LoadSettings(cfgFile)
	if err != nil {
		return err
	}
	settings = s
	return nil
}
