package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/yevai/pulumi-kit/pkg/bastion"
)

var (
	printOnly  bool
	skipChecks bool
)

var connectCmd = &cobra.Command{
	Use:   "connect <prefix>",
	Short: "Open a VNC port forward to a bastion",
	Long: `Read the connection script of a bastion from the stack outputs and run it.

Before running the script the active AWS account is compared with the
bastion's account and the instance state is checked.`,
	Example: `  # Connect to the bastion exported as bastion-a
  pulumi-kit connect bastion-a --stack acme/infra/dev

  # Only print the script
  pulumi-kit connect bastion-a -s dev --print`,
	Args: cobra.ExactArgs(1),
	RunE: runConnect,
}

func init() {
	rootCmd.AddCommand(connectCmd)
	connectCmd.Flags().BoolVar(&printOnly, "print", false, "Print the connection script instead of running it")
	connectCmd.Flags().BoolVar(&skipChecks, "skip-checks", false, "Skip the AWS account and instance state checks")
}

func runConnect(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	prefix := args[0]

	outputs, err := fetchOutputs(ctx, stackName)
	if err != nil {
		return err
	}
	entry, err := findBastion(outputs, prefix)
	if err != nil {
		return err
	}
	script, err := entry.Script()
	if err != nil {
		return err
	}

	if printOnly {
		fmt.Fprint(cmd.OutOrStdout(), script)
		return nil
	}

	params, err := bastion.ParseConnectionScript(script)
	if err != nil {
		return err
	}
	if verbose {
		color.Cyan("Instance %s in account %s, user %s", params.InstanceID, params.AccountID, params.Username)
	}

	if !skipChecks {
		clients, err := newAWSClients(ctx, settings)
		if err != nil {
			return err
		}
		state, err := checkBastion(ctx, clients, params)
		if err != nil {
			return err
		}
		if state != "running" {
			color.Yellow("⚠️  Instance %s is %s", params.InstanceID, state)
			if !autoApprove && !confirm(os.Stdin, cmd.OutOrStdout(), "Connect anyway?") {
				return fmt.Errorf("aborted")
			}
		}
	}

	color.Green("✓ Connecting to %s", prefix)
	return runScript(ctx, script)
}

// runScript executes script with bash attached to the terminal.
func runScript(ctx context.Context, script string) error {
	f, err := os.CreateTemp("", "pulumi-kit-connect-*.sh")
	if err != nil {
		return fmt.Errorf("failed to create script file: %w", err)
	}
	defer os.Remove(f.Name())

	if _, err := f.WriteString(script); err != nil {
		f.Close()
		return fmt.Errorf("failed to write script file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write script file: %w", err)
	}

	c := exec.CommandContext(ctx, "bash", f.Name())
	c.Stdin = os.Stdin
	c.Stdout = os.Stdout
	c.Stderr = os.Stderr
	if err := c.Run(); err != nil {
		return fmt.Errorf("connection script failed: %w", err)
	}
	return nil
}

func confirm(in io.Reader, out io.Writer, question string) bool {
	fmt.Fprintf(out, "%s [y/N]: ", question)
	answer, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && answer == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}
