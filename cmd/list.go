package cmd

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/yevai/pulumi-kit/pkg/bastion"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the bastions exported by a stack",
	Example: `  # List bastions of a stack
  pulumi-kit list --stack acme/infra/dev

  # Include instance ids and usernames
  pulumi-kit list -s dev -v`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	outputs, err := fetchOutputs(ctx, stackName)
	if err != nil {
		return err
	}
	entries, err := bastionEntries(outputs)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		color.Yellow("\n⚠️  No bastions found")
		return nil
	}
	return printBastions(cmd, entries)
}

func printBastions(cmd *cobra.Command, entries []BastionEntry) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	if verbose {
		fmt.Fprintln(w, "PREFIX\tINSTANCE\tUSER\tRUN COMMAND")
	} else {
		fmt.Fprintln(w, "PREFIX\tRUN COMMAND")
	}

	for _, e := range entries {
		if !verbose {
			fmt.Fprintf(w, "%s\t%s\n", e.Prefix, e.RunCommand)
			continue
		}
		script, err := e.Script()
		if err != nil {
			return err
		}
		params, err := bastion.ParseConnectionScript(script)
		if err != nil {
			return fmt.Errorf("bastion %s: %w", e.Prefix, err)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.Prefix, params.InstanceID, params.Username, e.RunCommand)
	}
	return w.Flush()
}
