package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/pulumi/pulumi/sdk/v3/go/auto"
	"github.com/pulumi/pulumi/sdk/v3/go/common/tokens"
	"github.com/pulumi/pulumi/sdk/v3/go/common/workspace"
	"golang.org/x/term"

	"github.com/yevai/pulumi-kit/internal/common"
)

const defaultProjectName = "pulumi-kit"

// passthroughEnv is forwarded to the pulumi subprocess.
var passthroughEnv = []string{
	"AWS_ACCESS_KEY_ID",
	"AWS_SECRET_ACCESS_KEY",
	"AWS_SESSION_TOKEN",
	"AWS_REGION",
	"AWS_PROFILE",
	"AWS_S3_ENDPOINT",
	"AWS_S3_USE_PATH_STYLE",
	"AWS_S3_FORCE_PATH_STYLE",
	"PULUMI_ACCESS_TOKEN",
	"PULUMI_CONFIG_PASSPHRASE",
}

// isDIYBackend reports whether url points at self-managed state, which
// encrypts secrets with a passphrase instead of the Pulumi Cloud.
func isDIYBackend(url string) bool {
	for _, scheme := range []string{"s3://", "gs://", "azblob://", "file://"} {
		if strings.HasPrefix(url, scheme) {
			return true
		}
	}
	return false
}

// workspaceEnv collects the environment handed to the pulumi subprocess.
func workspaceEnv(s *common.Settings) map[string]string {
	envVars := make(map[string]string)
	for _, key := range passthroughEnv {
		if val := os.Getenv(key); val != "" {
			envVars[key] = val
		}
	}
	if s.BackendURL != "" {
		envVars["PULUMI_BACKEND_URL"] = s.BackendURL
	}
	if s.AWSProfile != "" {
		envVars["AWS_PROFILE"] = s.AWSProfile
	}
	if s.AWSRegion != "" {
		envVars["AWS_REGION"] = s.AWSRegion
	}
	return envVars
}

func createWorkspace(ctx context.Context, s *common.Settings) (auto.Workspace, error) {
	projectName := s.Project
	if projectName == "" {
		projectName = defaultProjectName
	}

	project := workspace.Project{
		Name:    tokens.PackageName(projectName),
		Runtime: workspace.NewProjectRuntimeInfo("go", nil),
	}
	if s.BackendURL != "" {
		project.Backend = &workspace.ProjectBackend{URL: s.BackendURL}
	}

	envVars := workspaceEnv(s)
	workspaceOpts := []auto.LocalWorkspaceOption{
		auto.Project(project),
	}

	if isDIYBackend(s.BackendURL) {
		workspaceOpts = append(workspaceOpts, auto.SecretsProvider("passphrase"))
		if _, ok := envVars["PULUMI_CONFIG_PASSPHRASE"]; !ok {
			passphrase, err := readPassphrase()
			if err != nil {
				return nil, err
			}
			envVars["PULUMI_CONFIG_PASSPHRASE"] = passphrase
		}
	}

	if len(envVars) > 0 {
		workspaceOpts = append(workspaceOpts, auto.EnvVars(envVars))
	}

	return auto.NewLocalWorkspace(ctx, workspaceOpts...)
}

// readPassphrase prompts for the stack passphrase when stdin is a terminal.
// Otherwise the empty passphrase is used.
func readPassphrase() (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", nil
	}
	fmt.Fprint(os.Stderr, "Stack passphrase: ")
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read passphrase: %w", err)
	}
	return string(b), nil
}

func newSpinner(suffix string) *spinner.Spinner {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	s.Suffix = " " + suffix
	return s
}

// fetchOutputs reads the outputs of stack, secrets included.
func fetchOutputs(ctx context.Context, stack string) (auto.OutputMap, error) {
	fullyQualifiedStackName, err := settings.StackName(stack)
	if err != nil {
		return nil, err
	}

	// The workspace may prompt for a passphrase, so it comes before the spinner.
	ws, err := createWorkspace(ctx, settings)
	if err != nil {
		return nil, fmt.Errorf("failed to create workspace: %w", err)
	}

	s := newSpinner(fmt.Sprintf("Reading outputs of %s...", fullyQualifiedStackName))
	if term.IsTerminal(int(os.Stderr.Fd())) {
		s.Start()
	}
	defer s.Stop()

	st, err := auto.SelectStack(ctx, fullyQualifiedStackName, ws)
	if err != nil {
		return nil, fmt.Errorf("failed to select stack '%s': %w", fullyQualifiedStackName, err)
	}

	outputs, err := st.Outputs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get stack outputs: %w", err)
	}
	return outputs, nil
}
