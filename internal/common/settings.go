// Package common holds the operator settings shared by every CLI command.
package common

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultOrganization is the organization DIY backends (S3, local files)
// use for every stack.
const DefaultOrganization = "organization"

// Settings configures how the CLI reaches Pulumi state and AWS.
type Settings struct {
	BackendURL   string `yaml:"backendURL,omitempty"`
	Organization string `yaml:"organization,omitempty"`
	Project      string `yaml:"project,omitempty"`
	AWSProfile   string `yaml:"awsProfile,omitempty"`
	AWSRegion    string `yaml:"awsRegion,omitempty"`
}

// DefaultSettingsPath returns ~/.pulumi-kit/config.yaml.
func DefaultSettingsPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".pulumi-kit", "config.yaml"), nil
}

// LoadSettings reads the settings file at path and applies environment
// overrides. An empty path reads the default file, which may be absent.
func LoadSettings(path string) (*Settings, error) {
	s, err := ReadSettingsFile(path)
	if err != nil {
		return nil, err
	}

	s.ApplyEnv()
	if s.Organization == "" {
		s.Organization = DefaultOrganization
	}
	return s, nil
}

// ReadSettingsFile reads the settings file as written, without environment
// overrides or defaults. An empty path reads the default file, which may be
// absent.
func ReadSettingsFile(path string) (*Settings, error) {
	explicit := path != ""
	if !explicit {
		p, err := DefaultSettingsPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	s := &Settings{}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, s); err != nil {
			return nil, fmt.Errorf("failed to parse settings %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("failed to read settings %s: %w", path, err)
	}
	return s, nil
}

// ApplyEnv lets the standard Pulumi and AWS environment variables override
// file values.
func (s *Settings) ApplyEnv() {
	if v := os.Getenv("PULUMI_BACKEND_URL"); v != "" {
		s.BackendURL = v
	}
	if v := os.Getenv("AWS_PROFILE"); v != "" {
		s.AWSProfile = v
	}
	if v := os.Getenv("AWS_REGION"); v != "" {
		s.AWSRegion = v
	}
}

// SettingsKeys lists the keys accepted by Set, in file order.
var SettingsKeys = []string{"backendURL", "organization", "project", "awsProfile", "awsRegion"}

// Set assigns value to the setting named key.
func (s *Settings) Set(key, value string) error {
	switch key {
	case "backendURL":
		s.BackendURL = value
	case "organization":
		s.Organization = value
	case "project":
		s.Project = value
	case "awsProfile":
		s.AWSProfile = value
	case "awsRegion":
		s.AWSRegion = value
	default:
		return fmt.Errorf("unknown setting %q (valid: %s)", key, strings.Join(SettingsKeys, ", "))
	}
	return nil
}

// StackName qualifies stack as <organization>/<project>/<stack>. Names that
// already contain a slash are returned unchanged.
func (s *Settings) StackName(stack string) (string, error) {
	if stack == "" {
		return "", fmt.Errorf("stack name is required")
	}
	if strings.Contains(stack, "/") {
		return stack, nil
	}
	if s.Project == "" {
		return "", fmt.Errorf("project is not set: pass a fully qualified stack name or set project in the settings file")
	}
	return fmt.Sprintf("%s/%s/%s", s.Organization, s.Project, stack), nil
}

// Save writes the settings to path, creating the directory if needed.
func (s *Settings) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	return nil
}
