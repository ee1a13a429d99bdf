package cmd

import (
	"errors"
	"fmt"
	"net/url"
	"sort"

	"github.com/pulumi/pulumi/sdk/v3/go/auto"

	"github.com/yevai/pulumi-kit/pkg/bastion"
)

var (
	// ErrNoBastionOutputs means the stack never exported bastionInstances.
	ErrNoBastionOutputs = errors.New("stack has no bastionInstances output")
	// ErrBastionNotFound means no bastion was exported under the prefix.
	ErrBastionNotFound = errors.New("bastion not found")
	// ErrAccountMismatch means the active AWS credentials belong to another
	// account than the bastion.
	ErrAccountMismatch = errors.New("aws account mismatch")
)

// BastionEntry is one bastion as published in the stack outputs.
type BastionEntry struct {
	Prefix         string
	EncodedCommand string
	RunCommand     string
}

// Script decodes the connection script.
func (e BastionEntry) Script() (string, error) {
	return bastion.DecodeCommand(e.EncodedCommand)
}

// bastionEntries decodes the bastionInstances output, sorted by prefix.
func bastionEntries(outputs auto.OutputMap) ([]BastionEntry, error) {
	out, ok := outputs[bastion.OutputName]
	if !ok || out.Value == nil {
		return nil, ErrNoBastionOutputs
	}
	raw, ok := out.Value.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("unexpected %s output of type %T", bastion.OutputName, out.Value)
	}

	entries := make([]BastionEntry, 0, len(raw))
	for prefix, v := range raw {
		fields, ok := v.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("unexpected entry for %s of type %T", prefix, v)
		}
		encoded, _ := fields["encodedCommand"].(string)
		run, _ := fields["runCommand"].(string)
		if encoded == "" {
			return nil, fmt.Errorf("bastion %s has no encodedCommand", prefix)
		}
		entries = append(entries, BastionEntry{Prefix: prefix, EncodedCommand: encoded, RunCommand: run})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Prefix < entries[j].Prefix })
	return entries, nil
}

func findBastion(outputs auto.OutputMap, prefix string) (BastionEntry, error) {
	entries, err := bastionEntries(outputs)
	if err != nil {
		return BastionEntry{}, err
	}
	for _, e := range entries {
		if e.Prefix == prefix {
			return e, nil
		}
	}
	return BastionEntry{}, fmt.Errorf("%w: %s", ErrBastionNotFound, prefix)
}

// regionOf extracts the region from a console connect URL.
func regionOf(connectURL string) (string, error) {
	u, err := url.Parse(connectURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse connect url: %w", err)
	}
	region := u.Query().Get("region")
	if region == "" {
		return "", fmt.Errorf("connect url %s has no region", connectURL)
	}
	return region, nil
}
