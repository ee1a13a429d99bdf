// Package bastion provisions an SSM-reachable EC2 bastion host running a VNC
// desktop, and renders the scripts an operator uses to reach it.
package bastion

import (
	"fmt"
	"strings"
)

// OSDistribution selects the image family and boot script of a bastion.
type OSDistribution string

const (
	// AL2 is Amazon Linux 2. It is the default and the zero value maps to it.
	AL2 OSDistribution = "al2"
	// Ubuntu is Ubuntu Server minimal (noble).
	Ubuntu OSDistribution = "ubuntu"
)

// ParseOSDistribution maps a config string onto an OSDistribution. An empty
// string yields AL2.
func ParseOSDistribution(s string) (OSDistribution, error) {
	switch OSDistribution(strings.ToLower(strings.TrimSpace(s))) {
	case "", AL2:
		return AL2, nil
	case Ubuntu:
		return Ubuntu, nil
	default:
		return "", fmt.Errorf("unsupported os distribution %q (supported: al2, ubuntu)", s)
	}
}

// Normalize returns AL2 for the zero value.
func (d OSDistribution) Normalize() OSDistribution {
	if d == Ubuntu {
		return Ubuntu
	}
	return AL2
}

// DefaultUser is the interactive login account of the distribution.
func (d OSDistribution) DefaultUser() string {
	if d.Normalize() == Ubuntu {
		return "ubuntu"
	}
	return "ec2-user"
}
