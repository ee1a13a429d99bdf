package bastion

import (
	"fmt"

	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws/ec2"
	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws/ssm"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"
)

const (
	// DefaultUbuntuSSMPath is the public parameter holding the current
	// Ubuntu minimal image id.
	DefaultUbuntuSSMPath = "/aws/service/canonical/ubuntu/server-minimal/noble/stable/current/amd64/hvm/ebs-gp3/ami-id"

	al2Owner       = "amazon"
	al2NamePattern = "amzn2-ami-hvm-*-x86_64-gp2"
)

// ResolveAMI returns the image id for dist. Ubuntu images come from an SSM
// parameter (ssmPathOverride replaces the default path); Amazon Linux 2 is
// the most recent Amazon-owned image matching the AL2 name pattern.
func ResolveAMI(ctx *pulumi.Context, dist OSDistribution, ssmPathOverride string) (string, error) {
	if dist.Normalize() == Ubuntu {
		path := ssmPathOverride
		if path == "" {
			path = DefaultUbuntuSSMPath
		}
		param, err := ssm.LookupParameter(ctx, &ssm.LookupParameterArgs{Name: path})
		if err != nil {
			return "", fmt.Errorf("failed to read ami parameter %s: %w", path, err)
		}
		return param.Value, nil
	}

	ami, err := ec2.LookupAmi(ctx, &ec2.LookupAmiArgs{
		MostRecent: pulumi.BoolRef(true),
		Owners:     []string{al2Owner},
		Filters: []ec2.GetAmiFilter{
			{
				Name:   "name",
				Values: []string{al2NamePattern},
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to look up amazon linux 2 ami: %w", err)
	}
	return ami.Id, nil
}
