// Package awsnet builds the EC2 networking pieces a bastion host needs.
package awsnet

import (
	"fmt"

	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws/ec2"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"

	"github.com/yevai/pulumi-kit/pkg/pulumiutil"
)

// SecurityGroupResult is returned by NewBastionSecurityGroup.
type SecurityGroupResult = pulumiutil.Result[*ec2.SecurityGroup, *ec2.SecurityGroup]

// NewBastionSecurityGroup creates a security group in vpcID with no inbound
// rules and a single rule allowing all outbound traffic. Access to the
// bastion goes through SSM, so nothing needs to be open inbound.
func NewBastionSecurityGroup(
	ctx *pulumi.Context,
	resourcePrefix string,
	vpcID pulumi.StringInput,
	waitFor []pulumi.Resource,
) (SecurityGroupResult, error) {
	sg, err := ec2.NewSecurityGroup(ctx, fmt.Sprintf("%s-sg", resourcePrefix), &ec2.SecurityGroupArgs{
		VpcId:   vpcID,
		Ingress: ec2.SecurityGroupIngressArray{},
		Egress: ec2.SecurityGroupEgressArray{
			&ec2.SecurityGroupEgressArgs{
				Protocol:   pulumi.String("-1"),
				FromPort:   pulumi.Int(0),
				ToPort:     pulumi.Int(0),
				CidrBlocks: pulumi.StringArray{pulumi.String("0.0.0.0/0")},
			},
		},
	}, pulumiutil.DependsOn(waitFor)...)
	if err != nil {
		return SecurityGroupResult{}, fmt.Errorf("failed to create security group: %w", err)
	}

	return pulumiutil.Same(sg), nil
}
