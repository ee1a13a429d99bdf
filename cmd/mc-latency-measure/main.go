// Command mc-latency-measure is a Pulumi program that places one bastion in
// every availability zone of the default VPC. All bastions share one
// security group and one instance profile.
package main

import (
	"fmt"

	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws"
	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws/ec2"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi/config"

	"github.com/yevai/pulumi-kit/pkg/awsiam"
	"github.com/yevai/pulumi-kit/pkg/awsnet"
	"github.com/yevai/pulumi-kit/pkg/bastion"
)

func main() {
	pulumi.Run(run)
}

// availabilityZones returns the configured zones, or every available zone
// of the region.
func availabilityZones(ctx *pulumi.Context, cfg *config.Config) ([]string, error) {
	var zones []string
	if err := cfg.TryObject("availabilityZones", &zones); err == nil && len(zones) > 0 {
		return zones, nil
	}

	available, err := aws.GetAvailabilityZones(ctx, &aws.GetAvailabilityZonesArgs{
		State: pulumi.StringRef("available"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list availability zones: %w", err)
	}
	return available.Names, nil
}

func run(ctx *pulumi.Context) error {
	cfg := config.New(ctx, "")

	vpc, err := ec2.LookupVpc(ctx, &ec2.LookupVpcArgs{Default: pulumi.BoolRef(true)})
	if err != nil {
		return fmt.Errorf("failed to look up default vpc: %w", err)
	}
	vpcID := pulumi.String(vpc.Id)

	zones, err := availabilityZones(ctx, cfg)
	if err != nil {
		return err
	}

	sg, err := awsnet.NewBastionSecurityGroup(ctx, "bastionSg", vpcID, nil)
	if err != nil {
		return err
	}
	profile, err := awsiam.NewBastionSSMProfile(ctx, "bastionProfile", nil)
	if err != nil {
		return err
	}

	exports := bastion.NewExports()
	for _, az := range zones {
		subnet, err := awsnet.SubnetIDByAvailabilityZone(ctx, "latency", vpcID, az)
		if err != nil {
			return err
		}

		inst, err := bastion.NewInstance(ctx, fmt.Sprintf("bastion-%s", az), subnet.Result.StringValue(), bastion.Options{
			InstanceProfile:  profile.FinishedOn.Name,
			SecurityGroupIDs: pulumi.StringArray{sg.Result.ID()},
		}, []pulumi.Resource{sg.FinishedOn, profile.FinishedOn})
		if err != nil {
			return err
		}
		if err := exports.Add(inst); err != nil {
			return err
		}
	}

	ctx.Log.Info(fmt.Sprintf("placing %d bastions across %v", len(zones), zones), nil)
	exports.Export(ctx)
	return nil
}
