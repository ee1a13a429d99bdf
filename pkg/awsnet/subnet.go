package awsnet

import (
	"fmt"

	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws/ec2"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"

	"github.com/yevai/pulumi-kit/pkg/pulumiutil"
)

// SubnetHandleResult is returned by SubnetIDByAvailabilityZone.
type SubnetHandleResult = pulumiutil.Result[*pulumiutil.Handle, *pulumiutil.Handle]

// SubnetIDByAvailabilityZone finds the subnet of vpcID in availabilityZone
// and wraps its id in a handle named <prefix>-subnet-<az> usable as a
// dependency.
func SubnetIDByAvailabilityZone(
	ctx *pulumi.Context,
	resourcePrefix string,
	vpcID pulumi.StringInput,
	availabilityZone string,
) (SubnetHandleResult, error) {
	subnet := ec2.LookupSubnetOutput(ctx, ec2.LookupSubnetOutputArgs{
		AvailabilityZone: pulumi.String(availabilityZone),
		Filters: ec2.GetSubnetFilterArray{
			ec2.GetSubnetFilterArgs{
				Name:   pulumi.String("vpc-id"),
				Values: pulumi.StringArray{vpcID},
			},
		},
	})

	h, err := pulumiutil.AsResource(ctx, fmt.Sprintf("%s-subnet-%s", resourcePrefix, availabilityZone), subnet.Id())
	if err != nil {
		return SubnetHandleResult{}, err
	}
	return pulumiutil.Same(h), nil
}

// SubnetVpcID reads the existing subnet subnetID and returns the id of the
// VPC it belongs to. The output fails if the subnet reports no VPC.
func SubnetVpcID(ctx *pulumi.Context, resourcePrefix string, subnetID pulumi.StringInput) (pulumi.StringOutput, error) {
	id := subnetID.ToStringOutput().ApplyT(func(s string) pulumi.ID {
		return pulumi.ID(s)
	}).(pulumi.IDOutput)

	subnet, err := ec2.GetSubnet(ctx, fmt.Sprintf("%s-subnet", resourcePrefix), id, nil)
	if err != nil {
		return pulumi.StringOutput{}, fmt.Errorf("failed to read subnet: %w", err)
	}

	return pulumi.All(subnet.ID(), subnet.VpcId).ApplyT(func(args []interface{}) (string, error) {
		vpcID := args[1].(string)
		if vpcID == "" {
			return "", fmt.Errorf("subnet %s has no parent vpc", args[0])
		}
		return vpcID, nil
	}).(pulumi.StringOutput), nil
}
