// Command aws-ec2-bastion is a Pulumi program that puts one bastion host in
// the default VPC and publishes how to connect to it.
package main

import (
	"fmt"
	"sort"

	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws/ec2"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi/config"

	"github.com/yevai/pulumi-kit/pkg/bastion"
)

const defaultPrefix = "bastion"

func main() {
	pulumi.Run(run)
}

func run(ctx *pulumi.Context) error {
	cfg := config.New(ctx, "")

	prefix := cfg.Get("resourcePrefix")
	if prefix == "" {
		prefix = defaultPrefix
	}
	dist, err := bastion.ParseOSDistribution(cfg.Get("osDistribution"))
	if err != nil {
		return err
	}

	vpc, err := ec2.LookupVpc(ctx, &ec2.LookupVpcArgs{Default: pulumi.BoolRef(true)})
	if err != nil {
		return fmt.Errorf("failed to look up default vpc: %w", err)
	}
	ctx.Export("defaultVpcId", pulumi.String(vpc.Id))

	subnets, err := ec2.GetSubnets(ctx, &ec2.GetSubnetsArgs{
		Filters: []ec2.GetSubnetsFilter{
			{Name: "vpc-id", Values: []string{vpc.Id}},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to list subnets of %s: %w", vpc.Id, err)
	}
	if len(subnets.Ids) == 0 {
		return fmt.Errorf("default vpc %s has no subnets", vpc.Id)
	}
	ids := append([]string(nil), subnets.Ids...)
	sort.Strings(ids)

	opts := bastion.Options{
		OSDistribution:  dist,
		SSMPathOverride: cfg.Get("ssmPathOverride"),
	}
	if instanceType := cfg.Get("instanceType"); instanceType != "" {
		opts.InstanceArgs = &ec2.InstanceArgs{InstanceType: pulumi.String(instanceType)}
	}

	inst, err := bastion.NewInstance(ctx, prefix, pulumi.String(ids[0]), opts, nil)
	if err != nil {
		return err
	}

	exports := bastion.NewExports()
	if err := exports.Add(inst); err != nil {
		return err
	}
	exports.Export(ctx)
	return nil
}
