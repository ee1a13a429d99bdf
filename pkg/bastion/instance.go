package bastion

import (
	"fmt"

	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws/ec2"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"

	"github.com/yevai/pulumi-kit/pkg/awsiam"
	"github.com/yevai/pulumi-kit/pkg/awsnet"
	"github.com/yevai/pulumi-kit/pkg/pulumiutil"
)

// Instance defaults.
const (
	DefaultInstanceType   = "t3.medium"
	DefaultRootVolumeType = "gp3"
	DefaultRootVolumeSize = 8
)

// Instance is the result of NewInstance.
type Instance struct {
	pulumiutil.Result[*ec2.Instance, *ec2.Instance]

	Prefix string
	Plan   Plan

	Password pulumi.StringOutput
	// EncodedCommand is the base64 connection script.
	EncodedCommand pulumi.StringOutput
	// RunCommand fetches EncodedCommand from the stack outputs and runs it.
	RunCommand pulumi.StringOutput

	// SecurityGroup and Profile are nil when the caller supplied them.
	SecurityGroup *ec2.SecurityGroup
	Profile       *awsiam.SSMProfile
}

// NewInstance provisions a bastion host in subnetID.
//
// Any step failing aborts the call; resources already registered are left
// to the engine.
func NewInstance(
	ctx *pulumi.Context,
	resourcePrefix string,
	subnetID pulumi.StringInput,
	opts Options,
	waitFor []pulumi.Resource,
) (*Instance, error) {
	plan := PlanFor(opts)
	inst := &Instance{Prefix: resourcePrefix, Plan: plan}

	password, err := pulumiutil.Password(ctx, fmt.Sprintf("%s-password", resourcePrefix), pulumiutil.DependsOn(waitFor)...)
	if err != nil {
		return nil, err
	}
	inst.Password = password

	profile := plan.Profile.Value()
	if plan.Profile.IsProvided() {
		ctx.Log.Debug(fmt.Sprintf("%s: reusing instance profile", resourcePrefix), nil)
	} else {
		p, err := awsiam.NewBastionSSMProfile(ctx, resourcePrefix, waitFor)
		if err != nil {
			return nil, err
		}
		inst.Profile = p
		profile = p.FinishedOn.Name
	}

	groups := plan.SecurityGroups.Value()
	if plan.SecurityGroups.IsProvided() {
		ctx.Log.Debug(fmt.Sprintf("%s: reusing security groups", resourcePrefix), nil)
	} else {
		vpcID, err := awsnet.SubnetVpcID(ctx, resourcePrefix, subnetID)
		if err != nil {
			return nil, err
		}
		sg, err := awsnet.NewBastionSecurityGroup(ctx, resourcePrefix, vpcID, waitFor)
		if err != nil {
			return nil, err
		}
		inst.SecurityGroup = sg.Result
		groups = pulumi.StringArray{sg.Result.ID()}
	}

	ami, err := ResolveAMI(ctx, plan.OS, opts.SSMPathOverride)
	if err != nil {
		return nil, err
	}
	ctx.Log.Info(fmt.Sprintf("%s: using %s image %s", resourcePrefix, plan.OS, ami), nil)

	args := mergeInstanceArgs(ec2.InstanceArgs{
		Ami:                      pulumi.String(ami),
		InstanceType:             pulumi.String(DefaultInstanceType),
		SubnetId:                 subnetID.ToStringOutput(),
		AssociatePublicIpAddress: pulumi.Bool(true),
		UserData:                 UserData(plan.OS, password),
		MetadataOptions: &ec2.InstanceMetadataOptionsArgs{
			HttpEndpoint: pulumi.String("enabled"),
			HttpTokens:   pulumi.String("required"),
		},
		RootBlockDevice: &ec2.InstanceRootBlockDeviceArgs{
			VolumeType: pulumi.String(DefaultRootVolumeType),
			VolumeSize: pulumi.Int(DefaultRootVolumeSize),
			Encrypted:  pulumi.Bool(true),
		},
		Monitoring:            pulumi.Bool(true),
		DisableApiTermination: pulumi.Bool(false),
		Tags: pulumi.StringMap{
			"Name": pulumi.String(resourcePrefix),
		},
	}, opts.InstanceArgs)
	// The resolved choices win over whatever the overlay carried.
	args.IamInstanceProfile = profile
	args.VpcSecurityGroupIds = groups

	instance, err := ec2.NewInstance(ctx, fmt.Sprintf("%s-bastion", resourcePrefix), &args, pulumiutil.DependsOn(waitFor)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create bastion instance %s: %w", resourcePrefix, err)
	}
	inst.Result = pulumiutil.Same(instance)

	script, err := ConnectionScript(ctx, instance.ID(), password, plan.OS.DefaultUser())
	if err != nil {
		return nil, err
	}
	inst.EncodedCommand = script.ApplyT(EncodeCommand).(pulumi.StringOutput)
	inst.RunCommand = RunCommand(ctx, resourcePrefix)

	return inst, nil
}

// Outputs is the export entry of the instance.
func (i *Instance) Outputs() pulumi.Map {
	return pulumi.Map{
		"encodedCommand": i.EncodedCommand,
		"runCommand":     i.RunCommand,
	}
}
