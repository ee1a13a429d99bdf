package bastion

import (
	"fmt"
	"strings"
	"testing"

	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws/ec2"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yevai/pulumi-kit/internal/pulumitest"
	"github.com/yevai/pulumi-kit/pkg/pulumiutil"
)

func TestNewInstance_Defaults(t *testing.T) {
	mocks := pulumitest.New()
	encoded := pulumitest.NewCapture[string]()
	run := pulumitest.NewCapture[string]()
	var stackRef string

	err := pulumi.RunErr(func(ctx *pulumi.Context) error {
		stackRef = pulumiutil.StackRef(ctx)

		inst, err := NewInstance(ctx, "bastion-a", pulumi.String("subnet-123"), Options{}, nil)
		require.NoError(t, err)

		assert.Same(t, inst.Result.Result, inst.FinishedOn)
		assert.NotNil(t, inst.SecurityGroup, "a security group should be created")
		assert.NotNil(t, inst.Profile, "an instance profile should be created")
		assert.False(t, inst.Plan.Profile.IsProvided())
		assert.False(t, inst.Plan.SecurityGroups.IsProvided())

		encoded.Watch(inst.EncodedCommand)
		run.Watch(inst.RunCommand)

		exports := NewExports()
		require.NoError(t, exports.Add(inst))
		exports.Export(ctx)
		return nil
	}, mocks.Options("project", "stack"))
	require.NoError(t, err)

	assert.Len(t, mocks.ByType("ec2/securityGroup:SecurityGroup"), 1)
	assert.Len(t, mocks.ByType("iam/instanceProfile:InstanceProfile"), 1)
	require.Len(t, mocks.ByType("ec2/instance:Instance"), 1)

	profile, ok := mocks.Named("bastion-a-ssm-profile")
	require.True(t, ok)
	assert.True(t, profile.DependsOn("bastion-a-ssm-attachment"), "profile must wait on the policy attachment")

	sg, ok := mocks.Named("bastion-a-sg")
	require.True(t, ok)
	assert.Equal(t, pulumitest.VpcID, sg.String("vpcId"), "security group should land in the subnet's vpc")

	subnet, ok := mocks.Named("bastion-a-subnet")
	require.True(t, ok)
	assert.Equal(t, "subnet-123", subnet.ID)

	instance, ok := mocks.Named("bastion-a-bastion")
	require.True(t, ok)
	assert.Equal(t, pulumitest.AL2AMI, instance.String("ami"))
	assert.Equal(t, DefaultInstanceType, instance.String("instanceType"))
	assert.Equal(t, "subnet-123", instance.String("subnetId"))
	assert.True(t, instance.Inputs["associatePublicIpAddress"].BoolValue())
	assert.True(t, instance.Inputs["monitoring"].BoolValue())
	assert.False(t, instance.Inputs["disableApiTermination"].BoolValue())
	assert.Equal(t, "bastion-a-ssm-profile-name", instance.String("iamInstanceProfile"))
	assert.Equal(t, "bastion-a", pulumitest.StringProp(instance.Object("tags")["Name"]))

	groups := instance.Inputs["vpcSecurityGroupIds"].ArrayValue()
	require.Len(t, groups, 1)
	assert.Equal(t, "bastion-a-sg_id", pulumitest.StringProp(groups[0]))

	metadata := instance.Object("metadataOptions")
	assert.Equal(t, "enabled", pulumitest.StringProp(metadata["httpEndpoint"]))
	assert.Equal(t, "required", pulumitest.StringProp(metadata["httpTokens"]))

	root := instance.Object("rootBlockDevice")
	assert.Equal(t, "gp3", pulumitest.StringProp(root["volumeType"]))
	assert.Equal(t, float64(8), root["volumeSize"].NumberValue())
	assert.True(t, root["encrypted"].BoolValue())

	userData := instance.String("userData")
	assert.Contains(t, userData, "echo \"ec2-user:"+pulumitest.MockPassword+"\" | chpasswd")

	script, err := DecodeCommand(encoded.Get(t))
	require.NoError(t, err)
	assert.Contains(t, script, "bastion-a-bastion_id")
	assert.Contains(t, script, ConnectURL(pulumitest.Region, "bastion-a-bastion_id"))
	assert.Contains(t, script, "Username: ec2-user")
	assert.Contains(t, script, pulumitest.AccountID)

	command := run.Get(t)
	assert.Equal(t, RunCommandFor(stackRef, "bastion-a"), command)
	assert.Contains(t, command, "bastion-a")
}

func TestNewInstance_UbuntuUser(t *testing.T) {
	mocks := pulumitest.New()
	encoded := pulumitest.NewCapture[string]()

	err := pulumi.RunErr(func(ctx *pulumi.Context) error {
		inst, err := NewInstance(ctx, "bastion-u", pulumi.String("subnet-123"), Options{
			OSDistribution:  Ubuntu,
			SSMPathOverride: "/custom/ubuntu",
		}, nil)
		require.NoError(t, err)
		encoded.Watch(inst.EncodedCommand)
		return nil
	}, mocks.Options("project", "stack"))
	require.NoError(t, err)

	instance, ok := mocks.Named("bastion-u-bastion")
	require.True(t, ok)
	assert.Equal(t, pulumitest.UbuntuAMI, instance.String("ami"))
	assert.Contains(t, instance.String("userData"), "echo \"ubuntu:"+pulumitest.MockPassword+"\" | chpasswd")
	assert.NotContains(t, instance.String("userData"), "ec2-user")

	calls := mocks.CallsTo(getParameterToken)
	require.Len(t, calls, 1)
	assert.Equal(t, "/custom/ubuntu", calls[0].Args["name"].StringValue())

	script, err := DecodeCommand(encoded.Get(t))
	require.NoError(t, err)
	assert.Contains(t, script, "Username: ubuntu")
}

func TestNewInstance_ReusesProvidedProfileAndGroups(t *testing.T) {
	mocks := pulumitest.New()

	err := pulumi.RunErr(func(ctx *pulumi.Context) error {
		inst, err := NewInstance(ctx, "bastion-r", pulumi.String("subnet-123"), Options{
			InstanceProfile:  pulumi.String("existing-profile"),
			SecurityGroupIDs: pulumi.StringArray{pulumi.String("sg-existing")},
		}, nil)
		require.NoError(t, err)
		assert.Nil(t, inst.SecurityGroup)
		assert.Nil(t, inst.Profile)
		return nil
	}, mocks.Options("project", "stack"))
	require.NoError(t, err)

	assert.Empty(t, mocks.ByType("ec2/securityGroup:SecurityGroup"))
	assert.Empty(t, mocks.ByType("iam/instanceProfile:InstanceProfile"))
	assert.Empty(t, mocks.ByType("iam/role:Role"))
	_, readSubnet := mocks.Named("bastion-r-subnet")
	assert.False(t, readSubnet, "no subnet lookup is needed when groups are supplied")

	instance, ok := mocks.Named("bastion-r-bastion")
	require.True(t, ok)
	assert.Equal(t, "existing-profile", instance.String("iamInstanceProfile"))
	groups := instance.Inputs["vpcSecurityGroupIds"].ArrayValue()
	require.Len(t, groups, 1)
	assert.Equal(t, "sg-existing", pulumitest.StringProp(groups[0]))
}

func TestNewInstance_NilGroupsCreateSecurityGroup(t *testing.T) {
	mocks := pulumitest.New()
	var groups pulumi.StringArray

	err := pulumi.RunErr(func(ctx *pulumi.Context) error {
		inst, err := NewInstance(ctx, "bastion-n", pulumi.String("subnet-123"), Options{
			SecurityGroupIDs: groups,
		}, nil)
		require.NoError(t, err)
		assert.False(t, inst.Plan.SecurityGroups.IsProvided())
		assert.NotNil(t, inst.SecurityGroup)
		return nil
	}, mocks.Options("project", "stack"))
	require.NoError(t, err)

	require.Len(t, mocks.ByType("ec2/securityGroup:SecurityGroup"), 1)
	instance, ok := mocks.Named("bastion-n-bastion")
	require.True(t, ok)
	ids := instance.Inputs["vpcSecurityGroupIds"].ArrayValue()
	require.Len(t, ids, 1)
	assert.Equal(t, "bastion-n-sg_id", pulumitest.StringProp(ids[0]))
}

func TestNewInstance_InstanceArgsOverride(t *testing.T) {
	mocks := pulumitest.New()

	err := pulumi.RunErr(func(ctx *pulumi.Context) error {
		_, err := NewInstance(ctx, "bastion-o", pulumi.String("subnet-123"), Options{
			InstanceProfile: pulumi.String("explicit-profile"),
			InstanceArgs: &ec2.InstanceArgs{
				InstanceType:        pulumi.String("t3.large"),
				IamInstanceProfile:  pulumi.String("embedded-profile"),
				VpcSecurityGroupIds: pulumi.StringArray{pulumi.String("sg-embedded")},
				Tags:                pulumi.StringMap{"Name": pulumi.String("custom")},
			},
		}, nil)
		require.NoError(t, err)
		return nil
	}, mocks.Options("project", "stack"))
	require.NoError(t, err)

	assert.Empty(t, mocks.ByType("ec2/securityGroup:SecurityGroup"), "embedded groups are reused")
	assert.Empty(t, mocks.ByType("iam/instanceProfile:InstanceProfile"))

	instance, ok := mocks.Named("bastion-o-bastion")
	require.True(t, ok)
	assert.Equal(t, "t3.large", instance.String("instanceType"))
	assert.Equal(t, "explicit-profile", instance.String("iamInstanceProfile"), "explicit option wins over instance args")
	assert.Equal(t, "sg-embedded", pulumitest.StringProp(instance.Inputs["vpcSecurityGroupIds"].ArrayValue()[0]))
	assert.Equal(t, "custom", pulumitest.StringProp(instance.Object("tags")["Name"]))
	assert.True(t, instance.Inputs["monitoring"].BoolValue(), "defaults not overridden are kept")
}

func TestNewInstance_WaitFor(t *testing.T) {
	mocks := pulumitest.New()

	err := pulumi.RunErr(func(ctx *pulumi.Context) error {
		dep, err := pulumiutil.NewPassword(ctx, "network-ready")
		require.NoError(t, err)

		_, err = NewInstance(ctx, "bastion-w", pulumi.String("subnet-123"), Options{}, []pulumi.Resource{dep})
		require.NoError(t, err)
		return nil
	}, mocks.Options("project", "stack"))
	require.NoError(t, err)

	for _, name := range []string{"bastion-w-password", "bastion-w-ssm-role", "bastion-w-sg", "bastion-w-bastion"} {
		r, ok := mocks.Named(name)
		require.True(t, ok, name)
		assert.True(t, r.DependsOn("network-ready"), "%s should wait on the supplied dependency", name)
	}
}

func TestExports(t *testing.T) {
	mocks := pulumitest.New()
	captures := map[string]*pulumitest.Capture[string]{}

	err := pulumi.RunErr(func(ctx *pulumi.Context) error {
		exports := NewExports()

		first, err := NewInstance(ctx, "bastion-1", pulumi.String("subnet-1"), Options{}, nil)
		require.NoError(t, err)
		require.NoError(t, exports.Add(first))
		assert.Equal(t, []string{"bastion-1"}, exports.Prefixes())

		second, err := NewInstance(ctx, "bastion-2", pulumi.String("subnet-2"), Options{}, nil)
		require.NoError(t, err)
		require.NoError(t, exports.Add(second))
		assert.Equal(t, []string{"bastion-1", "bastion-2"}, exports.Prefixes())

		err = exports.Add(first)
		assert.ErrorIs(t, err, ErrDuplicatePrefix)

		for _, prefix := range exports.Prefixes() {
			entry, ok := exports.Get(prefix)
			require.True(t, ok)
			assert.Len(t, entry, 2)

			c := pulumitest.NewCapture[string]()
			c.Watch(entry["runCommand"].(pulumi.StringOutput))
			captures[prefix] = c
		}
		assert.Len(t, exports.Map(), 2)
		return nil
	}, mocks.Options("project", "stack"))
	require.NoError(t, err)

	for prefix, c := range captures {
		cmd := c.Get(t)
		assert.True(t, strings.Contains(cmd, fmt.Sprintf("'.%s.encodedCommand'", prefix)), cmd)
	}
}

func TestNewInstance_PropagatesLookupFailure(t *testing.T) {
	mocks := pulumitest.New()
	mocks.CallErrors = map[string]error{getAmiToken: fmt.Errorf("no images")}

	err := pulumi.RunErr(func(ctx *pulumi.Context) error {
		_, err := NewInstance(ctx, "bastion-f", pulumi.String("subnet-123"), Options{}, nil)
		return err
	}, mocks.Options("project", "stack"))
	require.Error(t, err)

	_, created := mocks.Named("bastion-f-bastion")
	assert.False(t, created)
}
