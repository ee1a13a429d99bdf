package bastion

import (
	"fmt"

	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"

	"github.com/yevai/pulumi-kit/pkg/pulumiutil"
)

// OutputName is the stack output holding every bastion's commands.
const OutputName = "bastionInstances"

// ConnectionScript renders the connection script for instanceID using the
// caller identity and region of the deploying provider.
func ConnectionScript(
	ctx *pulumi.Context,
	instanceID pulumi.IDOutput,
	password pulumi.StringOutput,
	defaultUser string,
) (pulumi.StringOutput, error) {
	identity, err := aws.GetCallerIdentity(ctx, &aws.GetCallerIdentityArgs{})
	if err != nil {
		return pulumi.StringOutput{}, fmt.Errorf("failed to get caller identity: %w", err)
	}
	region, err := aws.GetRegion(ctx, &aws.GetRegionArgs{})
	if err != nil {
		return pulumi.StringOutput{}, fmt.Errorf("failed to get region: %w", err)
	}

	return pulumi.All(instanceID, password).ApplyT(func(args []interface{}) (string, error) {
		id := string(args[0].(pulumi.ID))
		return RenderConnectionScript(ConnectionParams{
			AccountID:  identity.AccountId,
			InstanceID: id,
			Username:   defaultUser,
			Password:   args[1].(string),
			ConnectURL: ConnectURL(region.Name, id),
		})
	}).(pulumi.StringOutput), nil
}

// RunCommandFor is the shell pipeline that fetches the encoded connection
// script of resourcePrefix from stackRef's outputs and runs it.
func RunCommandFor(stackRef, resourcePrefix string) string {
	return fmt.Sprintf(
		"pulumi stack output %s --stack %s --show-secrets | jq -r '.%s.encodedCommand' | base64 --decode | bash",
		OutputName, stackRef, resourcePrefix,
	)
}

// RunCommand is RunCommandFor against the running deployment.
func RunCommand(ctx *pulumi.Context, resourcePrefix string) pulumi.StringOutput {
	return pulumi.String(RunCommandFor(pulumiutil.StackRef(ctx), resourcePrefix)).ToStringOutput()
}
