// Package awsiam creates the IAM identity a bastion instance runs as.
package awsiam

import (
	"encoding/json"
	"fmt"

	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws/iam"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"

	"github.com/yevai/pulumi-kit/pkg/pulumiutil"
)

// SSMManagedInstanceCorePolicyArn grants Session Manager access to an instance.
const SSMManagedInstanceCorePolicyArn = "arn:aws:iam::aws:policy/AmazonSSMManagedInstanceCore"

// EC2ServicePrincipal is the principal allowed to assume the bastion role.
const EC2ServicePrincipal = "ec2.amazonaws.com"

// SSMProfile is the result of NewBastionSSMProfile.
type SSMProfile struct {
	pulumiutil.Result[*iam.InstanceProfile, *iam.InstanceProfile]

	Role       *iam.Role
	Attachment *iam.RolePolicyAttachment
}

// AssumeRolePolicyForService renders a trust policy letting service assume a role.
func AssumeRolePolicyForService(service string) (string, error) {
	doc := map[string]interface{}{
		"Version": "2012-10-17",
		"Statement": []map[string]interface{}{
			{
				"Action": "sts:AssumeRole",
				"Effect": "Allow",
				"Principal": map[string]string{
					"Service": service,
				},
			},
		},
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("failed to marshal assume role policy: %w", err)
	}
	return string(b), nil
}

// NewBastionSSMProfile creates a role EC2 can assume, attaches the SSM
// managed policy to it and wraps the role in an instance profile. The
// profile explicitly waits on the attachment so an instance using it can
// register with SSM as soon as it boots.
func NewBastionSSMProfile(ctx *pulumi.Context, resourcePrefix string, waitFor []pulumi.Resource) (*SSMProfile, error) {
	policy, err := AssumeRolePolicyForService(EC2ServicePrincipal)
	if err != nil {
		return nil, err
	}

	role, err := iam.NewRole(ctx, fmt.Sprintf("%s-ssm-role", resourcePrefix), &iam.RoleArgs{
		AssumeRolePolicy: pulumi.String(policy),
	}, pulumiutil.DependsOn(waitFor)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create ssm role: %w", err)
	}

	attachment, err := iam.NewRolePolicyAttachment(ctx, fmt.Sprintf("%s-ssm-attachment", resourcePrefix), &iam.RolePolicyAttachmentArgs{
		Role:      role.Name,
		PolicyArn: pulumi.String(SSMManagedInstanceCorePolicyArn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to attach ssm policy: %w", err)
	}

	profile, err := iam.NewInstanceProfile(ctx, fmt.Sprintf("%s-ssm-profile", resourcePrefix), &iam.InstanceProfileArgs{
		Role: role.Name,
	}, pulumi.DependsOn([]pulumi.Resource{attachment}))
	if err != nil {
		return nil, fmt.Errorf("failed to create instance profile: %w", err)
	}

	ctx.Log.Debug(fmt.Sprintf("created ssm instance profile for %s", resourcePrefix), &pulumi.LogArgs{Resource: profile})

	return &SSMProfile{
		Result:     pulumiutil.Same(profile),
		Role:       role,
		Attachment: attachment,
	}, nil
}
