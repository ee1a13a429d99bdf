package cmd

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"github.com/yevai/pulumi-kit/internal/common"
	"github.com/yevai/pulumi-kit/pkg/bastion"
	"github.com/yevai/pulumi-kit/pkg/retry"
)

// pendingRetry is swapped for a faster config in tests.
var pendingRetry = retry.DefaultConfig()

// awsChecker answers the questions asked before connecting to a bastion.
type awsChecker interface {
	AccountID(ctx context.Context) (string, error)
	InstanceState(ctx context.Context, region, instanceID string) (string, error)
}

type awsClients struct {
	sts *sts.Client
	ec2 *ec2.Client
}

func newAWSClients(ctx context.Context, s *common.Settings) (*awsClients, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if s.AWSProfile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(s.AWSProfile))
	}
	if s.AWSRegion != "" {
		opts = append(opts, awsconfig.WithRegion(s.AWSRegion))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return &awsClients{
		sts: sts.NewFromConfig(cfg),
		ec2: ec2.NewFromConfig(cfg),
	}, nil
}

func (c *awsClients) AccountID(ctx context.Context) (string, error) {
	identity, err := c.sts.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return "", fmt.Errorf("failed to get caller identity: %w", err)
	}
	return aws.ToString(identity.Account), nil
}

func (c *awsClients) InstanceState(ctx context.Context, region, instanceID string) (string, error) {
	out, err := c.ec2.DescribeInstances(ctx, &ec2.DescribeInstancesInput{
		InstanceIds: []string{instanceID},
	}, func(o *ec2.Options) {
		o.Region = region
	})
	if err != nil {
		return "", fmt.Errorf("failed to describe instance %s: %w", instanceID, err)
	}
	for _, r := range out.Reservations {
		for _, i := range r.Instances {
			if aws.ToString(i.InstanceId) == instanceID && i.State != nil {
				return string(i.State.Name), nil
			}
		}
	}
	return "", fmt.Errorf("instance %s not found in %s", instanceID, region)
}

// checkBastion verifies the active credentials belong to the bastion's
// account and returns the instance state.
func checkBastion(ctx context.Context, checker awsChecker, params bastion.ConnectionParams) (string, error) {
	account, err := checker.AccountID(ctx)
	if err != nil {
		return "", err
	}
	if account != params.AccountID {
		return "", fmt.Errorf("%w: expected %s but got %s", ErrAccountMismatch, params.AccountID, account)
	}

	region, err := regionOf(params.ConnectURL)
	if err != nil {
		return "", err
	}
	return waitForRunning(ctx, checker, region, params.InstanceID, pendingRetry)
}

// waitForRunning polls the instance while it is pending, which is the
// state of a bastion right after `pulumi up`.
func waitForRunning(ctx context.Context, checker awsChecker, region, instanceID string, cfg retry.Config) (string, error) {
	state, err := retry.Do(ctx, cfg, func(ctx context.Context) (string, error) {
		state, err := checker.InstanceState(ctx, region, instanceID)
		if err != nil {
			return "", err
		}
		if state == "pending" {
			return state, retry.NewRetryableError(fmt.Errorf("instance %s is pending", instanceID))
		}
		return state, nil
	})
	if err != nil && retry.IsRetryable(err) {
		return state, nil
	}
	return state, err
}
