package bastion

import (
	"reflect"

	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws/ec2"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"

	"github.com/yevai/pulumi-kit/pkg/pulumiutil"
)

// Options tunes NewInstance. The zero value creates everything with defaults.
type Options struct {
	// InstanceArgs is merged over the defaults last; every non-nil field wins.
	// IamInstanceProfile and VpcSecurityGroupIds set here are used instead of
	// creating a profile or security group, unless the explicit options below
	// are also set.
	InstanceArgs *ec2.InstanceArgs

	// InstanceProfile reuses an existing instance profile (name or resource).
	InstanceProfile pulumi.Input
	// SecurityGroupIDs reuses existing security groups.
	SecurityGroupIDs pulumi.StringArrayInput

	// SSMPathOverride replaces the default Ubuntu image parameter path.
	SSMPathOverride string
	OSDistribution  OSDistribution
}

// Plan is the outcome of resolving Options before any resource exists.
type Plan struct {
	OS             OSDistribution
	Profile        pulumiutil.Choice[pulumi.Input]
	SecurityGroups pulumiutil.Choice[pulumi.StringArrayInput]
}

// PlanFor resolves the reuse-or-create choices of opts. For both the profile
// and the security groups the explicit option takes precedence over the
// value embedded in InstanceArgs; when neither is set the dependency is
// created.
func PlanFor(opts Options) Plan {
	var embeddedProfile pulumi.Input
	var embeddedGroups pulumi.StringArrayInput
	if opts.InstanceArgs != nil {
		embeddedProfile = opts.InstanceArgs.IamInstanceProfile
		embeddedGroups = opts.InstanceArgs.VpcSecurityGroupIds
	}

	return Plan{
		OS: opts.OSDistribution.Normalize(),
		Profile: pulumiutil.FirstProvided(
			optional(opts.InstanceProfile),
			optional(embeddedProfile),
		),
		SecurityGroups: pulumiutil.FirstProvided(
			optional(opts.SecurityGroupIDs),
			optional(embeddedGroups),
		),
	}
}

func optional[T any](v T) pulumiutil.Choice[T] {
	if unset(v) {
		return pulumiutil.CreateDefault[T]()
	}
	return pulumiutil.Provided(v)
}

// unset reports whether v carries no value: a nil interface, a typed nil
// held by one (such as a nil pulumi.StringArray) or a zero output struct.
func unset(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Pointer, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	case reflect.Struct:
		return rv.IsZero()
	}
	return false
}
