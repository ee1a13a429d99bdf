package bastion

import (
	"reflect"

	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws/ec2"
)

// mergeInstanceArgs returns a copy of base with every non-nil field of
// override laid over it. Typed nils count as unset. Nested values are
// replaced, not merged.
func mergeInstanceArgs(base ec2.InstanceArgs, override *ec2.InstanceArgs) ec2.InstanceArgs {
	if override == nil {
		return base
	}

	dst := reflect.ValueOf(&base).Elem()
	src := reflect.ValueOf(override).Elem()
	for i := 0; i < src.NumField(); i++ {
		field := src.Field(i)
		if !dst.Field(i).CanSet() || field.IsZero() || unset(field.Interface()) {
			continue
		}
		dst.Field(i).Set(field)
	}
	return base
}
