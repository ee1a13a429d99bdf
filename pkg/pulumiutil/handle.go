package pulumiutil

import (
	"fmt"

	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"
)

// HandleType is the component type token used for wrapped lookup values.
const HandleType = "pulumi-kit:utils:Handle"

// Handle gives a plain value (an invoke result or an Output) the shape of a
// resource so it can sit in a wait list next to real resources. The engine
// expands a local component into its children, and a Handle has none, so
// wait lists must go through DependsOn.
type Handle struct {
	pulumi.ResourceState

	Value pulumi.Output
}

// AsResource registers a Handle named name around value.
func AsResource(ctx *pulumi.Context, name string, value pulumi.Input, opts ...pulumi.ResourceOption) (*Handle, error) {
	h := &Handle{}
	if err := ctx.RegisterComponentResource(HandleType, name, h, opts...); err != nil {
		return nil, fmt.Errorf("failed to register handle %s: %w", name, err)
	}
	h.Value = pulumi.ToOutput(value)
	if err := ctx.RegisterResourceOutputs(h, pulumi.Map{"value": value}); err != nil {
		return nil, fmt.Errorf("failed to register handle outputs %s: %w", name, err)
	}
	return h, nil
}

// StringValue returns the wrapped value as a StringOutput. It panics if the
// handle was built from a non-string input.
func (h *Handle) StringValue() pulumi.StringOutput {
	return h.Value.(pulumi.StringOutput)
}

// dependencies resolves to no resources but carries the dependencies of
// the wrapped value.
func (h *Handle) dependencies() pulumi.ResourceArrayOutput {
	return h.Value.ApplyT(func(interface{}) []pulumi.Resource {
		return nil
	}).(pulumi.ResourceArrayOutput)
}
