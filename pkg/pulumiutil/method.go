// Package pulumiutil holds the small pieces every builder in this module
// shares: the builder result shape, optional dependency lists, resource
// handles for lookup results and stack identity helpers.
package pulumiutil

import (
	"fmt"

	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"
)

// Result is what every builder returns. FinishedOn is the resource other
// builders should wait on; Result is the primary resource created. They are
// often the same value.
type Result[R pulumi.Resource, F pulumi.Resource] struct {
	FinishedOn F
	Result     R
}

// Same builds a Result whose ready marker and primary result are one resource.
func Same[R pulumi.Resource](r R) Result[R, R] {
	return Result[R, R]{FinishedOn: r, Result: r}
}

// DependsOn translates an optional wait list into resource options.
// A nil or empty list yields no options. A Handle in the list waits on the
// resources its wrapped value was computed from.
func DependsOn(waitFor []pulumi.Resource) []pulumi.ResourceOption {
	if len(waitFor) == 0 {
		return nil
	}

	var (
		deps []pulumi.Resource
		opts []pulumi.ResourceOption
	)
	for _, r := range waitFor {
		if h, ok := r.(*Handle); ok {
			opts = append(opts, pulumi.DependsOnInputs(h.dependencies()))
			continue
		}
		deps = append(deps, r)
	}
	if len(deps) > 0 {
		opts = append([]pulumi.ResourceOption{pulumi.DependsOn(deps)}, opts...)
	}
	return opts
}

// StackRef returns the fully qualified <org>/<project>/<stack> name of the
// running deployment.
func StackRef(ctx *pulumi.Context) string {
	return fmt.Sprintf("%s/%s/%s", ctx.Organization(), ctx.Project(), ctx.Stack())
}
