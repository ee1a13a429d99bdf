// Package secrets exports stack outputs encrypted with the stack's secrets
// provider, so values such as generated passwords never land in plain text
// in state or in `pulumi stack output`.
package secrets

import (
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"
)

// Export exports value under name as a secret.
func Export(ctx *pulumi.Context, name string, value pulumi.Input) {
	ctx.Export(name, pulumi.ToSecret(value))
}

// SecretMap wraps every value of m as a secret.
func SecretMap(m map[string]pulumi.Input) pulumi.Map {
	result := pulumi.Map{}
	for k, v := range m {
		result[k] = pulumi.ToSecret(v)
	}
	return result
}
