package bastion

import (
	"errors"
	"fmt"
	"sort"

	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"

	"github.com/yevai/pulumi-kit/pkg/secrets"
)

// ErrDuplicatePrefix is returned when two bastions with the same prefix are
// added to one Exports.
var ErrDuplicatePrefix = errors.New("bastion prefix already exported")

// Exports collects the outputs of every bastion of a program so the program
// can publish them under a single stack output.
type Exports struct {
	entries map[string]pulumi.Map
}

// NewExports returns an empty collection.
func NewExports() *Exports {
	return &Exports{entries: map[string]pulumi.Map{}}
}

// Add records inst under its prefix.
func (e *Exports) Add(inst *Instance) error {
	if e.entries == nil {
		e.entries = map[string]pulumi.Map{}
	}
	if _, ok := e.entries[inst.Prefix]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicatePrefix, inst.Prefix)
	}
	e.entries[inst.Prefix] = inst.Outputs()
	return nil
}

// Prefixes returns the recorded prefixes in sorted order.
func (e *Exports) Prefixes() []string {
	prefixes := make([]string, 0, len(e.entries))
	for p := range e.entries {
		prefixes = append(prefixes, p)
	}
	sort.Strings(prefixes)
	return prefixes
}

// Get returns the entry of prefix.
func (e *Exports) Get(prefix string) (pulumi.Map, bool) {
	m, ok := e.entries[prefix]
	return m, ok
}

// Map returns the collection keyed by prefix.
func (e *Exports) Map() pulumi.Map {
	inputs := make(map[string]pulumi.Input, len(e.entries))
	for p, m := range e.entries {
		inputs[p] = m
	}
	return secrets.SecretMap(inputs)
}

// Export publishes the collection as the bastionInstances stack output.
func (e *Exports) Export(ctx *pulumi.Context) {
	secrets.Export(ctx, OutputName, e.Map())
}
