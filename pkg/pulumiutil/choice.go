package pulumiutil

// Choice records whether a dependency was handed in by the caller or must be
// created with defaults. Resolving choices up front keeps reuse-or-create
// precedence separate from resource creation.
type Choice[T any] struct {
	value    T
	provided bool
}

// Provided marks v as supplied by the caller.
func Provided[T any](v T) Choice[T] {
	return Choice[T]{value: v, provided: true}
}

// CreateDefault marks the dependency as one the builder must create.
func CreateDefault[T any]() Choice[T] {
	return Choice[T]{}
}

// IsProvided reports whether the caller supplied the value.
func (c Choice[T]) IsProvided() bool { return c.provided }

// Value returns the supplied value, or the zero value for CreateDefault.
func (c Choice[T]) Value() T { return c.value }

// FirstProvided returns the first provided choice in precedence order, or
// CreateDefault when none is.
func FirstProvided[T any](choices ...Choice[T]) Choice[T] {
	for _, c := range choices {
		if c.provided {
			return c
		}
	}
	return CreateDefault[T]()
}
