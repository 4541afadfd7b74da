package c8r

import "context"

// Do is a convenience function that runs a single call through an anonymous
// [Policy] built from opts. Construction errors are returned without calling
// fn.
func Do[T any](ctx context.Context, fn func(context.Context) (T, error), opts ...any) (T, error) {
	p, err := NewPolicy[T]("", opts...)
	if err != nil {
		var zero T
		return zero, err
	}

	return p.Do(ctx, fn)
}
