package c8r

// Compose returns the function x -> g(f(x)).
func Compose[A, B, C any](g func(B) C, f func(A) B) func(A) C {
	return func(a A) C { return g(f(a)) }
}

// Pipe feeds a through f and then g.
func Pipe[A, B, C any](a A, f func(A) B, g func(B) C) C {
	return g(f(a))
}

// Tap calls f with v for its side effect and returns v unchanged.
func Tap[T any](v T, f func(T)) T {
	f(v)
	return v
}

// Identity returns v.
func Identity[T any](v T) T { return v }

// Constant returns a function that always returns v.
func Constant[T any](v T) func() T {
	return func() T { return v }
}

// Noop does nothing. It is handy as a default callback.
func Noop() {}

// Negate returns the logical complement of pred.
func Negate[T any](pred func(T) bool) func(T) bool {
	return func(v T) bool { return !pred(v) }
}

// Flip returns f with its two arguments swapped.
func Flip[A, B, R any](f func(A, B) R) func(B, A) R {
	return func(b B, a A) R { return f(a, b) }
}

// Partial binds a as the only argument of f.
func Partial[A, R any](f func(A) R, a A) func() R {
	return func() R { return f(a) }
}

// Times calls f with each index in [0, n). A non-positive n calls nothing.
func Times(n int, f func(int)) {
	for i := range max(n, 0) {
		f(i)
	}
}

// Until applies step to v until pred holds, then returns it. v is returned
// unchanged when pred already holds.
func Until[T any](v T, pred func(T) bool, step func(T) T) T {
	for !pred(v) {
		v = step(v)
	}

	return v
}
