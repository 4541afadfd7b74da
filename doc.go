// Package c8r provides composable function combinators for Go applications.
//
// Each combinator wraps a caller-supplied function with an execution policy:
// [Debouncer] delays execution until calls stop arriving, [Throttler] caps
// execution frequency, [Memo] caches results per key, [DoRetry] re-invokes on
// failure with a [BackoffStrategy], [RateLimiter] admits calls from a token
// bucket and [DoTimeout] bounds execution time. Wrappers own their state and
// stack freely; [Policy] stacks the call-shaped ones in a fixed order.
package c8r
