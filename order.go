package c8r

import (
	"cmp"
	"slices"
)

// PatternEntry holds a middleware with its priority for auto-ordering.
type PatternEntry[T any] struct {
	MW       Middleware[T]
	Name     string
	Priority int
}

// Priority constants define the execution order inside a [Policy].
// Lower priority = outermost middleware (executed first).
const (
	priorityTimeout        = 0 // global deadline over all attempts
	priorityCircuitBreaker = 1
	priorityRateLimiter    = 2
	priorityRetry          = 3 // innermost, closest to user function
)

// SortPatterns sorts pattern entries by priority (lowest first = outermost).
// The sort is stable, so patterns with the same priority keep their order.
func SortPatterns[T any](entries []PatternEntry[T]) []Middleware[T] {
	if len(entries) == 0 {
		return nil
	}

	sorted := sortEntries(entries)

	mws := make([]Middleware[T], 0, len(sorted))
	for _, e := range sorted {
		mws = append(mws, e.MW)
	}

	return mws
}

// sortEntries returns a priority-sorted copy of entries.
func sortEntries[T any](entries []PatternEntry[T]) []PatternEntry[T] {
	sorted := slices.Clone(entries)
	slices.SortStableFunc(sorted, func(a, b PatternEntry[T]) int {
		return cmp.Compare(a.Priority, b.Priority)
	})

	return sorted
}
