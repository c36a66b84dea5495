/*
Package resilience provides a circuit breaker for storage backends.

# Overview

When a dependency such as the SQLite snippet store keeps failing (a full
disk, a locked database file), the breaker opens and further calls fail
immediately with ErrCircuitOpen instead of queueing behind a dead backend.
After a cooldown a limited number of probe calls are let through; if they
succeed the breaker closes again.

Errors are classified by Settings.IsFailure. By default context
cancellation does not count against the dependency; callers add their own
domain errors (such as "not found") to the ignore list.

# Usage

	breaker := resilience.New("sqlite", resilience.Settings{
		IsFailure: func(err error) bool {
			return err != nil && !errors.Is(err, snippet.ErrSnippetNotFound)
		},
	})

	s, err := resilience.Call(ctx, breaker, func(ctx context.Context) (*snippet.Snippet, error) {
		return repo.Get(ctx, id)
	})
	if errors.Is(err, resilience.ErrCircuitOpen) {
		// storage unavailable
	}
*/
package resilience
