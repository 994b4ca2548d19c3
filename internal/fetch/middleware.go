package fetch

import "context"

// RoundTrip executes a fetch for a URL and returns its classified outcome.
type RoundTrip func(ctx context.Context, url string) Outcome

// Middleware wraps a RoundTrip with additional behavior, e.g. retries.
type Middleware func(RoundTrip) RoundTrip

// Chain composes middlewares around a base RoundTrip. The first middleware
// becomes the outermost wrapper, so Chain(base, a, b) runs a(b(base)).
func Chain(base RoundTrip, middlewares ...Middleware) RoundTrip {
	wrapped := base
	for i := len(middlewares) - 1; i >= 0; i-- {
		wrapped = middlewares[i](wrapped)
	}
	return wrapped
}
