package obs

import "context"

type routePatternKey struct{}

// WithRoutePattern stores the matched router pattern, e.g.
// "/api/v1/orders/{id}", so downstream middleware can label metrics and
// spans without re-running the router.
func WithRoutePattern(ctx context.Context, pattern string) context.Context {
	return context.WithValue(ctx, routePatternKey{}, pattern)
}

// RoutePatternFromContext returns the stored pattern or "".
func RoutePatternFromContext(ctx context.Context) string {
	pattern, _ := ctx.Value(routePatternKey{}).(string)
	return pattern
}
