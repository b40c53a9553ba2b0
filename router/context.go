package router

import "context"

type routeContextKey struct{}

// WithRoute returns a context carrying the active route.
func WithRoute(ctx context.Context, route Route) context.Context {
	return context.WithValue(ctx, routeContextKey{}, route)
}

// RouteFromContext returns the route a view is being rendered for.
func RouteFromContext(ctx context.Context) (Route, bool) {
	route, ok := ctx.Value(routeContextKey{}).(Route)
	return route, ok
}
