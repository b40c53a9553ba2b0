// Package router maps request paths to views through a static route table.
//
// Routes match on the exact request path. There are no wildcards, path
// parameters or redirects; the query string is not part of the match.
// Paths without a route are handed to the NotFound handler.
package router

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Router errors.
var (
	// ErrInvalidRoute indicates a route with a missing path, name or view.
	ErrInvalidRoute = errors.New("router: invalid route")

	// ErrDuplicatePath indicates two routes share a path.
	ErrDuplicatePath = errors.New("router: duplicate path")

	// ErrDuplicateName indicates two routes share a name.
	ErrDuplicateName = errors.New("router: duplicate name")
)

// View renders the page for a route.
type View interface {
	ServeHTTP(w http.ResponseWriter, r *http.Request)
}

// Route maps one exact path to one named view.
type Route struct {
	Path string
	Name string
	View View
}

// Router holds an immutable route table.
type Router struct {
	routes []Route
	byPath map[string]int
	byName map[string]int

	// NotFound handles paths without a route. Defaults to http.NotFound.
	NotFound http.Handler
}

// New validates the table and creates a Router.
func New(routes ...Route) (*Router, error) {
	rt := &Router{
		routes:   make([]Route, 0, len(routes)),
		byPath:   make(map[string]int, len(routes)),
		byName:   make(map[string]int, len(routes)),
		NotFound: http.NotFoundHandler(),
	}

	for _, route := range routes {
		if route.Path == "" || !strings.HasPrefix(route.Path, "/") {
			return nil, fmt.Errorf("%w: path %q must start with /", ErrInvalidRoute, route.Path)
		}
		if route.Name == "" {
			return nil, fmt.Errorf("%w: route %s has no name", ErrInvalidRoute, route.Path)
		}
		if route.View == nil {
			return nil, fmt.Errorf("%w: route %s has no view", ErrInvalidRoute, route.Name)
		}
		if _, exists := rt.byPath[route.Path]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicatePath, route.Path)
		}
		if _, exists := rt.byName[route.Name]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateName, route.Name)
		}

		rt.byPath[route.Path] = len(rt.routes)
		rt.byName[route.Name] = len(rt.routes)
		rt.routes = append(rt.routes, route)
	}

	return rt, nil
}

// Resolve returns the route whose path equals path.
func (rt *Router) Resolve(path string) (Route, bool) {
	i, ok := rt.byPath[path]
	if !ok {
		return Route{}, false
	}
	return rt.routes[i], true
}

// ByName returns the route with the given name.
func (rt *Router) ByName(name string) (Route, bool) {
	i, ok := rt.byName[name]
	if !ok {
		return Route{}, false
	}
	return rt.routes[i], true
}

// Routes returns the table in declaration order.
func (rt *Router) Routes() []Route {
	routes := make([]Route, len(rt.routes))
	copy(routes, rt.routes)
	return routes
}

// ServeHTTP renders the view of the route matching the request path.
func (rt *Router) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	route, ok := rt.Resolve(r.URL.Path)
	if !ok {
		rt.NotFound.ServeHTTP(w, r)
		return
	}

	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	route.View.ServeHTTP(w, r.WithContext(WithRoute(r.Context(), route)))
}
