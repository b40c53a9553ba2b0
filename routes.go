package mdchat

import (
	"fmt"

	"github.com/youssefsiam38/mdchat/router"
	"github.com/youssefsiam38/mdchat/ui/frontend"
)

// Route names.
const (
	ContentRoute = frontend.ContentRoute
	ChatRoute    = frontend.ChatRoute
)

// Routes is the static route table. Views are bound by name when the app is
// created.
var Routes = []router.Route{
	{Path: "/", Name: ContentRoute},
	{Path: "/chat", Name: ChatRoute},
}

// bindRoutes copies Routes, attaching the view registered under each name.
func bindRoutes(views map[string]router.View) ([]router.Route, error) {
	routes := make([]router.Route, len(Routes))
	for i, route := range Routes {
		view, ok := views[route.Name]
		if !ok {
			return nil, fmt.Errorf("%w: no view for route %q", ErrInvalidConfig, route.Name)
		}
		route.View = view
		routes[i] = route
	}
	return routes, nil
}
