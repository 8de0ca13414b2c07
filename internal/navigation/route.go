package navigation

import (
	"context"
	"strings"

	"github.com/dgallion1/docview/internal/viewstate"
)

// Route names understood by HandleRoute.
const (
	RouteHome     = "home"
	RoutePageView = "pageview"
)

const viewPrefix = "/view/"

// ViewPath returns the router path that shows uri.
func ViewPath(uri string) string {
	return viewPrefix + uri
}

// ViewLocation returns a Location that publishes the router path of each
// successful navigation to state.
func ViewLocation(state *viewstate.State) Location {
	return LocationFunc(func(uri string) {
		state.SetLocation(ViewPath(uri))
	})
}

// ParseViewPath extracts the route name and params from a router path.
func ParseViewPath(path string) (name string, params map[string][]string, ok bool) {
	if path == "" || path == "/" {
		return RouteHome, nil, true
	}
	rest, found := strings.CutPrefix(path, viewPrefix)
	if !found {
		return "", nil, false
	}
	var segments []string
	for _, s := range strings.Split(rest, "/") {
		if s != "" {
			segments = append(segments, s)
		}
	}
	if len(segments) == 0 {
		return "", nil, false
	}
	return RoutePageView, map[string][]string{"pagepath": segments}, true
}

// HandleRoute reacts to an external route change. The home route does
// nothing; pageview joins its pagepath segments into a page uri.
func (c *Controller) HandleRoute(ctx context.Context, name string, params map[string][]string) error {
	switch name {
	case RouteHome:
		return nil
	case RoutePageView:
		return c.Navigate(ctx, strings.Join(params["pagepath"], "/"), params)
	}
	c.log.Debug("ignoring unknown route", "route", name)
	return nil
}
