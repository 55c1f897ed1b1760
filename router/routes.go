package router

import "strings"

// Access says who may enter a route.
type Access int

const (
	Public    Access = iota
	Protected        // signed-in users only
	GuestOnly        // signed-out users only; signed-in users are sent on
)

// Route is a node of the route tree. Path is one segment; "" is the index of its parent and
// "{name}" captures a parameter. Guards are evaluated from the root down to the matched leaf.
type Route struct {
	Path         string
	Name         string
	Access       Access
	Redirect     string
	Capabilities []string
	Children     []*Route
}

// Route names of the default tree.
const (
	RouteRoot       = "root"
	RouteLogin      = "login"
	RouteLayout     = "layout"
	RouteDashboard  = "dashboard"
	RouteBusinesses = "businesses"
	RouteBusiness   = "business"
	RouteEvents     = "events"
	RouteEvent      = "event"
)

const (
	LoginPath = "/login"
	HomePath  = "/dashboard"
)

// DefaultRoutes is the admin console tree.
func DefaultRoutes() []*Route {
	return []*Route{
		{Path: "", Name: RouteRoot, Redirect: HomePath},
		{Path: "login", Name: RouteLogin, Access: GuestOnly},
		{
			Path:   "dashboard",
			Name:   RouteLayout,
			Access: Protected,
			Children: []*Route{
				{Path: "", Name: RouteDashboard},
				{Path: "businesses", Name: RouteBusinesses, Children: []*Route{
					{Path: "{id}", Name: RouteBusiness},
				}},
				{Path: "events", Name: RouteEvents, Children: []*Route{
					{Path: "{id}", Name: RouteEvent},
				}},
			},
		},
	}
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

// match returns the chain of routes from a root to the leaf matching segs.
func match(routes []*Route, segs []string) ([]*Route, map[string]string) {
	for _, r := range routes {
		if r.Path == "" {
			if len(segs) == 0 {
				return []*Route{r}, map[string]string{}
			}
			continue
		}
		if len(segs) == 0 {
			continue
		}
		param, ok := matchSegment(r.Path, segs[0])
		if !ok {
			continue
		}
		rest := segs[1:]
		if chain, params := match(r.Children, rest); chain != nil {
			if param != "" {
				params[param] = segs[0]
			}
			return append([]*Route{r}, chain...), params
		}
		if len(rest) == 0 {
			params := map[string]string{}
			if param != "" {
				params[param] = segs[0]
			}
			return []*Route{r}, params
		}
	}
	return nil, nil
}

// matchSegment reports whether seg fits pattern and names the captured parameter, if any.
func matchSegment(pattern, seg string) (string, bool) {
	if strings.HasPrefix(pattern, "{") && strings.HasSuffix(pattern, "}") {
		return pattern[1 : len(pattern)-1], seg != ""
	}
	return "", pattern == seg
}
