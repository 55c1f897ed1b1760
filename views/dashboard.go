package views

import (
	"context"

	"github.com/jrsteele09/bizadmin/business"
	"github.com/jrsteele09/bizadmin/event"
	"github.com/jrsteele09/bizadmin/querycache"
	"golang.org/x/sync/errgroup"
)

// NavItem is a dashboard shortcut. Unavailable sections have no backend support yet.
type NavItem struct {
	Title       string `json:"title" yaml:"title"`
	Path        string `json:"path" yaml:"path"`
	Description string `json:"description" yaml:"description"`
	Available   bool   `json:"available" yaml:"available"`
}

var dashboardNav = []NavItem{
	{Title: "Businesses", Path: "/dashboard/businesses", Description: "Manage registered businesses", Available: true},
	{Title: "Events", Path: "/dashboard/events", Description: "Event management", Available: true},
	{Title: "Users", Path: "/dashboard/users", Description: "User administration"},
	{Title: "Ads", Path: "/dashboard/ads", Description: "Advertisement management"},
	{Title: "Categories", Path: "/dashboard/categories", Description: "Category management"},
	{Title: "Settings", Path: "/dashboard/settings", Description: "System settings"},
}

type DashboardState struct {
	Businesses int       `json:"businesses" yaml:"businesses"`
	Events     int       `json:"events" yaml:"events"`
	Nav        []NavItem `json:"nav" yaml:"nav"`
	Err        error     `json:"-" yaml:"-"`
}

// Dashboard shows record totals and the section shortcuts.
type Dashboard struct {
	businesses BusinessGateway
	events     EventGateway
	cache      *querycache.Cache
}

func NewDashboard(businesses BusinessGateway, events EventGateway, cache *querycache.Cache) *Dashboard {
	return &Dashboard{businesses: businesses, events: events, cache: cache}
}

// Load reads both totals concurrently from one-row list pages. A failed total keeps its last
// known value and the first error is reported.
func (d *Dashboard) Load(ctx context.Context) DashboardState {
	state := DashboardState{Nav: dashboardNav}
	totalsKey := map[string]string{"page": "1", "limit": "1"}

	var g errgroup.Group
	g.Go(func() error {
		resp, r := querycache.Get(ctx, d.cache, querycache.NewKey(business.Resource, totalsKey),
			func(ctx context.Context) (*business.ListResponse, error) {
				return d.businesses.List(ctx, business.ListParams{Page: 1, Limit: 1})
			})
		if resp != nil {
			state.Businesses = resp.Pagination.TotalItems
		}
		return r.Err
	})
	g.Go(func() error {
		resp, r := querycache.Get(ctx, d.cache, querycache.NewKey(event.Resource, totalsKey),
			func(ctx context.Context) (*event.ListResponse, error) {
				return d.events.List(ctx, event.ListParams{Page: 1, Limit: 1})
			})
		if resp != nil {
			state.Events = resp.Pagination.TotalItems
		}
		return r.Err
	})
	state.Err = g.Wait()
	return state
}
