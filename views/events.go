package views

import (
	"context"
	"sort"
	"sync"

	"github.com/jrsteele09/bizadmin/business"
	"github.com/jrsteele09/bizadmin/event"
	"github.com/jrsteele09/bizadmin/mutation"
	"github.com/jrsteele09/bizadmin/querycache"
)

// businessOptionsLimit loads every business for the event form's business picker.
const businessOptionsLimit = 999

// BusinessOption is an entry of the event form's business picker.
type BusinessOption struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// Events is the event list, detail and form page.
type Events struct {
	gateway    EventGateway
	businesses BusinessGateway
	cache      *querycache.Cache
	mutations  *mutation.Coordinator

	lock   sync.Mutex
	params event.ListParams
}

func NewEvents(gateway EventGateway, businesses BusinessGateway, cache *querycache.Cache, mutations *mutation.Coordinator) *Events {
	return &Events{
		gateway:    gateway,
		businesses: businesses,
		cache:      cache,
		mutations:  mutations,
		params:     event.ListParams{Page: 1, Limit: defaultPageSize},
	}
}

func (v *Events) Params() event.ListParams {
	v.lock.Lock()
	defer v.lock.Unlock()
	return v.params
}

func (v *Events) Filter(search, categoryID string) {
	v.lock.Lock()
	defer v.lock.Unlock()
	v.params.Search = search
	v.params.CategoryID = categoryID
	v.params.Page = 1
}

// SetLimit changes the page size and goes back to the first page.
func (v *Events) SetLimit(limit int) {
	v.lock.Lock()
	defer v.lock.Unlock()
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit != v.params.Limit {
		v.params.Limit = limit
		v.params.Page = 1
	}
}

func (v *Events) SetPage(page int) {
	v.lock.Lock()
	defer v.lock.Unlock()
	v.params.Page = pageNumber(page)
}

func (v *Events) List(ctx context.Context) ListState[event.Event] {
	params := v.Params()
	key := querycache.NewKey(event.Resource, params.Key())
	resp, r := querycache.Get(ctx, v.cache, key, func(ctx context.Context) (*event.ListResponse, error) {
		return v.gateway.List(ctx, params)
	})
	return listState(resp, r)
}

func (v *Events) Next(ctx context.Context) ListState[event.Event] {
	current := v.List(ctx)
	if current.Pagination.HasMore {
		v.SetPage(v.Params().Page + 1)
		return v.List(ctx)
	}
	return current
}

func (v *Events) Prev(ctx context.Context) ListState[event.Event] {
	if p := v.Params().Page; p > 1 {
		v.SetPage(p - 1)
	}
	return v.List(ctx)
}

func (v *Events) Detail(ctx context.Context, id string) DetailState[event.Event] {
	rec, r := querycache.Get(ctx, v.cache, detailKey(event.Resource, id), func(ctx context.Context) (*event.Event, error) {
		return v.gateway.Get(ctx, id)
	})
	return DetailState[event.Event]{Record: rec, Status: r.Status, Err: r.Err}
}

// BusinessOptions reads every business, sorted by name. The entry lives under the businesses
// resource so business mutations refresh it too.
func (v *Events) BusinessOptions(ctx context.Context) ([]BusinessOption, error) {
	key := querycache.NewKey(business.Resource, map[string]string{"scope": "all"})
	resp, r := querycache.Get(ctx, v.cache, key, func(ctx context.Context) (*business.ListResponse, error) {
		return v.businesses.List(ctx, business.ListParams{Page: 1, Limit: businessOptionsLimit})
	})
	if resp == nil {
		return nil, r.Err
	}
	options := make([]BusinessOption, 0, len(resp.Data))
	for _, b := range resp.Data {
		options = append(options, BusinessOption{ID: b.ID, Name: b.Name})
	}
	sort.Slice(options, func(i, j int) bool {
		return options[i].Name < options[j].Name
	})
	return options, r.Err
}

func (v *Events) Create(ctx context.Context, in event.Input) (*event.Event, error) {
	created, err := mutation.Run(ctx, v.mutations, func(ctx context.Context) (*event.Event, error) {
		return v.gateway.Create(ctx, in)
	}, mutation.Resource(event.Resource))
	if err != nil {
		return nil, &FormError[event.Input]{Input: in, Err: err}
	}
	return created, nil
}

func (v *Events) Update(ctx context.Context, id string, patch event.Patch) (*event.Event, error) {
	updated, err := mutation.Run(ctx, v.mutations, func(ctx context.Context) (*event.Event, error) {
		return v.gateway.Update(ctx, id, patch)
	}, mutation.Resource(event.Resource))
	if err != nil {
		return nil, &FormError[event.Patch]{Input: patch, Err: err}
	}
	return updated, nil
}

func (v *Events) Delete(ctx context.Context, id string) error {
	return mutation.Exec(ctx, v.mutations, func(ctx context.Context) error {
		return v.gateway.Delete(ctx, id)
	}, mutation.Resource(event.Resource))
}
