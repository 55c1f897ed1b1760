package views

import (
	"context"
	"sync"

	"github.com/jrsteele09/bizadmin/business"
	"github.com/jrsteele09/bizadmin/mutation"
	"github.com/jrsteele09/bizadmin/querycache"
)

// Businesses is the business list, detail and form page.
type Businesses struct {
	gateway   BusinessGateway
	cache     *querycache.Cache
	mutations *mutation.Coordinator

	lock   sync.Mutex
	params business.ListParams
}

func NewBusinesses(gateway BusinessGateway, cache *querycache.Cache, mutations *mutation.Coordinator) *Businesses {
	return &Businesses{
		gateway:   gateway,
		cache:     cache,
		mutations: mutations,
		params:    business.ListParams{Page: 1, Limit: defaultPageSize},
	}
}

func (v *Businesses) Params() business.ListParams {
	v.lock.Lock()
	defer v.lock.Unlock()
	return v.params
}

// Filter replaces search and category and goes back to the first page.
func (v *Businesses) Filter(search, categoryID string) {
	v.lock.Lock()
	defer v.lock.Unlock()
	v.params.Search = search
	v.params.CategoryID = categoryID
	v.params.Page = 1
}

// SetLimit changes the page size and goes back to the first page.
func (v *Businesses) SetLimit(limit int) {
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

func (v *Businesses) SetPage(page int) {
	v.lock.Lock()
	defer v.lock.Unlock()
	v.params.Page = pageNumber(page)
}

// List reads the current page.
func (v *Businesses) List(ctx context.Context) ListState[business.Business] {
	params := v.Params()
	key := querycache.NewKey(business.Resource, params.Key())
	resp, r := querycache.Get(ctx, v.cache, key, func(ctx context.Context) (*business.ListResponse, error) {
		return v.gateway.List(ctx, params)
	})
	return listState(resp, r)
}

// Next moves to the following page when the current one says there is more.
func (v *Businesses) Next(ctx context.Context) ListState[business.Business] {
	current := v.List(ctx)
	if current.Pagination.HasMore {
		v.SetPage(v.Params().Page + 1)
		return v.List(ctx)
	}
	return current
}

func (v *Businesses) Prev(ctx context.Context) ListState[business.Business] {
	if p := v.Params().Page; p > 1 {
		v.SetPage(p - 1)
	}
	return v.List(ctx)
}

func (v *Businesses) Detail(ctx context.Context, id string) DetailState[business.Business] {
	rec, r := querycache.Get(ctx, v.cache, detailKey(business.Resource, id), func(ctx context.Context) (*business.Business, error) {
		return v.gateway.Get(ctx, id)
	})
	return DetailState[business.Business]{Record: rec, Status: r.Status, Err: r.Err}
}

func (v *Businesses) Create(ctx context.Context, in business.Input) (*business.Business, error) {
	created, err := mutation.Run(ctx, v.mutations, func(ctx context.Context) (*business.Business, error) {
		return v.gateway.Create(ctx, in)
	}, mutation.Resource(business.Resource))
	if err != nil {
		return nil, &FormError[business.Input]{Input: in, Err: err}
	}
	return created, nil
}

func (v *Businesses) Update(ctx context.Context, id string, patch business.Patch) (*business.Business, error) {
	updated, err := mutation.Run(ctx, v.mutations, func(ctx context.Context) (*business.Business, error) {
		return v.gateway.Update(ctx, id, patch)
	}, mutation.Resource(business.Resource))
	if err != nil {
		return nil, &FormError[business.Patch]{Input: patch, Err: err}
	}
	return updated, nil
}

func (v *Businesses) Delete(ctx context.Context, id string) error {
	return mutation.Exec(ctx, v.mutations, func(ctx context.Context) error {
		return v.gateway.Delete(ctx, id)
	}, mutation.Resource(business.Resource))
}
