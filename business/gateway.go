package business

import (
	"context"

	"github.com/jrsteele09/bizadmin/apiclient"
	"github.com/jrsteele09/bizadmin/internal/validation"
)

// ListResponse is a page of businesses.
type ListResponse = apiclient.ListResponse[Business]

// Gateway issues the business CRUD calls.
type Gateway struct {
	core *apiclient.Gateway[Business]
}

func NewGateway(client *apiclient.Client) *Gateway {
	return &Gateway{core: apiclient.NewGateway[Business](client, Resource)}
}

func (g *Gateway) Resource() string {
	return Resource
}

func (g *Gateway) List(ctx context.Context, params ListParams) (*ListResponse, error) {
	return g.core.List(ctx, params.Values())
}

func (g *Gateway) Get(ctx context.Context, id string) (*Business, error) {
	return g.core.Get(ctx, id)
}

// Create validates in before sending it.
func (g *Gateway) Create(ctx context.Context, in Input) (*Business, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	return g.core.Create(ctx, in)
}

func (g *Gateway) Update(ctx context.Context, id string, patch Patch) (*Business, error) {
	if err := validation.Struct(patch); err != nil {
		return nil, err
	}
	return g.core.Update(ctx, id, patch)
}

func (g *Gateway) Delete(ctx context.Context, id string) error {
	return g.core.Delete(ctx, id)
}
