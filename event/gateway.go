package event

import (
	"context"

	"github.com/jrsteele09/bizadmin/apiclient"
	"github.com/jrsteele09/bizadmin/internal/validation"
)

type ListResponse = apiclient.ListResponse[Event]

// Gateway issues the event CRUD calls.
type Gateway struct {
	core *apiclient.Gateway[Event]
}

func NewGateway(client *apiclient.Client) *Gateway {
	return &Gateway{core: apiclient.NewGateway[Event](client, Resource)}
}

func (g *Gateway) Resource() string {
	return Resource
}

func (g *Gateway) List(ctx context.Context, params ListParams) (*ListResponse, error) {
	return g.core.List(ctx, params.Values())
}

func (g *Gateway) Get(ctx context.Context, id string) (*Event, error) {
	return g.core.Get(ctx, id)
}

func (g *Gateway) Create(ctx context.Context, in Input) (*Event, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	return g.core.Create(ctx, in)
}

func (g *Gateway) Update(ctx context.Context, id string, patch Patch) (*Event, error) {
	if err := validation.Struct(patch); err != nil {
		return nil, err
	}
	return g.core.Update(ctx, id, patch)
}

func (g *Gateway) Delete(ctx context.Context, id string) error {
	return g.core.Delete(ctx, id)
}
