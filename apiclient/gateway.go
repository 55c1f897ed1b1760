package apiclient

import (
	"context"
	"net/http"
	"net/url"

	"github.com/jrsteele09/bizadmin/internal/errors"
)

// Pagination is the paging block of list responses.
type Pagination struct {
	CurrentPage  int  `json:"currentPage" yaml:"currentPage"`
	TotalPages   int  `json:"totalPages" yaml:"totalPages"`
	TotalItems   int  `json:"totalItems" yaml:"totalItems"`
	HasMore      bool `json:"hasMore" yaml:"hasMore"`
	ItemsPerPage int  `json:"itemsPerPage" yaml:"itemsPerPage"`
}

// ListResponse is the envelope of GET /<resource>.
type ListResponse[T any] struct {
	Success    bool       `json:"success" yaml:"success"`
	Data       []T        `json:"data" yaml:"data"`
	Pagination Pagination `json:"pagination" yaml:"pagination"`
}

// Envelope wraps single-record responses.
type Envelope[T any] struct {
	Success *bool  `json:"success,omitempty"`
	Data    T      `json:"data"`
	Message string `json:"message,omitempty"`
}

// Gateway shapes CRUD requests for one resource collection.
type Gateway[T any] struct {
	client   *Client
	resource string
}

func NewGateway[T any](client *Client, resource string) *Gateway[T] {
	return &Gateway[T]{client: client, resource: resource}
}

// Resource is the collection name, also used as the query-cache resource type.
func (g *Gateway[T]) Resource() string {
	return g.resource
}

func (g *Gateway[T]) List(ctx context.Context, query url.Values) (*ListResponse[T], error) {
	var resp ListResponse[T]
	if err := g.client.Do(ctx, http.MethodGet, "/"+g.resource, query, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Data == nil {
		resp.Data = []T{}
	}
	return &resp, nil
}

func (g *Gateway[T]) Get(ctx context.Context, id string) (*T, error) {
	if id == "" {
		return nil, errors.ErrMissingID
	}
	return g.single(ctx, http.MethodGet, g.path(id), nil)
}

// Create posts body; the server assigns the id.
func (g *Gateway[T]) Create(ctx context.Context, body any) (*T, error) {
	return g.single(ctx, http.MethodPost, "/"+g.resource, body)
}

// Update sends a partial record with PUT.
func (g *Gateway[T]) Update(ctx context.Context, id string, partial any) (*T, error) {
	if id == "" {
		return nil, errors.ErrMissingID
	}
	return g.single(ctx, http.MethodPut, g.path(id), partial)
}

func (g *Gateway[T]) Delete(ctx context.Context, id string) error {
	if id == "" {
		return errors.ErrMissingID
	}
	var env Envelope[struct{}]
	if err := g.client.Do(ctx, http.MethodDelete, g.path(id), nil, nil, &env); err != nil {
		return err
	}
	if env.Success != nil && !*env.Success {
		return &errors.APIError{Kind: errors.APIStatus, Status: http.StatusOK, Message: env.Message}
	}
	return nil
}

func (g *Gateway[T]) single(ctx context.Context, method, path string, body any) (*T, error) {
	var env Envelope[T]
	if err := g.client.Do(ctx, method, path, nil, body, &env); err != nil {
		return nil, err
	}
	if env.Success != nil && !*env.Success {
		return nil, &errors.APIError{Kind: errors.APIStatus, Status: http.StatusOK, Message: env.Message}
	}
	return &env.Data, nil
}

func (g *Gateway[T]) path(id string) string {
	return "/" + g.resource + "/" + url.PathEscape(id)
}
