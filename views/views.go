// Package views holds the page logic of the admin console: what each page reads through the
// query cache, which writes it runs through the mutation coordinator, and how it renders.
package views

import (
	"context"
	"fmt"

	"github.com/jrsteele09/bizadmin/apiclient"
	"github.com/jrsteele09/bizadmin/business"
	"github.com/jrsteele09/bizadmin/event"
	"github.com/jrsteele09/bizadmin/querycache"
)

const defaultPageSize = 10

// BusinessGateway is satisfied by *business.Gateway.
type BusinessGateway interface {
	List(ctx context.Context, params business.ListParams) (*business.ListResponse, error)
	Get(ctx context.Context, id string) (*business.Business, error)
	Create(ctx context.Context, in business.Input) (*business.Business, error)
	Update(ctx context.Context, id string, patch business.Patch) (*business.Business, error)
	Delete(ctx context.Context, id string) error
}

// EventGateway is satisfied by *event.Gateway.
type EventGateway interface {
	List(ctx context.Context, params event.ListParams) (*event.ListResponse, error)
	Get(ctx context.Context, id string) (*event.Event, error)
	Create(ctx context.Context, in event.Input) (*event.Event, error)
	Update(ctx context.Context, id string, patch event.Patch) (*event.Event, error)
	Delete(ctx context.Context, id string) error
}

// ListState is one page of a list view as the user sees it.
type ListState[T any] struct {
	Items      []T                  `json:"items" yaml:"items"`
	Pagination apiclient.Pagination `json:"pagination" yaml:"pagination"`
	Status     querycache.Status    `json:"status" yaml:"status"`
	Stale      bool                 `json:"stale,omitempty" yaml:"stale,omitempty"`
	Err        error                `json:"-" yaml:"-"`
}

// Failed reports whether the last load failed; Items may still hold the previous rows.
func (s ListState[T]) Failed() bool {
	return s.Err != nil
}

func listState[T any](resp *apiclient.ListResponse[T], r querycache.Result) ListState[T] {
	state := ListState[T]{Status: r.Status, Stale: r.Stale, Err: r.Err, Items: []T{}}
	if resp != nil {
		state.Items = resp.Data
		state.Pagination = resp.Pagination
	}
	return state
}

// DetailState is a single record read.
type DetailState[T any] struct {
	Record *T                `json:"record" yaml:"record"`
	Status querycache.Status `json:"status" yaml:"status"`
	Err    error             `json:"-" yaml:"-"`
}

// FormError is returned by a failed create or update. Input is what the user submitted, so the
// form can be shown again with it.
type FormError[T any] struct {
	Input T
	Err   error
}

func (e *FormError[T]) Error() string {
	return fmt.Sprintf("save failed: %v", e.Err)
}

func (e *FormError[T]) Unwrap() error {
	return e.Err
}

func detailKey(resource, id string) querycache.Key {
	return querycache.NewKey(resource, map[string]string{"id": id})
}

func pageNumber(p int) int {
	return max(p, 1)
}
