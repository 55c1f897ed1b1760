package event_test

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jrsteele09/bizadmin/apiclient"
	"github.com/jrsteele09/bizadmin/apiclient/fakebackend"
	"github.com/jrsteele09/bizadmin/event"
	"github.com/jrsteele09/bizadmin/internal/errors"
	"github.com/jrsteele09/bizadmin/internal/utils"
	"github.com/stretchr/testify/require"
)

func newGateway(t *testing.T) (*fakebackend.FakeBackend, *event.Gateway) {
	t.Helper()
	fb := fakebackend.New()
	srv := httptest.NewServer(fb)
	t.Cleanup(srv.Close)
	return fb, event.NewGateway(apiclient.New(srv.URL))
}

func TestListParamsKey(t *testing.T) {
	p := event.ListParams{Page: 1, Limit: 10, CategoryID: "c1", Tags: []string{"x"}}
	require.Equal(t, map[string]string{"page": "1", "limit": "10", "categoryId": "c1", "tags": "x"}, p.Key())
	require.Equal(t, "categoryId=c1&limit=10&page=1&tags=x", p.Values().Encode())
}

func TestCreateRequiresDateAndBusiness(t *testing.T) {
	fb, g := newGateway(t)
	_, err := g.Create(context.Background(), event.Input{Title: "Launch", Location: "Hall"})
	var verr *errors.ValidationError
	require.True(t, errors.As(err, &verr))
	require.Contains(t, verr.Fields, "date")
	require.Contains(t, verr.Fields, "businessId")
	require.Zero(t, fb.Hits("POST /events"))
}

func TestCreateListUpdate(t *testing.T) {
	fb, g := newGateway(t)
	ctx := context.Background()
	when := time.Date(2026, 5, 1, 18, 0, 0, 0, time.UTC)

	created, err := g.Create(ctx, event.Input{
		Title:      "Spring Concert",
		Date:       when,
		Location:   "Main Hall",
		BusinessID: "b1",
		Category:   &event.CategoryRef{ID: "c9", Type: event.CategoryConcert},
	})
	require.NoError(t, err)
	require.True(t, when.Equal(created.Date))
	require.Equal(t, event.CategoryConcert, created.Category.Type)

	resp, err := g.List(ctx, event.ListParams{CategoryID: "c9"})
	require.NoError(t, err)
	require.Len(t, resp.Data, 1)
	require.Len(t, fb.Records(event.Resource), 1)

	updated, err := g.Update(ctx, created.ID, event.Patch{Location: utils.Ptr("Annex")})
	require.NoError(t, err)
	require.Equal(t, "Annex", updated.Location)
	require.Equal(t, "Spring Concert", updated.Title)
	require.Equal(t, "", updated.DescriptionOrDefault())
}
