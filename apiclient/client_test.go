package apiclient_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jrsteele09/bizadmin/apiclient"
	"github.com/jrsteele09/bizadmin/internal/errors"
	"github.com/jrsteele09/bizadmin/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

type captured struct {
	method string
	path   string
	query  string
	auth   string
	body   map[string]any
}

func newBackend(t *testing.T, status int, response string) (*httptest.Server, chan captured) {
	t.Helper()
	seen := make(chan captured, 16)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c := captured{method: r.Method, path: r.URL.Path, query: r.URL.RawQuery, auth: r.Header.Get("Authorization")}
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&c.body)
		}
		seen <- c
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(srv.Close)
	return srv, seen
}

func TestTokenReadAtSendTime(t *testing.T) {
	srv, seen := newBackend(t, http.StatusOK, `{}`)

	var current atomic.Value
	current.Store("token-1")
	client := apiclient.New(srv.URL, apiclient.WithTokens(apiclient.TokenFunc(func(context.Context) (string, error) {
		return current.Load().(string), nil
	})))

	require.NoError(t, client.Do(context.Background(), http.MethodGet, "/businesses", nil, nil, nil))
	require.Equal(t, "Bearer token-1", (<-seen).auth)

	current.Store("token-2")
	require.NoError(t, client.Do(context.Background(), http.MethodGet, "/businesses", nil, nil, nil))
	got := <-seen
	require.Equal(t, "Bearer token-2", got.auth)
	require.Equal(t, "/api/v1/businesses", got.path)
}

func TestNoSessionSendsUnauthenticated(t *testing.T) {
	srv, seen := newBackend(t, http.StatusOK, `{}`)
	client := apiclient.New(srv.URL, apiclient.WithTokens(apiclient.TokenFunc(func(context.Context) (string, error) {
		return "", errors.ErrNoSession
	})))

	require.NoError(t, client.Do(context.Background(), http.MethodGet, "/events", nil, nil, nil))
	require.Empty(t, (<-seen).auth)
}

func TestStatusErrorCarriesMessage(t *testing.T) {
	srv, _ := newBackend(t, http.StatusUnprocessableEntity, `{"success":false,"message":"name is required"}`)
	client := apiclient.New(srv.URL)

	err := client.Do(context.Background(), http.MethodPost, "/businesses", nil, map[string]string{}, nil)
	var apiErr *errors.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, errors.APIStatus, apiErr.Kind)
	require.Equal(t, http.StatusUnprocessableEntity, apiErr.Status)
	require.Equal(t, "name is required", apiErr.Message)
}

func TestPlainTextErrorBody(t *testing.T) {
	srv, _ := newBackend(t, http.StatusBadGateway, "upstream down\n")
	client := apiclient.New(srv.URL)

	err := client.Do(context.Background(), http.MethodGet, "/events", nil, nil, nil)
	var apiErr *errors.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, "upstream down", apiErr.Message)
	require.True(t, apiErr.Transient())
}

func TestTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	t.Cleanup(srv.Close)
	client := apiclient.New(srv.URL, apiclient.WithTimeout(30*time.Millisecond))

	err := client.Do(context.Background(), http.MethodGet, "/events", nil, nil, nil)
	var apiErr *errors.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, errors.Timeout, apiErr.Kind)
}

func TestNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	err := apiclient.New(url).Do(context.Background(), http.MethodGet, "/events", nil, nil, nil)
	var apiErr *errors.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, errors.NetworkError, apiErr.Kind)
}

func TestSpansAndMetrics(t *testing.T) {
	srv, _ := newBackend(t, http.StatusOK, `{"success":true,"data":[]}`)
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	m := metrics.New(prometheus.NewRegistry())

	client := apiclient.New(srv.URL, apiclient.WithTracerProvider(tp), apiclient.WithMetrics(m))
	require.NoError(t, client.Do(context.Background(), http.MethodGet, "/businesses", nil, nil, nil))

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	require.Equal(t, "GET businesses", spans[0].Name())
	require.Equal(t, 1.0, testutil.ToFloat64(m.APIRequests.WithLabelValues("GET", "businesses", "200")))
}

func TestAuthEndpoints(t *testing.T) {
	srv, seen := newBackend(t, http.StatusOK, `{"success":true}`)
	client := apiclient.New(srv.URL, apiclient.WithTokens(apiclient.TokenFunc(func(context.Context) (string, error) {
		return "session-token", nil
	})))
	ctx := context.Background()

	_, err := client.VerifyToken(ctx, "fresh-id-token")
	require.NoError(t, err)
	got := <-seen
	require.Equal(t, "/api/v1/auth/verify", got.path)
	require.Equal(t, "Bearer fresh-id-token", got.auth)

	_, err = client.GoogleSignIn(ctx, "google-token")
	require.NoError(t, err)
	got = <-seen
	require.Equal(t, "/api/v1/auth/google", got.path)
	require.Empty(t, got.auth)
	require.Equal(t, "google-token", got.body["idToken"])

	_, err = client.Register(ctx, apiclient.RegisterRequest{Email: "a@b.com", Password: "Passw0rd1", Name: "Ada"})
	require.NoError(t, err)
	got = <-seen
	require.Equal(t, "/api/v1/auth/register", got.path)
	require.Equal(t, "a@b.com", got.body["email"])
	require.Equal(t, "Ada", got.body["name"])
}
