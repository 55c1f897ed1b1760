package router_test

import (
	"context"
	"testing"
	"time"

	"github.com/jrsteele09/bizadmin/apiclient"
	"github.com/jrsteele09/bizadmin/identity"
	"github.com/jrsteele09/bizadmin/identity/fakeidentity"
	"github.com/jrsteele09/bizadmin/router"
	"github.com/jrsteele09/bizadmin/session"
	"github.com/jrsteele09/bizadmin/session/persist"
	"github.com/stretchr/testify/require"
)

type acceptingAPI struct{}

func (acceptingAPI) VerifyToken(context.Context, string) (*apiclient.AuthResponse, error) {
	return &apiclient.AuthResponse{Success: true}, nil
}

func (acceptingAPI) GoogleSignIn(context.Context, string) (*apiclient.AuthResponse, error) {
	return &apiclient.AuthResponse{Success: true}, nil
}

func (acceptingAPI) Register(context.Context, apiclient.RegisterRequest) (*apiclient.AuthResponse, error) {
	return &apiclient.AuthResponse{Success: true}, nil
}

type testFixture struct {
	provider  *fakeidentity.FakeProvider
	persister *persist.MemoryPersister
	store     *session.Store
	guard     *router.Guard
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()
	f := &testFixture{provider: fakeidentity.NewFakeProvider(), persister: persist.NewMemoryPersister()}
	require.NoError(t, f.provider.AddAccount("admin@example.com", "pw", "Admin", "admin"))
	require.NoError(t, f.provider.AddAccount("viewer@example.com", "pw", "Viewer"))
	f.store = session.NewStore(f.provider, acceptingAPI{}, session.WithPersister(f.persister))
	f.guard = router.NewGuard(f.store)
	t.Cleanup(f.guard.Close)
	return f
}

func (f *testFixture) login(t *testing.T, email string) {
	t.Helper()
	_, err := f.store.Login(context.Background(), identity.Credentials{Email: email, Password: "pw"})
	require.NoError(t, err)
}

func TestUnknownStateShowsLoadingNotLogin(t *testing.T) {
	f := setupTestFixture(t)
	require.Equal(t, router.StateUnknown, f.guard.State())

	out := f.guard.Navigate(router.Intent{Path: "/dashboard"})
	require.Equal(t, router.Loading, out.Kind)
	require.Empty(t, out.RedirectTo)

	// Public and guest routes do not wait for restoration.
	require.Equal(t, router.Mount, f.guard.Navigate(router.Intent{Path: "/login"}).Kind)
}

func TestRestoredSessionMountsWithoutRedirect(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t, "admin@example.com")

	restarted := session.NewStore(f.provider, acceptingAPI{}, session.WithPersister(f.persister))
	guard := router.NewGuard(restarted)
	defer guard.Close()
	require.Equal(t, router.Loading, guard.Navigate(router.Intent{Path: "/dashboard/events"}).Kind)

	restarted.Restore(context.Background())
	require.Equal(t, router.StateAuthenticated, guard.State())
	out := guard.Navigate(router.Intent{Path: "/dashboard/events"})
	require.Equal(t, router.Mount, out.Kind)
	require.Equal(t, router.RouteEvents, out.Route.Name)
}

func TestUnauthenticatedRedirectsToLoginWithReturnPath(t *testing.T) {
	f := setupTestFixture(t)
	f.store.Restore(context.Background())
	require.Equal(t, router.StateUnauthenticated, f.guard.State())

	out := f.guard.Navigate(router.Intent{Path: "/dashboard/businesses?page=2"})
	require.Equal(t, router.Redirect, out.Kind)
	require.Equal(t, "/login?redirect=%2Fdashboard%2Fbusinesses%3Fpage%3D2", out.RedirectTo)
}

func TestLoginPageSendsSignedInUsersOn(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t, "admin@example.com")

	out := f.guard.Navigate(router.Intent{Path: "/login?redirect=%2Fdashboard%2Fevents"})
	require.Equal(t, router.Redirect, out.Kind)
	require.Equal(t, "/dashboard/events", out.RedirectTo)

	require.Equal(t, router.HomePath, f.guard.Navigate(router.Intent{Path: "/login"}).RedirectTo)
	require.Equal(t, router.HomePath, f.guard.Navigate(router.Intent{Path: "/login?redirect=https://evil.example"}).RedirectTo)
	require.Equal(t, router.HomePath, f.guard.Navigate(router.Intent{Path: "/login?redirect=%2Flogin"}).RedirectTo)
}

func TestRootRedirectsAndUnknownPathsAreNotFound(t *testing.T) {
	f := setupTestFixture(t)
	out := f.guard.Navigate(router.Intent{Path: "/"})
	require.Equal(t, router.Redirect, out.Kind)
	require.Equal(t, router.HomePath, out.RedirectTo)

	require.Equal(t, router.NotFound, f.guard.Navigate(router.Intent{Path: "/nowhere"}).Kind)
	require.Equal(t, router.NotFound, f.guard.Navigate(router.Intent{Path: "/dashboard/businesses/1/extra"}).Kind)
}

func TestPathParams(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t, "admin@example.com")

	out := f.guard.Navigate(router.Intent{Path: "/dashboard/businesses/b-42"})
	require.Equal(t, router.Mount, out.Kind)
	require.Equal(t, router.RouteBusiness, out.Route.Name)
	require.Equal(t, map[string]string{"id": "b-42"}, out.Params)

	out = f.guard.Navigate(router.Intent{Path: "/dashboard"})
	require.Equal(t, router.RouteDashboard, out.Route.Name)
}

func TestCapabilities(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t, "viewer@example.com")

	out := f.guard.Navigate(router.Intent{Path: "/dashboard/businesses", Required: []string{"admin"}})
	require.Equal(t, router.Forbidden, out.Kind)
	require.Equal(t, router.Mount, f.guard.Navigate(router.Intent{Path: "/dashboard/businesses"}).Kind)

	routes := router.DefaultRoutes()
	routes[2].Capabilities = []string{"admin"}
	guard := router.NewGuard(f.store, router.WithRoutes(routes))
	defer guard.Close()
	require.Equal(t, router.Forbidden, guard.Navigate(router.Intent{Path: "/dashboard"}).Kind)
}

func TestLogoutAndExpiryReturnToUnauthenticated(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t, "admin@example.com")
	require.Equal(t, router.StateAuthenticated, f.guard.State())

	require.NoError(t, f.store.Logout(context.Background()))
	require.Equal(t, router.StateUnauthenticated, f.guard.State())
	require.Equal(t, router.Redirect, f.guard.Navigate(router.Intent{Path: "/dashboard"}).Kind)

	f.login(t, "admin@example.com")
	require.Equal(t, router.StateAuthenticated, f.guard.State())
}

func TestWaitReady(t *testing.T) {
	f := setupTestFixture(t)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, f.guard.WaitReady(ctx), context.DeadlineExceeded)

	go f.store.Restore(context.Background())
	require.NoError(t, f.guard.WaitReady(context.Background()))
	require.Equal(t, router.StateUnauthenticated, f.guard.State())
}

type stubSource struct {
	current  *session.Session
	restored bool
	notify   func(session.Change)
}

func (s *stubSource) Subscribe(fn func(session.Change)) func() {
	s.notify = fn
	return func() {}
}

func (s *stubSource) Current() *session.Session { return s.current }

func (s *stubSource) Restored() bool { return s.restored }

func TestStaleChangeDoesNotOverrideCurrentSession(t *testing.T) {
	src := &stubSource{restored: true}
	guard := router.NewGuard(src)
	defer guard.Close()
	require.Equal(t, router.StateUnauthenticated, guard.State())

	signedIn := &session.Session{UserID: "u1", Email: "admin@example.com"}
	src.current = signedIn
	src.notify(session.Change{Session: signedIn, Reason: session.ReasonLogin})
	require.Equal(t, router.StateAuthenticated, guard.State())

	// An expiry notification delivered after a new sign-in.
	src.notify(session.Change{Reason: session.ReasonExpired})
	require.Equal(t, router.StateAuthenticated, guard.State())
	require.Equal(t, router.Mount, guard.Navigate(router.Intent{Path: "/dashboard"}).Kind)

	src.current = nil
	src.notify(session.Change{Reason: session.ReasonLogout})
	require.Equal(t, router.StateUnauthenticated, guard.State())
}
