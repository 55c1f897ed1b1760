// Package app builds the client once: configuration, identity provider, session store, API
// client, query cache and the views on top of them.
package app

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/jrsteele09/bizadmin/apiclient"
	"github.com/jrsteele09/bizadmin/business"
	"github.com/jrsteele09/bizadmin/event"
	"github.com/jrsteele09/bizadmin/identity"
	"github.com/jrsteele09/bizadmin/identity/firebase"
	"github.com/jrsteele09/bizadmin/identity/googleflow"
	"github.com/jrsteele09/bizadmin/internal/config"
	"github.com/jrsteele09/bizadmin/internal/logging"
	"github.com/jrsteele09/bizadmin/internal/metrics"
	"github.com/jrsteele09/bizadmin/mutation"
	"github.com/jrsteele09/bizadmin/querycache"
	"github.com/jrsteele09/bizadmin/router"
	"github.com/jrsteele09/bizadmin/session"
	"github.com/jrsteele09/bizadmin/session/persist"
	"github.com/jrsteele09/bizadmin/views"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// App holds every long-lived component. One App is one signed-in client.
type App struct {
	Config    config.Config
	Log       zerolog.Logger
	Registry  *prometheus.Registry
	Metrics   *metrics.Metrics
	Provider  identity.Provider
	Persister session.Persister
	Session   *session.Store
	API       *apiclient.Client
	Cache     *querycache.Cache
	Mutations *mutation.Coordinator
	Guard     *router.Guard

	Dashboard  *views.Dashboard
	Businesses *views.Businesses
	Events     *views.Events
	Login      *views.Login

	stopJanitor context.CancelFunc
	closers     []func() error
}

type options struct {
	apiURL     string
	provider   identity.Provider
	persister  session.Persister
	httpClient *http.Client
	tracer     trace.TracerProvider
	logger     *zerolog.Logger
	opener     googleflow.Opener
}

type Option func(o *options)

// WithAPIURL overrides the configured backend origin.
func WithAPIURL(u string) Option {
	return func(o *options) { o.apiURL = u }
}

// WithProvider replaces the identity provider chosen from configuration.
func WithProvider(p identity.Provider) Option {
	return func(o *options) { o.provider = p }
}

// WithPersister replaces the session persister chosen from configuration.
func WithPersister(p session.Persister) Option {
	return func(o *options) { o.persister = p }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) { o.httpClient = hc }
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) { o.tracer = tp }
}

func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.logger = &l }
}

// WithOpener sets how the Google sign-in URL is shown to the user.
func WithOpener(open googleflow.Opener) Option {
	return func(o *options) { o.opener = open }
}

// New wires the components. Nothing talks to the network until Start.
func New(ctx context.Context, cfg config.Config, opts ...Option) (*App, error) {
	o := options{
		apiURL: cfg.GetAPIURL(),
		tracer: otel.GetTracerProvider(),
		opener: printOpener(os.Stderr),
	}
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{Config: cfg, Registry: prometheus.NewRegistry()}
	if o.logger != nil {
		a.Log = *o.logger
	} else {
		a.Log = logging.New(cfg.GetEnv(), cfg.GetLogLevel())
	}
	a.Metrics = metrics.New(a.Registry)

	a.Provider = o.provider
	if a.Provider == nil {
		provider, err := newProvider(cfg, a.Log, o.opener)
		if err != nil {
			return nil, fmt.Errorf("[app New] identity provider: %w", err)
		}
		a.Provider = provider
	}

	a.Persister = o.persister
	if a.Persister == nil {
		persister, closer, err := newPersister(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("[app New] session persister: %w", err)
		}
		a.Persister = persister
		if closer != nil {
			a.closers = append(a.closers, closer)
		}
	}

	apiOptions := []apiclient.Option{
		apiclient.WithTimeout(cfg.GetRequestTimeout()),
		apiclient.WithLogger(a.Log.With().Str("component", "apiclient").Logger()),
		apiclient.WithMetrics(a.Metrics),
		apiclient.WithTracerProvider(o.tracer),
		// The store is assigned below; tokens are only asked for once a request is sent.
		apiclient.WithTokens(apiclient.TokenFunc(func(ctx context.Context) (string, error) {
			return a.Session.Token(ctx)
		})),
	}
	if o.httpClient != nil {
		apiOptions = append(apiOptions, apiclient.WithHTTPClient(o.httpClient))
	}
	a.API = apiclient.New(o.apiURL, apiOptions...)

	a.Session = session.NewStore(a.Provider, a.API,
		session.WithPersister(a.Persister),
		session.WithLogger(a.Log.With().Str("component", "session").Logger()),
	)

	a.Cache = querycache.New(
		querycache.WithStaleTime(cfg.GetCacheStaleTime()),
		querycache.WithGCTime(cfg.GetCacheGCTime()),
		querycache.WithRetries(cfg.GetCacheRetries(), cfg.GetCacheRetryDelay()),
		querycache.WithLogger(a.Log.With().Str("component", "querycache").Logger()),
		querycache.WithMetrics(a.Metrics),
	)
	a.Mutations = mutation.NewCoordinator(a.Cache,
		mutation.WithLogger(a.Log.With().Str("component", "mutation").Logger()),
		mutation.WithMetrics(a.Metrics),
	)
	a.Guard = router.NewGuard(a.Session, router.WithLogger(a.Log.With().Str("component", "router").Logger()))

	businesses := business.NewGateway(a.API)
	events := event.NewGateway(a.API)
	a.Dashboard = views.NewDashboard(businesses, events, a.Cache)
	a.Businesses = views.NewBusinesses(businesses, a.Cache, a.Mutations)
	a.Events = views.NewEvents(events, businesses, a.Cache, a.Mutations)
	a.Login = views.NewLogin(a.Session)
	return a, nil
}

// Start restores the saved session and starts the cache sweeper. The returned session is nil
// when nobody is signed in.
func (a *App) Start(ctx context.Context) *session.Session {
	janitorCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	a.stopJanitor = cancel
	go a.Cache.Run(janitorCtx)

	s := a.Session.Restore(ctx)
	if s != nil {
		a.Log.Debug().Str("email", s.Email).Msg("session restored")
	}
	return s
}

// Close stops background work and releases connections.
func (a *App) Close() error {
	if a.stopJanitor != nil {
		a.stopJanitor()
	}
	a.Guard.Close()
	var firstErr error
	for _, closer := range a.closers {
		if err := closer(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func newProvider(cfg config.IdentityConfig, log zerolog.Logger, open googleflow.Opener) (identity.Provider, error) {
	fbOptions := []firebase.Option{firebase.WithLogger(log.With().Str("component", "firebase").Logger())}
	if cfg.GetGoogleClientID() != "" {
		flow := googleflow.New(cfg.GetGoogleClientID(), cfg.GetGoogleClientSecret(), open,
			googleflow.WithLogger(log.With().Str("component", "googleflow").Logger()))
		fbOptions = append(fbOptions, firebase.WithExternalFlow(flow))
	}
	return firebase.New(cfg.GetFirebaseAPIKey(), cfg.GetFirebaseProjectID(), fbOptions...)
}

func newPersister(ctx context.Context, cfg config.SessionConfig) (session.Persister, func() error, error) {
	switch cfg.GetSessionStore() {
	case "memory":
		return persist.NewMemoryPersister(), nil, nil
	case "redis":
		client, err := persist.DialRedis(ctx, cfg.GetRedisAddr())
		if err != nil {
			return nil, nil, err
		}
		return persist.NewRedisPersister(client), client.Close, nil
	default:
		path := cfg.GetSessionFile()
		if path == "" {
			var err error
			if path, err = persist.DefaultSessionFile(); err != nil {
				return nil, nil, err
			}
		}
		return persist.NewFilePersister(path), nil, nil
	}
}

func printOpener(w io.Writer) googleflow.Opener {
	return func(authURL string) error {
		_, err := fmt.Fprintf(w, "Open this address in a browser to sign in with Google:\n\n  %s\n\n", authURL)
		return err
	}
}
