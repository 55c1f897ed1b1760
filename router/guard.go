// Package router decides, before a view mounts, whether a navigation may proceed.
package router

import (
	"context"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"sync"

	"github.com/jrsteele09/bizadmin/session"
	"github.com/rs/zerolog"
)

// State is the guard's view of authentication.
type State int

const (
	StateUnknown State = iota
	StateAuthenticated
	StateUnauthenticated
)

func (s State) String() string {
	switch s {
	case StateAuthenticated:
		return "authenticated"
	case StateUnauthenticated:
		return "unauthenticated"
	default:
		return "unknown"
	}
}

type OutcomeKind string

const (
	Mount     OutcomeKind = "mount"
	Loading   OutcomeKind = "loading"
	Redirect  OutcomeKind = "redirect"
	NotFound  OutcomeKind = "not_found"
	Forbidden OutcomeKind = "forbidden"
)

// Intent is a requested navigation. Required lists capabilities (role names) the caller needs
// on top of those declared by the routes.
type Intent struct {
	Path     string
	Required []string
}

// Outcome is the guard's decision. Route and Params are set for Mount and Forbidden.
type Outcome struct {
	Kind       OutcomeKind
	Route      *Route
	Params     map[string]string
	Query      url.Values
	RedirectTo string
}

func (o Outcome) String() string {
	switch o.Kind {
	case Redirect:
		return fmt.Sprintf("%s -> %s", o.Kind, o.RedirectTo)
	case Mount, Forbidden:
		return fmt.Sprintf("%s %s", o.Kind, o.Route.Name)
	default:
		return string(o.Kind)
	}
}

// SessionSource is the part of the session store the guard listens to.
type SessionSource interface {
	Subscribe(fn func(session.Change)) (unsubscribe func())
	Current() *session.Session
	Restored() bool
}

type Option func(g *Guard)

func WithRoutes(routes []*Route) Option {
	return func(g *Guard) {
		g.routes = routes
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(g *Guard) {
		g.log = l
	}
}

// Guard tracks the authentication state and evaluates navigation intents against the route tree.
type Guard struct {
	lock        sync.RWMutex
	src         SessionSource
	state       State
	session     *session.Session
	routes      []*Route
	ready       chan struct{}
	readyOnce   sync.Once
	unsubscribe func()
	log         zerolog.Logger
}

func NewGuard(src SessionSource, options ...Option) *Guard {
	g := &Guard{
		src:    src,
		routes: DefaultRoutes(),
		ready:  make(chan struct{}),
		log:    zerolog.Nop(),
	}
	for _, opt := range options {
		opt(g)
	}
	g.unsubscribe = src.Subscribe(g.apply)

	// Seed from a store that settled before the guard existed.
	if current := src.Current(); current != nil {
		g.apply(session.Change{Session: current, Reason: session.ReasonLogin})
	} else if src.Restored() {
		g.apply(session.Change{Reason: session.ReasonRestored})
	}
	return g
}

// Close stops following the session store.
func (g *Guard) Close() {
	if g.unsubscribe != nil {
		g.unsubscribe()
	}
}

// apply re-reads the store rather than trusting the change, so a late or reordered
// notification cannot contradict the current session.
func (g *Guard) apply(change session.Change) {
	current := g.src.Current()
	next := StateUnauthenticated
	if current != nil {
		next = StateAuthenticated
	}

	g.lock.Lock()
	prev := g.state
	g.state = next
	g.session = current
	g.lock.Unlock()

	g.readyOnce.Do(func() { close(g.ready) })
	if prev != next {
		g.log.Debug().Str("from", prev.String()).Str("to", next.String()).Str("reason", string(change.Reason)).Msg("auth state changed")
	}
}

func (g *Guard) State() State {
	g.lock.RLock()
	defer g.lock.RUnlock()
	return g.state
}

// WaitReady blocks until the state leaves Unknown or ctx ends.
func (g *Guard) WaitReady(ctx context.Context) error {
	select {
	case <-g.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Navigate evaluates intent against the route tree and the current state.
func (g *Guard) Navigate(intent Intent) Outcome {
	g.lock.RLock()
	state, current := g.state, g.session
	g.lock.RUnlock()

	target := intent.Path
	if target == "" {
		target = "/"
	}
	path, rawQuery, _ := strings.Cut(target, "?")
	query, _ := url.ParseQuery(rawQuery)

	chain, params := match(g.routes, splitPath(path))
	if chain == nil {
		return Outcome{Kind: NotFound, Query: query}
	}
	leaf := chain[len(chain)-1]
	if leaf.Redirect != "" {
		return Outcome{Kind: Redirect, RedirectTo: leaf.Redirect}
	}

	required := slices.Clone(intent.Required)
	for _, r := range chain {
		switch r.Access {
		case Protected:
			switch state {
			case StateUnknown:
				return Outcome{Kind: Loading, Route: leaf, Params: params, Query: query}
			case StateUnauthenticated:
				return Outcome{Kind: Redirect, RedirectTo: LoginPath + "?redirect=" + url.QueryEscape(target)}
			}
		case GuestOnly:
			if state == StateAuthenticated {
				return Outcome{Kind: Redirect, RedirectTo: safeRedirect(query.Get("redirect"))}
			}
		}
		required = append(required, r.Capabilities...)
	}

	for _, capability := range required {
		if !current.HasRole(capability) {
			return Outcome{Kind: Forbidden, Route: leaf, Params: params, Query: query}
		}
	}
	return Outcome{Kind: Mount, Route: leaf, Params: params, Query: query}
}

// safeRedirect accepts only in-app absolute paths and never sends the user back to login.
func safeRedirect(target string) string {
	if !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") {
		return HomePath
	}
	if path, _, _ := strings.Cut(target, "?"); path == LoginPath {
		return HomePath
	}
	return target
}
