// Package console is the bizadmin command tree. One-shot commands and the interactive shell share
// one app.App per process, so the shell keeps its cache and session between lines.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jrsteele09/bizadmin/internal/app"
	"github.com/jrsteele09/bizadmin/internal/config"
	"github.com/jrsteele09/bizadmin/internal/errors"
	"github.com/jrsteele09/bizadmin/router"
	"github.com/jrsteele09/bizadmin/views/output"
	"github.com/spf13/cobra"
)

// AppFactory builds the application for a run. apiURL is empty unless --api-url was given.
type AppFactory func(ctx context.Context, apiURL string) (*app.App, error)

// DefaultFactory reads BIZADMIN_* configuration from the environment.
func DefaultFactory(ctx context.Context, apiURL string) (*app.App, error) {
	cfg, err := config.New()
	if err != nil {
		return nil, fmt.Errorf("[console DefaultFactory] config: %w", err)
	}
	var options []app.Option
	if apiURL != "" {
		options = append(options, app.WithAPIURL(apiURL))
	}
	return app.New(ctx, cfg, options...)
}

type Console struct {
	factory AppFactory
	app     *app.App

	in     *bufio.Reader
	out    io.Writer
	errOut io.Writer

	format     output.Format // session default, set by the invoking command line
	lineFormat output.Format // format of the command being run
	rawFormat  string
	apiURL     string
	banner     bool

	lastList string // list command the shell's next/prev apply to
}

type Option func(c *Console)

func WithIO(in io.Reader, out, errOut io.Writer) Option {
	return func(c *Console) {
		c.in = bufio.NewReader(in)
		c.out = out
		c.errOut = errOut
	}
}

// WithBanner prints the application name when the shell starts.
func WithBanner(on bool) Option {
	return func(c *Console) { c.banner = on }
}

func New(factory AppFactory, options ...Option) *Console {
	c := &Console{
		factory: factory,
		in:      bufio.NewReader(os.Stdin),
		out:     os.Stdout,
		errOut:  os.Stderr,
		format:  output.FormatTable,
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// Execute runs one command line.
func (c *Console) Execute(ctx context.Context, args []string) error {
	root := c.Root()
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

// Close releases the application, if one was built.
func (c *Console) Close() error {
	if c.app == nil {
		return nil
	}
	return c.app.Close()
}

// Root builds a fresh command tree bound to this console.
func (c *Console) Root() *cobra.Command {
	root := &cobra.Command{
		Use:           "bizadmin",
		Short:         "Administer businesses and events",
		Long:          "bizadmin signs in to the admin backend and manages its businesses and events.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.prepare(cmd.Context())
		},
	}
	root.PersistentFlags().StringVarP(&c.rawFormat, "output", "o", string(c.format), "output format (table, json, yaml)")
	root.PersistentFlags().StringVar(&c.apiURL, "api-url", c.apiURL, "backend origin, overrides BIZADMIN_API_URL")
	root.SetOut(c.out)
	root.SetErr(c.errOut)

	root.AddCommand(
		c.loginCmd(),
		c.loginGoogleCmd(),
		c.registerCmd(),
		c.logoutCmd(),
		c.whoamiCmd(),
		c.dashboardCmd(),
		c.businessesCmd(),
		c.eventsCmd(),
		c.shellCmd(),
	)
	return root
}

func (c *Console) prepare(ctx context.Context) error {
	f, err := output.ParseFormat(c.rawFormat)
	if err != nil {
		return err
	}
	c.lineFormat = f
	if c.app != nil {
		return nil
	}

	a, err := c.factory(ctx, c.apiURL)
	if err != nil {
		return err
	}
	a.Start(ctx)
	c.app = a
	return nil
}

// enter asks the route guard whether path may be shown and follows redirects that stay inside
// the signed-in area.
func (c *Console) enter(ctx context.Context, path string) (router.Outcome, error) {
	for range 4 {
		out := c.app.Guard.Navigate(router.Intent{Path: path})
		switch out.Kind {
		case router.Mount:
			return out, nil
		case router.Loading:
			if err := c.app.Guard.WaitReady(ctx); err != nil {
				return out, err
			}
		case router.Redirect:
			if strings.HasPrefix(out.RedirectTo, router.LoginPath) {
				return out, errors.Wrapf(errors.ErrNoSession, "sign in with `bizadmin login` to open %s", path)
			}
			path = out.RedirectTo
		case router.Forbidden:
			return out, errors.Wrapf(errors.ErrForbidden, "%s", path)
		default:
			return out, errors.Wrapf(errors.ErrNotFound, "page %s", path)
		}
	}
	return router.Outcome{}, errors.Wrapf(errors.ErrInternal, "too many redirects opening %s", path)
}

func (c *Console) render(v output.Renderable) error {
	return output.Render(c.out, c.lineFormat, v)
}

// prompt reads one line, used for values not given as flags.
func (c *Console) prompt(label string) (string, error) {
	fmt.Fprintf(c.errOut, "%s: ", label)
	line, err := c.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
