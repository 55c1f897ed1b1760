package console

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/bizadmin/router"
	"github.com/jrsteele09/bizadmin/session"
	"github.com/spf13/cobra"
)

const shellHelp = `Commands:
  open <path>      open a page, e.g. /dashboard/businesses or /dashboard/events/<id>
  next, prev       move through the last list
  exit             leave the shell
Any bizadmin command also works here, e.g. "businesses create --name Cafe".
`

func (c *Console) shellCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Interactive session that keeps the cache and sign-in between commands",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c.format = c.lineFormat
			if c.banner {
				figure.NewFigure(c.app.Config.GetAppName(), "cybermedium", true).Print()
				fmt.Fprintln(c.out)
			}
			unsubscribe := c.app.Session.Subscribe(func(change session.Change) {
				if change.Reason == session.ReasonExpired {
					fmt.Fprintln(c.errOut, "session expired, sign in again")
				}
			})
			defer unsubscribe()
			return c.repl(cmd.Context())
		},
	}
}

func (c *Console) repl(ctx context.Context) error {
	fmt.Fprint(c.out, shellHelp)
	for {
		if ctx.Err() != nil {
			return nil
		}
		fmt.Fprint(c.out, c.promptLabel())
		line, err := c.in.ReadString('\n')
		if err != nil && (err != io.EOF || line == "") {
			if err == io.EOF {
				return nil
			}
			return err
		}

		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "exit", "quit":
			return nil
		case "help", "?":
			fmt.Fprint(c.out, shellHelp)
			continue
		}
		if err := c.runLine(ctx, fields); err != nil {
			fmt.Fprintf(c.errOut, "error: %v\n", err)
		}
	}
}

func (c *Console) promptLabel() string {
	if s := c.app.Session.Current(); s != nil {
		return s.Email + "> "
	}
	return "bizadmin> "
}

func (c *Console) runLine(ctx context.Context, fields []string) error {
	c.rawFormat = string(c.format)
	c.lineFormat = c.format
	switch fields[0] {
	case "open", "cd":
		if len(fields) != 2 {
			return fmt.Errorf("usage: open <path>")
		}
		return c.open(ctx, fields[1])
	case "next", "prev":
		return c.page(ctx, fields[0] == "next")
	case "shell":
		return fmt.Errorf("already in the shell")
	}
	return c.Execute(ctx, fields)
}

// open navigates like the browser would: the guard decides, then the matched page renders.
func (c *Console) open(ctx context.Context, path string) error {
	out, err := c.enter(ctx, path)
	if err != nil {
		return err
	}
	id := out.Params["id"]
	switch out.Route.Name {
	case router.RouteDashboard:
		return c.showDashboard(ctx)
	case router.RouteBusinesses:
		c.lastList = "businesses"
		return c.showBusinesses(c.app.Businesses.List(ctx))
	case router.RouteBusiness:
		return c.showBusiness(ctx, id)
	case router.RouteEvents:
		c.lastList = "events"
		return c.showEvents(ctx, c.app.Events.List(ctx))
	case router.RouteEvent:
		return c.showEvent(ctx, id)
	default:
		return fmt.Errorf("nothing to show at %s", path)
	}
}

func (c *Console) page(ctx context.Context, forward bool) error {
	switch c.lastList {
	case "businesses":
		if forward {
			return c.showBusinesses(c.app.Businesses.Next(ctx))
		}
		return c.showBusinesses(c.app.Businesses.Prev(ctx))
	case "events":
		if forward {
			return c.showEvents(ctx, c.app.Events.Next(ctx))
		}
		return c.showEvents(ctx, c.app.Events.Prev(ctx))
	default:
		return fmt.Errorf("open a list first")
	}
}
