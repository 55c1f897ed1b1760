package console

import (
	"context"
	"strings"
	"time"

	"github.com/jrsteele09/bizadmin/business"
	"github.com/jrsteele09/bizadmin/event"
	"github.com/jrsteele09/bizadmin/internal/utils"
	"github.com/jrsteele09/bizadmin/router"
	"github.com/jrsteele09/bizadmin/views"
	"github.com/jrsteele09/bizadmin/views/output"
	"github.com/spf13/cobra"
)

func (c *Console) dashboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Show record totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := c.enter(cmd.Context(), router.HomePath); err != nil {
				return err
			}
			return c.showDashboard(cmd.Context())
		},
	}
}

func (c *Console) showDashboard(ctx context.Context) error {
	state := c.app.Dashboard.Load(ctx)
	if err := c.render(state); err != nil {
		return err
	}
	if state.Err != nil {
		output.ErrorPanel(c.out, state.Err, "dashboard")
	}
	return nil
}

type listFlags struct {
	page     int
	limit    int
	search   string
	category string
}

func (f *listFlags) bind(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.page, "page", 1, "page number")
	cmd.Flags().IntVar(&f.limit, "limit", 10, "rows per page")
	cmd.Flags().StringVarP(&f.search, "search", "s", "", "text search")
	cmd.Flags().StringVar(&f.category, "category", "", "category id filter")
}

type businessFlags struct {
	name         string
	email        string
	description  string
	subscription string
	categories   []string
	tags         []string
}

func (f *businessFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.name, "name", "n", "", "business name")
	cmd.Flags().StringVar(&f.email, "email", "", "contact email")
	cmd.Flags().StringVar(&f.description, "description", "", "description")
	cmd.Flags().StringVar(&f.subscription, "subscription", "", "subscription (free, premium); the backend default applies when empty")
	cmd.Flags().StringSliceVar(&f.categories, "category", nil, "category as id:type, repeatable")
	cmd.Flags().StringSliceVar(&f.tags, "tag", nil, "tag id, repeatable")
}

func (f *businessFlags) input() business.Input {
	in := business.Input{
		Name:               f.name,
		Categories:         categoryRefs(f.categories),
		Tags:               tagRefs(f.tags),
		SubscriptionStatus: business.SubscriptionStatus(f.subscription),
	}
	if f.email != "" {
		in.Email = utils.Ptr(f.email)
	}
	if f.description != "" {
		in.Description = utils.Ptr(f.description)
	}
	return in
}

// patch includes only the flags given on the command line.
func (f *businessFlags) patch(cmd *cobra.Command) business.Patch {
	var p business.Patch
	changed := cmd.Flags().Changed
	if changed("name") {
		p.Name = utils.Ptr(f.name)
	}
	if changed("email") {
		p.Email = utils.Ptr(f.email)
	}
	if changed("description") {
		p.Description = utils.Ptr(f.description)
	}
	if changed("subscription") {
		p.SubscriptionStatus = utils.Ptr(business.SubscriptionStatus(f.subscription))
	}
	if changed("category") {
		p.Categories = categoryRefs(f.categories)
	}
	if changed("tag") {
		p.Tags = tagRefs(f.tags)
	}
	return p
}

func (c *Console) businessesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "businesses",
		Aliases: []string{"business", "b"},
		Short:   "List and edit businesses",
	}

	var lf listFlags
	list := &cobra.Command{
		Use:   "list",
		Short: "List businesses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := c.enter(cmd.Context(), "/dashboard/businesses"); err != nil {
				return err
			}
			c.app.Businesses.Filter(lf.search, lf.category)
			c.app.Businesses.SetLimit(lf.limit)
			c.app.Businesses.SetPage(lf.page)
			c.lastList = "businesses"
			return c.showBusinesses(c.app.Businesses.List(cmd.Context()))
		},
	}
	lf.bind(list)

	get := &cobra.Command{
		Use:   "get <id>",
		Short: "Show one business",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := c.enter(cmd.Context(), "/dashboard/businesses/"+args[0]); err != nil {
				return err
			}
			return c.showBusiness(cmd.Context(), args[0])
		},
	}

	var create businessFlags
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a business",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := c.enter(cmd.Context(), "/dashboard/businesses"); err != nil {
				return err
			}
			created, err := c.app.Businesses.Create(cmd.Context(), create.input())
			if err != nil {
				return err
			}
			return c.render(views.BusinessDetail(created))
		},
	}
	create.bind(createCmd)

	var update businessFlags
	updateCmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change fields of a business",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := c.enter(cmd.Context(), "/dashboard/businesses/"+args[0]); err != nil {
				return err
			}
			updated, err := c.app.Businesses.Update(cmd.Context(), args[0], update.patch(cmd))
			if err != nil {
				return err
			}
			return c.render(views.BusinessDetail(updated))
		},
	}
	update.bind(updateCmd)

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a business",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := c.enter(cmd.Context(), "/dashboard/businesses/"+args[0]); err != nil {
				return err
			}
			if err := c.app.Businesses.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			return c.render(views.Notice{Success: true, Message: "Deleted business " + args[0]})
		},
	}

	cmd.AddCommand(list, get, createCmd, updateCmd, del)
	return cmd
}

func (c *Console) showBusinesses(state views.ListState[business.Business]) error {
	if err := c.render(views.BusinessList(state)); err != nil {
		return err
	}
	if state.Failed() {
		output.ErrorPanel(c.out, state.Err, "businesses list")
	}
	return nil
}

func (c *Console) showBusiness(ctx context.Context, id string) error {
	state := c.app.Businesses.Detail(ctx, id)
	if state.Record == nil {
		return state.Err
	}
	if err := c.render(views.BusinessDetail(state.Record)); err != nil {
		return err
	}
	if state.Err != nil {
		output.ErrorPanel(c.out, state.Err, "businesses get "+id)
	}
	return nil
}

type eventFlags struct {
	title       string
	description string
	date        string
	location    string
	businessID  string
	category    string
	tags        []string
}

func (f *eventFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.title, "title", "t", "", "event title")
	cmd.Flags().StringVar(&f.description, "description", "", "description")
	cmd.Flags().StringVar(&f.date, "date", "", "start time, RFC3339 or 2006-01-02 15:04")
	cmd.Flags().StringVar(&f.location, "location", "", "location")
	cmd.Flags().StringVar(&f.businessID, "business", "", "owning business id")
	cmd.Flags().StringVar(&f.category, "category", "", "category as id:type")
	cmd.Flags().StringSliceVar(&f.tags, "tag", nil, "tag id, repeatable")
}

func (f *eventFlags) input() (event.Input, error) {
	in := event.Input{
		Title:      f.title,
		Location:   f.location,
		BusinessID: f.businessID,
		Tags:       tagRefs(f.tags),
	}
	if f.date != "" {
		date, err := parseDate(f.date)
		if err != nil {
			return in, err
		}
		in.Date = date
	}
	if f.description != "" {
		in.Description = utils.Ptr(f.description)
	}
	if f.category != "" {
		in.Category = eventCategory(f.category)
	}
	return in, nil
}

func (f *eventFlags) patch(cmd *cobra.Command) (event.Patch, error) {
	var p event.Patch
	changed := cmd.Flags().Changed
	if changed("title") {
		p.Title = utils.Ptr(f.title)
	}
	if changed("description") {
		p.Description = utils.Ptr(f.description)
	}
	if changed("date") {
		date, err := parseDate(f.date)
		if err != nil {
			return p, err
		}
		p.Date = &date
	}
	if changed("location") {
		p.Location = utils.Ptr(f.location)
	}
	if changed("business") {
		p.BusinessID = utils.Ptr(f.businessID)
	}
	if changed("category") {
		p.Category = eventCategory(f.category)
	}
	if changed("tag") {
		p.Tags = tagRefs(f.tags)
	}
	return p, nil
}

func (c *Console) eventsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "events",
		Aliases: []string{"event", "e"},
		Short:   "List and edit events",
	}

	var lf listFlags
	list := &cobra.Command{
		Use:   "list",
		Short: "List events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := c.enter(cmd.Context(), "/dashboard/events"); err != nil {
				return err
			}
			c.app.Events.Filter(lf.search, lf.category)
			c.app.Events.SetLimit(lf.limit)
			c.app.Events.SetPage(lf.page)
			c.lastList = "events"
			return c.showEvents(cmd.Context(), c.app.Events.List(cmd.Context()))
		},
	}
	lf.bind(list)

	get := &cobra.Command{
		Use:   "get <id>",
		Short: "Show one event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := c.enter(cmd.Context(), "/dashboard/events/"+args[0]); err != nil {
				return err
			}
			return c.showEvent(cmd.Context(), args[0])
		},
	}

	var create eventFlags
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create an event",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := c.enter(cmd.Context(), "/dashboard/events"); err != nil {
				return err
			}
			in, err := create.input()
			if err != nil {
				return err
			}
			created, err := c.app.Events.Create(cmd.Context(), in)
			if err != nil {
				return err
			}
			return c.render(views.EventDetail(created))
		},
	}
	create.bind(createCmd)

	var update eventFlags
	updateCmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change fields of an event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := c.enter(cmd.Context(), "/dashboard/events/"+args[0]); err != nil {
				return err
			}
			patch, err := update.patch(cmd)
			if err != nil {
				return err
			}
			updated, err := c.app.Events.Update(cmd.Context(), args[0], patch)
			if err != nil {
				return err
			}
			return c.render(views.EventDetail(updated))
		},
	}
	update.bind(updateCmd)

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := c.enter(cmd.Context(), "/dashboard/events/"+args[0]); err != nil {
				return err
			}
			if err := c.app.Events.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			return c.render(views.Notice{Success: true, Message: "Deleted event " + args[0]})
		},
	}

	cmd.AddCommand(list, get, createCmd, updateCmd, del)
	return cmd
}

// showEvents resolves business names for the owner column; a failed lookup shows raw ids.
func (c *Console) showEvents(ctx context.Context, state views.ListState[event.Event]) error {
	options, _ := c.app.Events.BusinessOptions(ctx)
	if err := c.render(views.EventList(state, options)); err != nil {
		return err
	}
	if state.Failed() {
		output.ErrorPanel(c.out, state.Err, "events list")
	}
	return nil
}

func (c *Console) showEvent(ctx context.Context, id string) error {
	state := c.app.Events.Detail(ctx, id)
	if state.Record == nil {
		return state.Err
	}
	if err := c.render(views.EventDetail(state.Record)); err != nil {
		return err
	}
	if state.Err != nil {
		output.ErrorPanel(c.out, state.Err, "events get "+id)
	}
	return nil
}

func categoryRefs(values []string) []business.CategoryRef {
	refs := make([]business.CategoryRef, 0, len(values))
	for _, v := range values {
		id, kind, _ := strings.Cut(v, ":")
		refs = append(refs, business.CategoryRef{ID: id, Type: business.CategoryType(kind)})
	}
	return refs
}

func eventCategory(value string) *event.CategoryRef {
	id, kind, _ := strings.Cut(value, ":")
	return &event.CategoryRef{ID: id, Type: business.CategoryType(kind)}
}

func tagRefs(ids []string) []business.TagRef {
	refs := make([]business.TagRef, 0, len(ids))
	for _, id := range ids {
		refs = append(refs, business.TagRef{ID: id})
	}
	return refs
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.ParseInLocation("2006-01-02 15:04", s, time.Local)
}
