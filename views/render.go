package views

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jrsteele09/bizadmin/business"
	"github.com/jrsteele09/bizadmin/event"
	"github.com/jrsteele09/bizadmin/session"
	"github.com/jrsteele09/bizadmin/views/output"
)

type rendered struct {
	table output.Table
	data  any
}

func (r rendered) Table() output.Table {
	return r.table
}

func (r rendered) Data() any {
	return r.data
}

func pageFooter(page, pages, items int, stale bool) string {
	footer := fmt.Sprintf("page %d of %d, %d total", max(page, 1), max(pages, 1), items)
	if stale {
		footer += " (showing cached rows)"
	}
	return footer
}

func (s DashboardState) Table() output.Table {
	t := output.Table{
		Title:   "Dashboard",
		Headers: []string{"SECTION", "TOTAL", "PATH"},
	}
	for _, item := range s.Nav {
		total := "-"
		switch item.Title {
		case "Businesses":
			total = strconv.Itoa(s.Businesses)
		case "Events":
			total = strconv.Itoa(s.Events)
		}
		path := item.Path
		if !item.Available {
			path += " (coming soon)"
		}
		t.Rows = append(t.Rows, []string{item.Title, total, path})
	}
	return t
}

func (s DashboardState) Data() any {
	return s
}

func (n Notice) Table() output.Table {
	return output.Table{Title: n.Message}
}

func (n Notice) Data() any {
	return n
}

// BusinessList renders a business page.
// Identity is the signed-in user as shown by whoami; tokens are left out.
type Identity struct {
	UserID      string    `json:"userId" yaml:"userId"`
	Email       string    `json:"email" yaml:"email"`
	DisplayName string    `json:"displayName,omitempty" yaml:"displayName,omitempty"`
	Provider    string    `json:"provider" yaml:"provider"`
	Roles       []string  `json:"roles,omitempty" yaml:"roles,omitempty"`
	ExpiresAt   time.Time `json:"expiresAt" yaml:"expiresAt"`
}

func SessionInfo(s *session.Session) output.Renderable {
	id := Identity{
		UserID:      s.UserID,
		Email:       s.Email,
		DisplayName: s.DisplayName,
		Provider:    s.Provider,
		Roles:       s.Roles,
		ExpiresAt:   s.ExpiresAt,
	}
	t := output.Table{Title: "Signed in"}
	t.Rows = [][]string{
		{"email", id.Email},
		{"name", id.DisplayName},
		{"provider", id.Provider},
		{"roles", strings.Join(id.Roles, ", ")},
		{"token expires", formatTime(id.ExpiresAt)},
	}
	return rendered{table: t, data: id}
}

func BusinessList(s ListState[business.Business]) output.Renderable {
	t := output.Table{
		Title:   "Businesses",
		Headers: []string{"ID", "NAME", "EMAIL", "SUBSCRIPTION", "CATEGORIES", "UPDATED"},
		Footer:  pageFooter(s.Pagination.CurrentPage, s.Pagination.TotalPages, s.Pagination.TotalItems, s.Stale),
	}
	for _, b := range s.Items {
		t.Rows = append(t.Rows, []string{
			b.ID, b.Name, b.EmailOrDefault(), string(b.SubscriptionOrDefault()),
			categoryList(b.Categories), formatTime(b.UpdatedAt),
		})
	}
	return rendered{table: t, data: s}
}

func BusinessDetail(b *business.Business) output.Renderable {
	t := output.Table{Title: b.Name}
	t.Rows = [][]string{
		{"id", b.ID},
		{"email", b.EmailOrDefault()},
		{"description", b.DescriptionOrDefault()},
		{"subscription", string(b.SubscriptionOrDefault())},
		{"categories", categoryList(b.Categories)},
		{"tags", strings.Join(b.TagIDs(), ", ")},
		{"created", formatTime(b.CreatedAt)},
		{"updated", formatTime(b.UpdatedAt)},
	}
	return rendered{table: t, data: b}
}

// EventList renders an event page; businesses maps business ids to names for display.
func EventList(s ListState[event.Event], businesses []BusinessOption) output.Renderable {
	names := make(map[string]string, len(businesses))
	for _, b := range businesses {
		names[b.ID] = b.Name
	}
	t := output.Table{
		Title:   "Events",
		Headers: []string{"ID", "TITLE", "DATE", "LOCATION", "BUSINESS"},
		Footer:  pageFooter(s.Pagination.CurrentPage, s.Pagination.TotalPages, s.Pagination.TotalItems, s.Stale),
	}
	for _, e := range s.Items {
		owner := names[e.BusinessID]
		if owner == "" {
			owner = e.BusinessID
		}
		t.Rows = append(t.Rows, []string{e.ID, e.Title, formatTime(e.Date), e.Location, owner})
	}
	return rendered{table: t, data: s}
}

func EventDetail(e *event.Event) output.Renderable {
	category := ""
	if e.Category != nil {
		category = fmt.Sprintf("%s (%s)", e.Category.ID, e.Category.Type)
	}
	t := output.Table{Title: e.Title}
	t.Rows = [][]string{
		{"id", e.ID},
		{"date", formatTime(e.Date)},
		{"location", e.Location},
		{"business", e.BusinessID},
		{"description", e.DescriptionOrDefault()},
		{"category", category},
		{"created", formatTime(e.CreatedAt)},
		{"updated", formatTime(e.UpdatedAt)},
	}
	return rendered{table: t, data: e}
}

func categoryList(refs []business.CategoryRef) string {
	parts := make([]string, 0, len(refs))
	for _, c := range refs {
		label := c.ID
		if c.Details != nil && c.Details.Name != "" {
			label = c.Details.Name
		}
		parts = append(parts, label)
	}
	return strings.Join(parts, ", ")
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02 15:04")
}
