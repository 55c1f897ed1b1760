package event

import (
	"net/url"
	"strconv"

	"github.com/jrsteele09/bizadmin/internal/utils"
)

// ListParams filters and pages GET /events.
type ListParams struct {
	Page       int
	Limit      int
	CategoryID string
	Tags       []string
	Search     string
	Sort       string
}

func (p ListParams) Values() url.Values {
	v := url.Values{}
	for k, val := range p.Key() {
		v.Set(k, val)
	}
	return v
}

// Key is the parameter set used for the query-cache key; zero values are omitted.
func (p ListParams) Key() map[string]string {
	m := make(map[string]string)
	if p.Page > 0 {
		m["page"] = strconv.Itoa(p.Page)
	}
	if p.Limit > 0 {
		m["limit"] = strconv.Itoa(p.Limit)
	}
	if p.CategoryID != "" {
		m["categoryId"] = p.CategoryID
	}
	if tags := utils.JoinNonEmpty(p.Tags, ","); tags != "" {
		m["tags"] = tags
	}
	if p.Search != "" {
		m["search"] = p.Search
	}
	if p.Sort != "" {
		m["sort"] = p.Sort
	}
	return m
}
