package business

import (
	"net/url"
	"strconv"

	"github.com/jrsteele09/bizadmin/internal/utils"
)

// ListParams filters and pages GET /businesses.
type ListParams struct {
	Page               int
	Limit              int
	CategoryID         string
	CategoryType       CategoryType
	Tags               []string
	Search             string
	Sort               string
	SubscriptionStatus SubscriptionStatus
}

// Values encodes the params for the wire. Tags travel as one comma-joined value.
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
	if p.CategoryType != "" {
		m["categoryType"] = string(p.CategoryType)
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
	if p.SubscriptionStatus != "" {
		m["subscriptionStatus"] = string(p.SubscriptionStatus)
	}
	return m
}
