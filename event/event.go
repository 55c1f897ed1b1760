// Package event holds the event record types and their gateway.
package event

import (
	"time"

	"github.com/jrsteele09/bizadmin/business"
	"github.com/jrsteele09/bizadmin/internal/utils"
)

// Resource is the backend collection and query-cache resource type.
const Resource = "events"

// Event categories extend the business ones.
const (
	CategoryConference business.CategoryType = "conference"
	CategoryConcert    business.CategoryType = "concert"
)

type CategoryRef struct {
	ID      string                `json:"id" yaml:"id" validate:"required"`
	Type    business.CategoryType `json:"type" yaml:"type" validate:"required,oneof=product service venue conference concert"`
	Details *business.Category    `json:"details,omitempty" yaml:"details,omitempty"`
}

type Event struct {
	ID          string            `json:"id" yaml:"id"`
	Title       string            `json:"title" yaml:"title"`
	Description *string           `json:"description,omitempty" yaml:"description,omitempty"`
	Date        time.Time         `json:"date" yaml:"date"`
	Location    string            `json:"location" yaml:"location"`
	BusinessID  string            `json:"businessId,omitempty" yaml:"businessId,omitempty"`
	Category    *CategoryRef      `json:"category,omitempty" yaml:"category,omitempty"`
	Tags        []business.TagRef `json:"tags" yaml:"tags"`
	CreatedAt   time.Time         `json:"createdAt" yaml:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt" yaml:"updatedAt"`
}

func (e Event) DescriptionOrDefault() string {
	return utils.Value(e.Description)
}

// Input is the body of a create request.
type Input struct {
	Title       string            `json:"title" validate:"required,max=200"`
	Description *string           `json:"description,omitempty"`
	Date        time.Time         `json:"date" validate:"required"`
	Location    string            `json:"location" validate:"required"`
	BusinessID  string            `json:"businessId" validate:"required"`
	Category    *CategoryRef      `json:"category,omitempty" validate:"omitempty"`
	Tags        []business.TagRef `json:"tags" validate:"dive"`
}

// Patch is a partial update; nil fields are left unchanged.
type Patch struct {
	Title       *string           `json:"title,omitempty" validate:"omitempty,min=1,max=200"`
	Description *string           `json:"description,omitempty"`
	Date        *time.Time        `json:"date,omitempty"`
	Location    *string           `json:"location,omitempty" validate:"omitempty,min=1"`
	BusinessID  *string           `json:"businessId,omitempty" validate:"omitempty,min=1"`
	Category    *CategoryRef      `json:"category,omitempty" validate:"omitempty"`
	Tags        []business.TagRef `json:"tags,omitempty" validate:"dive"`
}

func (p Patch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Date == nil && p.Location == nil &&
		p.BusinessID == nil && p.Category == nil && p.Tags == nil
}
