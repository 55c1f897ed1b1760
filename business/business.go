// Package business holds the business record types and their gateway.
package business

import (
	"time"

	"github.com/jrsteele09/bizadmin/internal/utils"
)

// Resource is the backend collection and query-cache resource type.
const Resource = "businesses"

type CategoryType string

const (
	CategoryProduct CategoryType = "product"
	CategoryService CategoryType = "service"
	CategoryVenue   CategoryType = "venue"
)

type SubscriptionStatus string

const (
	SubscriptionFree    SubscriptionStatus = "free"
	SubscriptionPremium SubscriptionStatus = "premium"
)

type TagStatus string

const (
	TagActive     TagStatus = "active"
	TagDeprecated TagStatus = "deprecated"
	TagInactive   TagStatus = "inactive"
)

type Category struct {
	ID       string       `json:"id" yaml:"id"`
	Name     string       `json:"name" yaml:"name"`
	Type     CategoryType `json:"type" yaml:"type"`
	IsActive bool         `json:"isActive" yaml:"isActive"`
}

type CategoryRef struct {
	ID      string       `json:"id" yaml:"id" validate:"required"`
	Type    CategoryType `json:"type" yaml:"type" validate:"required,oneof=product service venue"`
	Details *Category    `json:"details,omitempty" yaml:"details,omitempty"`
}

type Tag struct {
	ID     string    `json:"id" yaml:"id"`
	Name   string    `json:"name" yaml:"name"`
	Status TagStatus `json:"status" yaml:"status"`
}

type TagRef struct {
	ID      string `json:"id" yaml:"id" validate:"required"`
	Details *Tag   `json:"details,omitempty" yaml:"details,omitempty"`
}

// Business is a record owned by the backend; the client only holds cached copies.
type Business struct {
	ID                 string             `json:"id" yaml:"id"`
	Name               string             `json:"name" yaml:"name"`
	Email              *string            `json:"email,omitempty" yaml:"email,omitempty"`
	Description        *string            `json:"description,omitempty" yaml:"description,omitempty"`
	Categories         []CategoryRef      `json:"categories" yaml:"categories"`
	Tags               []TagRef           `json:"tags" yaml:"tags"`
	SubscriptionStatus SubscriptionStatus `json:"subscriptionStatus" yaml:"subscriptionStatus"`
	CreatedAt          time.Time          `json:"createdAt" yaml:"createdAt"`
	UpdatedAt          time.Time          `json:"updatedAt" yaml:"updatedAt"`
}

// EmailOrDefault returns the email or "" when absent.
func (b Business) EmailOrDefault() string {
	return utils.Value(b.Email)
}

// DescriptionOrDefault returns the description or "" when absent.
func (b Business) DescriptionOrDefault() string {
	return utils.Value(b.Description)
}

// SubscriptionOrDefault treats a missing status as free.
func (b Business) SubscriptionOrDefault() SubscriptionStatus {
	if b.SubscriptionStatus == "" {
		return SubscriptionFree
	}
	return b.SubscriptionStatus
}

// TagIDs lists the ids of the business tags.
func (b Business) TagIDs() []string {
	ids := make([]string, 0, len(b.Tags))
	for _, t := range b.Tags {
		ids = append(ids, t.ID)
	}
	return ids
}

// Input is the body of a create request. Ids and timestamps are assigned by the server.
type Input struct {
	Name               string             `json:"name" validate:"required,max=200"`
	Email              *string            `json:"email,omitempty" validate:"omitempty,email"`
	Description        *string            `json:"description,omitempty"`
	Categories         []CategoryRef      `json:"categories" validate:"dive"`
	Tags               []TagRef           `json:"tags" validate:"dive"`
	SubscriptionStatus SubscriptionStatus `json:"subscriptionStatus,omitempty" validate:"omitempty,oneof=free premium"`
}

// Patch is a partial update; nil fields are left unchanged.
type Patch struct {
	Name               *string             `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Email              *string             `json:"email,omitempty" validate:"omitempty,email"`
	Description        *string             `json:"description,omitempty"`
	Categories         []CategoryRef       `json:"categories,omitempty" validate:"dive"`
	Tags               []TagRef            `json:"tags,omitempty" validate:"dive"`
	SubscriptionStatus *SubscriptionStatus `json:"subscriptionStatus,omitempty" validate:"omitempty,oneof=free premium"`
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.Name == nil && p.Email == nil && p.Description == nil && p.Categories == nil &&
		p.Tags == nil && p.SubscriptionStatus == nil
}
