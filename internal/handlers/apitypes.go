package handlers

import (
	"github.com/google/uuid"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/claudyio484/lastbite-backend/internal/importer"
)

type LoginRequest struct {
	Email    openapi_types.Email `json:"email"`
	Password string              `json:"password"`
}

type User struct {
	ID       uuid.UUID           `json:"id"`
	Email    openapi_types.Email `json:"email"`
	FullName string              `json:"fullName"`
	Role     string              `json:"role"`
}

type Tenant struct {
	ID   uuid.UUID `json:"id"`
	Slug string    `json:"slug"`
	Name string    `json:"name"`
}

type AuthSessionResponse struct {
	User   User   `json:"user"`
	Tenant Tenant `json:"tenant"`
}

type ParseResponse struct {
	Columns   []string          `json:"columns"`
	Rows      []importer.RawRow `json:"rows"`
	TotalRows int               `json:"total_rows"`
}

// ImportRequest is the shared payload of the validate and confirm routes.
// Omitted discount rules, window, and rounding fall back to the tenant's
// stored settings.
type ImportRequest struct {
	Columns        []string                `json:"columns"`
	Rows           []importer.RawRow       `json:"rows"`
	Mapping        importer.ColumnMapping  `json:"mapping"`
	WindowDays     *int                    `json:"window_days,omitempty"`
	IncludeExpired bool                    `json:"include_expired"`
	DiscountRules  []importer.DiscountRule `json:"discount_rules,omitempty"`
	RoundPrices    *bool                   `json:"round_prices,omitempty"`
	Publish        bool                    `json:"publish,omitempty"`
}

type ConfirmResponse struct {
	BatchID        uuid.UUID `json:"batch_id"`
	PublishedCount int       `json:"published_count"`
	DraftCount     int       `json:"draft_count"`
	ErrorsCount    int       `json:"errors_count"`
}

type DiscountSettingsPayload struct {
	DiscountRules     []importer.DiscountRule `json:"discount_rules"`
	RoundPrices       bool                    `json:"round_prices"`
	DefaultWindowDays int                     `json:"default_window_days"`
}
