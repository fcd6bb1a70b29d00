package assistant

import (
	"github.com/aiox-platform/alchemist/internal/filters"
	"github.com/aiox-platform/alchemist/internal/personalization"
)

// Product is the display shape of a catalog record.
type Product struct {
	Title     string   `json:"title" validate:"required"`
	ImageURL  string   `json:"image_url" validate:"required"`
	ListPrice *float64 `json:"list_price" validate:"required"`
	SalePrice *float64 `json:"sale_price" validate:"required"`
}

// TurnResult is everything one turn produces for the caller.
type TurnResult struct {
	TurnID              string                 `json:"turn_id"`
	Query               string                 `json:"query"`
	ProductSummary      string                 `json:"product_summary"`
	Assistant           string                 `json:"assistant"`
	AutoSuggestResponse string                 `json:"assistant_autosuggest_response"`
	SuggestedQueries    []string               `json:"suggested_queries"`
	SuggestedFilters    filters.Set            `json:"suggested_filters"`
	Products            []Product              `json:"products"`
	Personalization     personalization.Source `json:"personalization"`
}
