package compat

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MatchType records which source produced a compatibility edge.
type MatchType string

const (
	MatchTypeDirect MatchType = "direct"
	MatchTypeRule   MatchType = "rule"
)

// CompatibleItem is the reduced projection returned by the resolver.
// Description and audit columns are dropped to keep payloads small.
type CompatibleItem struct {
	ID                uuid.UUID           `json:"id"`
	Name              string              `json:"name"`
	SKU               *string             `json:"sku,omitempty"`
	Location          *string             `json:"location,omitempty"`
	QuantityOnHand    int                 `json:"quantity_on_hand"`
	LowStockThreshold int                 `json:"low_stock_threshold"`
	DefaultUnitCost   decimal.NullDecimal `json:"default_unit_cost"`
	ImageURL          *string             `json:"image_url,omitempty"`
	MatchType         MatchType           `json:"match_type"`
	HasAlternates     bool                `json:"has_alternates"`
}

// AddRuleInput creates a pattern rule. A nil Model means "any model of this
// manufacturer".
type AddRuleInput struct {
	InventoryItemID uuid.UUID
	Manufacturer    string
	Model           *string
}
