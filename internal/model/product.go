package model

import "github.com/shopspring/decimal"

// ProductKind tags the product variant. Pricing switches on it.
type ProductKind string

const (
	ProductKindSimple ProductKind = "simple"
	ProductKindBundle ProductKind = "bundle"
)

type Product struct {
	BaseModel
	Kind       ProductKind     `db:"kind" json:"kind"`
	Title      string          `db:"title" json:"title"`
	CategoryID string          `db:"category_id" json:"category_id"`
	Price      decimal.Decimal `db:"price" json:"price"` // Display only for bundles
	// PricingRule and MemberIDs are only meaningful for bundles.
	PricingRule string   `db:"pricing_rule" json:"pricing_rule,omitempty"`
	MemberIDs   []string `db:"-" json:"member_ids,omitempty"`
}

func (p *Product) IsBundle() bool {
	return p.Kind == ProductKindBundle
}
