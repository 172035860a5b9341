package dto

import "github.com/shopspring/decimal"

type CreateProductInput struct {
	CategoryID string
	Title      string
	Price      decimal.Decimal
}

type CreateBundleInput struct {
	CategoryID  string
	Title       string
	PricingRule string // Empty means the default rule
	MemberIDs   []string
}

type SetBundleMembersInput struct {
	BundleID  string
	MemberIDs []string
}
