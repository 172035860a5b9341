// Package pricing computes displayable prices for simple and bundle products.
package pricing

import (
	"fmt"

	"github.com/fekuna/omnipos-catalog-service/internal/model"
	"github.com/shopspring/decimal"
)

// Source resolves bundle members by ID.
type Source interface {
	Product(id string) (*model.Product, bool)
}

// Catalog is an in-memory Source.
type Catalog map[string]*model.Product

func NewCatalog(products ...*model.Product) Catalog {
	c := make(Catalog, len(products))
	for _, p := range products {
		c[p.ID] = p
	}
	return c
}

func (c Catalog) Product(id string) (*model.Product, bool) {
	p, ok := c[id]
	return p, ok
}

type Engine struct {
	Policy Policy
}

func NewEngine(policy Policy) *Engine {
	return &Engine{Policy: policy}
}

// Price returns the stored price of a simple product, or the rule-adjusted
// sum of member prices for a bundle. Nested bundles are priced recursively.
func (e *Engine) Price(p *model.Product, src Source) (decimal.Decimal, error) {
	r := resolver{
		engine: e,
		src:    src,
		memo:   make(map[string]decimal.Decimal),
		onPath: make(map[string]bool),
	}
	return r.price(p)
}

type resolver struct {
	engine *Engine
	src    Source
	memo   map[string]decimal.Decimal
	onPath map[string]bool
}

func (r *resolver) price(p *model.Product) (decimal.Decimal, error) {
	switch p.Kind {
	case model.ProductKindSimple:
		return p.Price, nil
	case model.ProductKindBundle:
		return r.bundlePrice(p)
	default:
		return decimal.Zero, &ConfigurationError{Kind: string(p.Kind)}
	}
}

func (r *resolver) bundlePrice(b *model.Product) (decimal.Decimal, error) {
	if d, ok := r.memo[b.ID]; ok {
		return d, nil
	}
	if r.onPath[b.ID] {
		return decimal.Zero, fmt.Errorf("bundle %s: %w", b.ID, model.ErrBundleCycle)
	}
	r.onPath[b.ID] = true
	defer delete(r.onPath, b.ID)

	prices := make([]decimal.Decimal, 0, len(b.MemberIDs))
	for _, id := range b.MemberIDs {
		m, ok := r.src.Product(id)
		if !ok {
			return decimal.Zero, fmt.Errorf("member %s of bundle %s: %w", id, b.ID, model.ErrProductNotFound)
		}
		d, err := r.price(m)
		if err != nil {
			return decimal.Zero, err
		}
		prices = append(prices, d)
	}

	rule := Rule(b.PricingRule)
	if rule == "" {
		rule = DefaultRule
	}
	d, err := ApplyRule(rule, r.engine.Policy, prices)
	if err != nil {
		return decimal.Zero, fmt.Errorf("bundle %s: %w", b.ID, err)
	}
	r.memo[b.ID] = d
	return d, nil
}
