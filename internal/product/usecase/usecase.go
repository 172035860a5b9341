package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fekuna/omnipos-catalog-service/internal/broker"
	"github.com/fekuna/omnipos-catalog-service/internal/cache"
	"github.com/fekuna/omnipos-catalog-service/internal/category"
	"github.com/fekuna/omnipos-catalog-service/internal/logger"
	"github.com/fekuna/omnipos-catalog-service/internal/model"
	"github.com/fekuna/omnipos-catalog-service/internal/pricing"
	"github.com/fekuna/omnipos-catalog-service/internal/product"
	"github.com/fekuna/omnipos-catalog-service/internal/product/dto"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// maxPrice is the first value that no longer fits NUMERIC(12,2).
var maxPrice = decimal.New(1, 10)

type productUseCase struct {
	repo       product.Repository
	categories category.Repository
	engine     *pricing.Engine
	prices     cache.PriceCache
	dispatcher broker.Dispatcher
	logger     logger.ZapLogger
}

func NewProductUseCase(
	repo product.Repository,
	categories category.Repository,
	engine *pricing.Engine,
	prices cache.PriceCache,
	dispatcher broker.Dispatcher,
	log logger.ZapLogger,
) product.UseCase {
	return &productUseCase{
		repo:       repo,
		categories: categories,
		engine:     engine,
		prices:     prices,
		dispatcher: dispatcher,
		logger:     log,
	}
}

func (uc *productUseCase) CreateProduct(ctx context.Context, input *dto.CreateProductInput) (*model.Product, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, model.ErrTitleRequired
	}
	if err := validatePrice(input.Price); err != nil {
		return nil, err
	}
	if _, err := uc.categories.FindByID(ctx, input.CategoryID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	p := &model.Product{
		BaseModel:  model.BaseModel{ID: uuid.New().String(), CreatedAt: now, UpdatedAt: now},
		Kind:       model.ProductKindSimple,
		Title:      title,
		CategoryID: input.CategoryID,
		Price:      input.Price,
	}
	if err := uc.repo.Create(ctx, p); err != nil {
		return nil, err
	}

	uc.logger.Info("product created", zap.String("product_id", p.ID), zap.String("price", pricing.Display(p.Price)))
	uc.dispatch(ctx, broker.NewEvent(broker.EventProductCreated, p.ID, p))
	return p, nil
}

func (uc *productUseCase) CreateBundle(ctx context.Context, input *dto.CreateBundleInput) (*model.Product, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, model.ErrTitleRequired
	}
	rule, err := pricing.ParseRule(input.PricingRule)
	if err != nil {
		return nil, err
	}
	if _, err := uc.categories.FindByID(ctx, input.CategoryID); err != nil {
		return nil, err
	}

	memberIDs := dedupe(input.MemberIDs)
	if err := uc.requireProducts(ctx, memberIDs); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	b := &model.Product{
		BaseModel:   model.BaseModel{ID: uuid.New().String(), CreatedAt: now, UpdatedAt: now},
		Kind:        model.ProductKindBundle,
		Title:       title,
		CategoryID:  input.CategoryID,
		Price:       decimal.Zero,
		PricingRule: string(rule),
		MemberIDs:   memberIDs,
	}
	if err := uc.repo.Create(ctx, b); err != nil {
		return nil, err
	}

	uc.logger.Info("bundle created",
		zap.String("product_id", b.ID),
		zap.String("pricing_rule", b.PricingRule),
		zap.Int("members", len(b.MemberIDs)),
	)
	uc.dispatch(ctx, broker.NewEvent(broker.EventProductCreated, b.ID, b))
	return b, nil
}

func (uc *productUseCase) SetBundleMembers(ctx context.Context, input *dto.SetBundleMembersInput) (*model.Product, error) {
	b, err := uc.repo.FindByID(ctx, input.BundleID)
	if err != nil {
		return nil, err
	}
	if !b.IsBundle() {
		return nil, model.ErrNotABundle
	}

	memberIDs := dedupe(input.MemberIDs)
	for _, id := range memberIDs {
		if id == b.ID {
			return nil, fmt.Errorf("bundle %s: %w", b.ID, model.ErrBundleCycle)
		}
	}
	if err := uc.requireProducts(ctx, memberIDs); err != nil {
		return nil, err
	}

	// Price the candidate membership before writing it: this walks nested
	// bundles and fails on any path that leads back to b.
	candidate := *b
	candidate.MemberIDs = memberIDs
	graph, err := uc.loadGraph(ctx, &candidate)
	if err != nil {
		return nil, err
	}
	if _, err := uc.engine.Price(&candidate, graph); err != nil {
		uc.logger.Warn("bundle members rejected", zap.String("product_id", b.ID), zap.Error(err))
		return nil, err
	}

	if err := uc.repo.ReplaceMembers(ctx, b.ID, memberIDs); err != nil {
		return nil, err
	}

	uc.logger.Info("bundle members changed", zap.String("product_id", b.ID), zap.Int("members", len(memberIDs)))
	uc.invalidatePrices(ctx)
	uc.dispatch(ctx, broker.NewEvent(broker.EventBundleMembersChanged, b.ID, memberIDs))
	return &candidate, nil
}

func (uc *productUseCase) GetProduct(ctx context.Context, id string) (*model.Product, error) {
	return uc.repo.FindByID(ctx, id)
}

func (uc *productUseCase) ListProducts(ctx context.Context, filters *dto.ProductFilters) ([]model.Product, int, error) {
	return uc.repo.FindAll(ctx, filters)
}

func (uc *productUseCase) GetPrice(ctx context.Context, id string) (decimal.Decimal, error) {
	if d, ok, err := uc.prices.Get(ctx, id); err != nil {
		uc.logger.Warn("price cache read failed", zap.String("product_id", id), zap.Error(err))
	} else if ok {
		return d, nil
	}

	p, err := uc.repo.FindByID(ctx, id)
	if err != nil {
		return decimal.Zero, err
	}
	graph, err := uc.loadGraph(ctx, p)
	if err != nil {
		return decimal.Zero, err
	}
	d, err := uc.engine.Price(p, graph)
	if err != nil {
		return decimal.Zero, err
	}

	if err := uc.prices.Set(ctx, id, d); err != nil {
		uc.logger.Warn("price cache write failed", zap.String("product_id", id), zap.Error(err))
	}
	return d, nil
}

func (uc *productUseCase) DeleteProduct(ctx context.Context, id string) error {
	if err := uc.repo.Delete(ctx, id); err != nil {
		return err
	}

	uc.logger.Info("product deleted", zap.String("product_id", id))
	uc.invalidatePrices(ctx)
	uc.dispatch(ctx, broker.NewEvent(broker.EventProductDeleted, id, nil))
	return nil
}

// loadGraph fetches every product reachable from root through bundle
// membership, one batch per nesting level.
func (uc *productUseCase) loadGraph(ctx context.Context, root *model.Product) (pricing.Catalog, error) {
	graph := pricing.NewCatalog(root)
	requested := map[string]bool{root.ID: true}
	pending := root.MemberIDs

	for len(pending) > 0 {
		var batch []string
		for _, id := range pending {
			if !requested[id] {
				requested[id] = true
				batch = append(batch, id)
			}
		}
		if len(batch) == 0 {
			break
		}

		products, err := uc.repo.FindByIDs(ctx, batch)
		if err != nil {
			return nil, err
		}
		pending = nil
		for i := range products {
			p := &products[i]
			graph[p.ID] = p
			if p.IsBundle() {
				pending = append(pending, p.MemberIDs...)
			}
		}
	}
	return graph, nil
}

func (uc *productUseCase) requireProducts(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	found, err := uc.repo.FindByIDs(ctx, ids)
	if err != nil {
		return err
	}
	if len(found) == len(ids) {
		return nil
	}

	exists := make(map[string]bool, len(found))
	for _, p := range found {
		exists[p.ID] = true
	}
	for _, id := range ids {
		if !exists[id] {
			return fmt.Errorf("member %s: %w", id, model.ErrProductNotFound)
		}
	}
	return nil
}

func (uc *productUseCase) invalidatePrices(ctx context.Context) {
	if err := uc.prices.InvalidateAll(ctx); err != nil {
		uc.logger.Error("failed to invalidate price cache", zap.Error(err))
	}
}

func (uc *productUseCase) dispatch(ctx context.Context, event broker.Event) {
	if err := uc.dispatcher.Dispatch(ctx, event); err != nil {
		uc.logger.Warn("failed to dispatch event", zap.String("event_type", event.EventType), zap.Error(err))
	}
}

func validatePrice(d decimal.Decimal) error {
	if d.IsNegative() || !d.Equal(d.Truncate(2)) || d.GreaterThanOrEqual(maxPrice) {
		return model.ErrPriceInvalid
	}
	return nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
