package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/fekuna/omnipos-catalog-service/internal/broker"
	"github.com/fekuna/omnipos-catalog-service/internal/cache"
	"github.com/fekuna/omnipos-catalog-service/internal/category"
	"github.com/fekuna/omnipos-catalog-service/internal/category/dto"
	"github.com/fekuna/omnipos-catalog-service/internal/category/tree"
	"github.com/fekuna/omnipos-catalog-service/internal/logger"
	"github.com/fekuna/omnipos-catalog-service/internal/model"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type categoryUseCase struct {
	repo       category.Repository
	dispatcher broker.Dispatcher
	prices     cache.PriceCache
	maxLevel   int
	logger     logger.ZapLogger
}

func NewCategoryUseCase(
	repo category.Repository,
	dispatcher broker.Dispatcher,
	prices cache.PriceCache,
	maxLevel int,
	log logger.ZapLogger,
) category.UseCase {
	return &categoryUseCase{
		repo:       repo,
		dispatcher: dispatcher,
		prices:     prices,
		maxLevel:   maxLevel,
		logger:     log,
	}
}

// CategorySavedPayload is published after a category is created or updated.
type CategorySavedPayload struct {
	Category *model.Category `json:"category"`
	Level    int             `json:"level"`
}

func (uc *categoryUseCase) loadTree(ctx context.Context) (*tree.Tree, error) {
	categories, _, err := uc.repo.FindAll(ctx, &dto.CategoryFilters{})
	if err != nil {
		return nil, err
	}
	return tree.New(uc.maxLevel, categories...), nil
}

func (uc *categoryUseCase) CreateCategory(ctx context.Context, input *dto.CreateCategoryInput) (*model.Category, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, model.ErrNameRequired
	}

	t, err := uc.loadTree(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	cat := &model.Category{
		BaseModel: model.BaseModel{
			ID:        uuid.New().String(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		ParentID: normalizeParent(input.ParentID),
		Name:     name,
	}

	if err := t.ValidateAndSave(ctx, cat, uc.repo.Create); err != nil {
		uc.logRejected("create", cat, err)
		return nil, err
	}

	uc.saved(ctx, t, cat)
	return cat, nil
}

func (uc *categoryUseCase) GetCategory(ctx context.Context, id string) (*model.Category, error) {
	return uc.repo.FindByID(ctx, id)
}

func (uc *categoryUseCase) ListCategories(ctx context.Context, filters *dto.CategoryFilters) ([]model.Category, int, error) {
	return uc.repo.FindAll(ctx, filters)
}

func (uc *categoryUseCase) UpdateCategory(ctx context.Context, input *dto.UpdateCategoryInput) (*model.Category, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, model.ErrNameRequired
	}

	t, err := uc.loadTree(ctx)
	if err != nil {
		return nil, err
	}
	existing, ok := t.Get(input.ID)
	if !ok {
		return nil, model.ErrCategoryNotFound
	}

	cat := existing
	cat.Name = name
	cat.ParentID = normalizeParent(input.ParentID)
	cat.UpdatedAt = time.Now().UTC()

	// A move can push a previously valid category past the depth limit.
	if err := t.ValidateAndSave(ctx, &cat, uc.repo.Update); err != nil {
		uc.logRejected("update", &cat, err)
		return nil, err
	}

	uc.saved(ctx, t, &cat)
	return &cat, nil
}

func (uc *categoryUseCase) DeleteCategory(ctx context.Context, id string) error {
	if err := uc.repo.Delete(ctx, id); err != nil {
		return err
	}
	uc.logger.Info("category deleted", zap.String("category_id", id))

	// Products under the subtree are gone, and bundles that held them changed price.
	if err := uc.prices.InvalidateAll(ctx); err != nil {
		uc.logger.Error("failed to invalidate price cache", zap.Error(err))
	}
	uc.dispatch(ctx, broker.NewEvent(broker.EventCategoryDeleted, id, nil))
	return nil
}

func (uc *categoryUseCase) GetDescendants(ctx context.Context, id string) ([]model.Category, error) {
	t, err := uc.loadTree(ctx)
	if err != nil {
		return nil, err
	}
	return t.Descendants(id)
}

func (uc *categoryUseCase) GetNestingLevel(ctx context.Context, id string) (int, error) {
	t, err := uc.loadTree(ctx)
	if err != nil {
		return 0, err
	}
	return t.NestingLevel(id)
}

func (uc *categoryUseCase) saved(ctx context.Context, t *tree.Tree, cat *model.Category) {
	level, _ := t.NestingLevel(cat.ID)
	uc.logger.Info("category saved",
		zap.String("category_id", cat.ID),
		zap.String("name", cat.Name),
		zap.Int("level", level),
	)
	uc.dispatch(ctx, broker.NewEvent(broker.EventCategorySaved, cat.ID, CategorySavedPayload{Category: cat, Level: level}))
}

func (uc *categoryUseCase) logRejected(op string, cat *model.Category, err error) {
	var vErr *tree.ValidationError
	switch {
	case errors.As(err, &vErr):
		uc.logger.Warn("category nesting too deep",
			zap.String("op", op),
			zap.String("category_id", cat.ID),
			zap.Int("level", vErr.Level),
			zap.Int("max_level", vErr.Max),
		)
	case errors.Is(err, model.ErrCategoryCycle), errors.Is(err, model.ErrCategoryNotFound):
		uc.logger.Warn("category rejected", zap.String("op", op), zap.String("category_id", cat.ID), zap.Error(err))
	default:
		uc.logger.Error("failed to save category", zap.String("op", op), zap.String("category_id", cat.ID), zap.Error(err))
	}
}

func (uc *categoryUseCase) dispatch(ctx context.Context, event broker.Event) {
	if err := uc.dispatcher.Dispatch(ctx, event); err != nil {
		uc.logger.Warn("failed to dispatch event", zap.String("event_type", event.EventType), zap.Error(err))
	}
}

func normalizeParent(parentID *string) *string {
	if parentID == nil || *parentID == "" {
		return nil
	}
	id := *parentID
	return &id
}
