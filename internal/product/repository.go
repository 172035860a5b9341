package product

import (
	"context"

	"github.com/fekuna/omnipos-catalog-service/internal/model"
	"github.com/fekuna/omnipos-catalog-service/internal/product/dto"
)

// Repository loads products with their bundle members attached.
type Repository interface {
	// Create writes the product and, for a bundle, its members in one transaction.
	Create(ctx context.Context, product *model.Product) error
	FindByID(ctx context.Context, id string) (*model.Product, error)
	// FindByIDs returns the products that exist among ids, in no particular order.
	FindByIDs(ctx context.Context, ids []string) ([]model.Product, error)
	FindAll(ctx context.Context, filters *dto.ProductFilters) ([]model.Product, int, error)
	ReplaceMembers(ctx context.Context, bundleID string, memberIDs []string) error
	Delete(ctx context.Context, id string) error
}
