package product

import (
	"context"

	"github.com/fekuna/omnipos-catalog-service/internal/model"
	"github.com/fekuna/omnipos-catalog-service/internal/product/dto"
	"github.com/shopspring/decimal"
)

type UseCase interface {
	CreateProduct(ctx context.Context, input *dto.CreateProductInput) (*model.Product, error)
	CreateBundle(ctx context.Context, input *dto.CreateBundleInput) (*model.Product, error)
	SetBundleMembers(ctx context.Context, input *dto.SetBundleMembersInput) (*model.Product, error)
	GetProduct(ctx context.Context, id string) (*model.Product, error)
	ListProducts(ctx context.Context, filters *dto.ProductFilters) ([]model.Product, int, error)
	GetPrice(ctx context.Context, id string) (decimal.Decimal, error)
	DeleteProduct(ctx context.Context, id string) error
}
