package service

import (
	"context"
	"errors"
	"fmt"

	"pharmacart/pkg/logger"
	"pharmacart/storefront-service/internal/app/storefront/entity"
	"pharmacart/storefront-service/internal/app/storefront/repository"

	"github.com/google/uuid"
)

// CatalogService - чтение каталога и публикация товаров аптекой
type CatalogService struct {
	products repository.ProductRepository
}

func NewCatalogService(products repository.ProductRepository) *CatalogService {
	return &CatalogService{products: products}
}

func (s *CatalogService) Get(ctx context.Context, id string) (*entity.Product, error) {
	product, err := s.products.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return product, nil
}

func (s *CatalogService) List(ctx context.Context, filter repository.ProductFilter) ([]entity.Product, error) {
	return s.products.List(ctx, filter)
}

// Upsert публикует товар от имени верифицированной аптеки.
// Рейтинг товара этим путем не меняется.
func (s *CatalogService) Upsert(ctx context.Context, pharmacy *entity.Account, req *entity.UpsertProductRequest) (*entity.Product, error) {
	if pharmacy.Role != entity.RolePharmacy {
		return nil, ErrRoleMismatch
	}
	if !pharmacy.IsPharmacyVerified || pharmacy.PharmacyInfo == nil {
		return nil, ErrNotVerified
	}

	id := req.ID
	if id == "" {
		id = uuid.NewString()
	} else {
		existing, err := s.products.GetByID(ctx, id)
		switch {
		case errors.Is(err, repository.ErrProductNotFound):
		case err != nil:
			return nil, err
		case existing.PharmacyName != pharmacy.PharmacyInfo.Name:
			return nil, ErrForbidden
		}
	}

	product := &entity.Product{
		ID:           id,
		Name:         req.Name,
		Brand:        req.Brand,
		Price:        req.Price,
		Category:     req.Category,
		PharmacyName: pharmacy.PharmacyInfo.Name,
		Image:        req.Image,
		Description:  req.Description,
		InStock:      req.InStock,
	}
	if err := s.products.Save(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to save product: %w", err)
	}

	logger.Info().Str("product_id", id).Str("pharmacy_id", pharmacy.UID).Msg("Product saved")
	return s.Get(ctx, id)
}
