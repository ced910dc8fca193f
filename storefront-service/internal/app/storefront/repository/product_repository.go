package repository

import (
	"context"
	"errors"
	"fmt"

	"pharmacart/storefront-service/internal/app/storefront/docstore"
	"pharmacart/storefront-service/internal/app/storefront/entity"

	"go.mongodb.org/mongo-driver/bson"
)

type productRepository struct {
	store docstore.Store
}

func NewProductRepository(store docstore.Store) ProductRepository {
	return &productRepository{store: store}
}

func (r *productRepository) GetByID(ctx context.Context, id string) (*entity.Product, error) {
	raw, err := r.store.Get(ctx, CollectionProducts, id)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return docstore.Decode[entity.Product](raw)
}

func (r *productRepository) List(ctx context.Context, filter ProductFilter) ([]entity.Product, error) {
	q := docstore.Query{
		Collection: CollectionProducts,
		OrderBy:    "name",
		Limit:      filter.Limit,
	}
	if filter.Category != "" {
		q.Where = append(q.Where, docstore.Eq("category", filter.Category))
	}
	if filter.PharmacyName != "" {
		q.Where = append(q.Where, docstore.Eq("pharmacy_name", filter.PharmacyName))
	}

	raws, err := r.store.Find(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return docstore.DecodeAll[entity.Product](raws)
}

// Save не трогает rating/review_count существующего товара,
// новому товару они выставляются в ноль
func (r *productRepository) Save(ctx context.Context, p *entity.Product) error {
	m := docstore.Mutation{
		Set: bson.M{
			"name":          p.Name,
			"brand":         p.Brand,
			"price":         p.Price,
			"category":      p.Category,
			"pharmacy_name": p.PharmacyName,
			"image":         p.Image,
			"description":   p.Description,
			"in_stock":      p.InStock,
		},
		SetOnInsert: bson.M{
			"rating":       0.0,
			"review_count": 0,
		},
		Upsert: true,
	}
	if err := r.store.Apply(ctx, CollectionProducts, p.ID, m); err != nil {
		return fmt.Errorf("failed to save product: %w", err)
	}
	return nil
}

func (r *productRepository) SetRating(ctx context.Context, id string, rating float64, reviewCount int) error {
	m := docstore.Mutation{
		Set: bson.M{
			"rating":       rating,
			"review_count": reviewCount,
		},
	}
	if err := r.store.Apply(ctx, CollectionProducts, id, m); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return ErrProductNotFound
		}
		return fmt.Errorf("failed to set product rating: %w", err)
	}
	return nil
}
