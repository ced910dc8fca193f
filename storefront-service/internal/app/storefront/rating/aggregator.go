// Package rating пересчитывает rating/review_count товара по его отзывам.
// Пересчеты одного товара выполняются строго по одному.
package rating

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"pharmacart/pkg/logger"
	"pharmacart/pkg/metrics"
	"pharmacart/storefront-service/internal/app/storefront/repository"
)

const (
	TriggerReviewWrite = "review_write"
	TriggerEvent       = "event"
	TriggerReconcile   = "reconcile"
)

type Summary struct {
	ProductID   string  `json:"product_id"`
	Rating      float64 `json:"rating"`
	ReviewCount int     `json:"review_count"`
}

type Aggregator struct {
	reviews  repository.ReviewRepository
	products repository.ProductRepository
	locks    *keyedMutex
}

func NewAggregator(reviews repository.ReviewRepository, products repository.ProductRepository) *Aggregator {
	return &Aggregator{
		reviews:  reviews,
		products: products,
		locks:    newKeyedMutex(),
	}
}

// Recompute читает все отзывы и перезаписывает оба поля товара.
// Операция идемпотентна: повтор на том же наборе отзывов дает тот же результат.
func (a *Aggregator) Recompute(ctx context.Context, productID, trigger string) (Summary, error) {
	unlock := a.locks.lock(productID)
	defer unlock()

	summary, err := a.recompute(ctx, productID)
	if err != nil {
		metrics.RatingRecomputes.WithLabelValues(trigger, "failed").Inc()
		return summary, err
	}
	metrics.RatingRecomputes.WithLabelValues(trigger, "success").Inc()

	logger.Debug().
		Str("product_id", productID).
		Str("trigger", trigger).
		Float64("rating", summary.Rating).
		Int("review_count", summary.ReviewCount).
		Msg("Product rating recomputed")
	return summary, nil
}

func (a *Aggregator) recompute(ctx context.Context, productID string) (Summary, error) {
	reviews, err := a.reviews.ListByProduct(ctx, productID)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to read reviews: %w", err)
	}

	s := Summary{ProductID: productID, ReviewCount: len(reviews)}
	if s.ReviewCount > 0 {
		sum := 0
		for _, r := range reviews {
			sum += r.Rating
		}
		s.Rating = float64(sum) / float64(s.ReviewCount)
	}

	if err := a.products.SetRating(ctx, productID, s.Rating, s.ReviewCount); err != nil {
		return s, err
	}
	return s, nil
}

// RecomputeAll сверяет рейтинг каждого товара каталога
func (a *Aggregator) RecomputeAll(ctx context.Context) (int, error) {
	products, err := a.products.List(ctx, repository.ProductFilter{})
	if err != nil {
		return 0, fmt.Errorf("failed to list products: %w", err)
	}

	done := 0
	var errs []error
	for _, p := range products {
		if ctx.Err() != nil {
			return done, ctx.Err()
		}
		if _, err := a.Recompute(ctx, p.ID, TriggerReconcile); err != nil {
			errs = append(errs, fmt.Errorf("product %s: %w", p.ID, err))
			continue
		}
		done++
	}
	return done, errors.Join(errs...)
}

// =============================================================================
// keyedMutex - мьютекс на ключ, запись удаляется после последнего владельца
// =============================================================================

type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedEntry
}

type keyedEntry struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*keyedEntry)}
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	e, ok := k.locks[key]
	if !ok {
		e = &keyedEntry{}
		k.locks[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		k.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
