package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"pharmacart/pkg/logger"
	"pharmacart/pkg/metrics"
	"pharmacart/storefront-service/internal/app/storefront/entity"
	"pharmacart/storefront-service/internal/app/storefront/infrastructure"
	"pharmacart/storefront-service/internal/app/storefront/rating"
	"pharmacart/storefront-service/internal/app/storefront/repository"

	"github.com/google/uuid"
)

// ReviewService - отзывы товаров.
// После каждой записи пересчитывает рейтинг и публикует событие в review_events.
type ReviewService struct {
	reviews   repository.ReviewRepository
	products  repository.ProductRepository
	ratings   RatingRecomputer
	publisher infrastructure.MessagePublisher
}

func NewReviewService(
	reviews repository.ReviewRepository,
	products repository.ProductRepository,
	ratings RatingRecomputer,
	publisher infrastructure.MessagePublisher,
) *ReviewService {
	return &ReviewService{
		reviews:   reviews,
		products:  products,
		ratings:   ratings,
		publisher: publisher,
	}
}

func (s *ReviewService) Create(ctx context.Context, author *entity.Account, req *entity.CreateReviewRequest) (*entity.Review, error) {
	if _, err := s.products.GetByID(ctx, req.ProductID); err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}

	review := &entity.Review{
		ID:        uuid.NewString(),
		ProductID: req.ProductID,
		UserID:    author.UID,
		UserName:  author.DisplayName(),
		Rating:    req.Rating,
		Text:      req.Text,
		Timestamp: time.Now().UTC(),
	}

	if err := s.reviews.Create(ctx, review); err != nil {
		return nil, fmt.Errorf("failed to create review: %w", err)
	}
	metrics.ReviewsCreated.Inc()
	metrics.ReviewsRating.Observe(float64(review.Rating))

	s.afterWrite(ctx, entity.EventTypeReviewCreated, review)
	return review, nil
}

// Delete - удалить отзыв может только автор
func (s *ReviewService) Delete(ctx context.Context, reviewID, userID string) error {
	review, err := s.reviews.GetByID(ctx, reviewID)
	if err != nil {
		if errors.Is(err, repository.ErrReviewNotFound) {
			return ErrReviewNotFound
		}
		return err
	}
	if review.UserID != userID {
		return ErrForbidden
	}

	if err := s.reviews.Delete(ctx, reviewID); err != nil {
		return fmt.Errorf("failed to delete review: %w", err)
	}
	metrics.ReviewsDeleted.Inc()

	s.afterWrite(ctx, entity.EventTypeReviewDeleted, review)
	return nil
}

func (s *ReviewService) ListByProduct(ctx context.Context, productID string) (*entity.ReviewListResponse, error) {
	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}

	reviews, err := s.reviews.ListByProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	return &entity.ReviewListResponse{
		Reviews:     reviews,
		Total:       len(reviews),
		Rating:      product.Rating,
		ReviewCount: product.ReviewCount,
	}, nil
}

// afterWrite: отзыв уже записан, сбой пересчета или Kafka только логируется.
// Потребитель review_events и ночная сверка догонят рейтинг.
func (s *ReviewService) afterWrite(ctx context.Context, eventType string, review *entity.Review) {
	if _, err := s.ratings.Recompute(ctx, review.ProductID, rating.TriggerReviewWrite); err != nil {
		logger.Error().Err(err).Str("product_id", review.ProductID).Msg("Failed to recompute product rating")
	}

	event := entity.ReviewEvent{
		EventType: eventType,
		ReviewID:  review.ID,
		ProductID: review.ProductID,
		UserID:    review.UserID,
		Rating:    review.Rating,
		Timestamp: time.Now().UTC(),
	}
	if err := publishJSON(ctx, s.publisher, review.ProductID, event); err != nil {
		logger.Error().Err(err).Str("review_id", review.ID).Str("event_type", eventType).Msg("Failed to publish review event")
	}
}

func publishJSON(ctx context.Context, publisher infrastructure.MessagePublisher, key string, event interface{}) error {
	if publisher == nil {
		return nil
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	return publisher.PublishMessage(ctx, key, data)
}
