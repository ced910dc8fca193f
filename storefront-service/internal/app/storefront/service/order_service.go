package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pharmacart/pkg/logger"
	"pharmacart/pkg/metrics"
	"pharmacart/storefront-service/internal/app/storefront/checkout"
	"pharmacart/storefront-service/internal/app/storefront/entity"
	"pharmacart/storefront-service/internal/app/storefront/infrastructure"
	"pharmacart/storefront-service/internal/app/storefront/repository"
)

// OrderService - сборка заказа в черновик и его подтверждение
type OrderService struct {
	assembler OrderAssembler
	orders    repository.OrderRepository
	products  repository.ProductRepository
	drafts    infrastructure.DraftStore
	carts     Carts
	publisher infrastructure.MessagePublisher
}

func NewOrderService(
	assembler OrderAssembler,
	orders repository.OrderRepository,
	products repository.ProductRepository,
	drafts infrastructure.DraftStore,
	carts Carts,
	publisher infrastructure.MessagePublisher,
) *OrderService {
	return &OrderService{
		assembler: assembler,
		orders:    orders,
		products:  products,
		drafts:    drafts,
		carts:     carts,
		publisher: publisher,
	}
}

// Assemble собирает заказ и кладет его черновиком в Redis.
// Товар прямой покупки читается из хранилища, корзина - из снапшота сессии.
func (s *OrderService) Assemble(ctx context.Context, userID string, req *entity.AssembleOrderRequest) (*entity.Order, error) {
	intent := checkout.Intent{
		DeliveryFee:     req.DeliveryFee,
		Tax:             req.Tax,
		Payment:         entity.PaymentMethod{Type: entity.PaymentType(req.PaymentMethod), Reference: req.PaymentReference},
		DeliveryAddress: req.DeliveryAddress,
	}

	switch {
	case req.DirectBuy != nil && req.DirectBuy.ProductID != "":
		product, err := s.products.GetByID(ctx, req.DirectBuy.ProductID)
		if err != nil {
			if errors.Is(err, repository.ErrProductNotFound) {
				return nil, ErrProductNotFound
			}
			return nil, err
		}
		intent.DirectBuy = &checkout.DirectBuy{Product: *product, Quantity: req.DirectBuy.Quantity}

	case req.Prescription != nil && len(req.Prescription.Items) > 0:
		intent.Prescription = prescriptionIntent(req.Prescription)

	default:
		items, err := s.carts.CartItems(ctx, userID)
		if err != nil {
			return nil, err
		}
		intent.Cart = items
	}

	order, err := s.assembler.Assemble(ctx, userID, intent)
	if err != nil {
		return nil, err
	}

	if err := s.drafts.SaveDraft(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to save order draft: %w", err)
	}
	return order, nil
}

func prescriptionIntent(req *entity.PrescriptionRequest) *checkout.Prescription {
	p := &checkout.Prescription{
		PharmacyName: req.PharmacyName,
		TotalPrice:   req.TotalPrice,
	}
	for _, it := range req.Items {
		p.Items = append(p.Items, entity.OrderProduct{
			ID:       it.ProductID,
			Name:     it.Name,
			Image:    it.Image,
			Price:    it.Price,
			Quantity: it.Quantity,
		})
	}
	if req.PrescriptionID != "" || req.ImageURL != "" || req.DoctorName != "" || req.Notes != "" {
		p.Info = &entity.PrescriptionInfo{
			PrescriptionID: req.PrescriptionID,
			ImageURL:       req.ImageURL,
			DoctorName:     req.DoctorName,
			Notes:          req.Notes,
		}
	}
	return p
}

// Confirm сохраняет черновик как заказ. Повторное подтверждение того же id
// возвращает уже сохраненный заказ без повторных побочных эффектов.
func (s *OrderService) Confirm(ctx context.Context, userID, orderID string) (*entity.Order, error) {
	draft, err := s.drafts.GetDraft(ctx, orderID)
	if err != nil {
		if errors.Is(err, infrastructure.ErrDraftNotFound) {
			if existing, getErr := s.Get(ctx, userID, orderID); getErr == nil && existing.UserID == userID {
				return existing, nil
			}
		}
		return nil, err
	}
	if draft.UserID != userID {
		return nil, ErrForbidden
	}

	draft.OrderDate = time.Now().UTC()
	if err := s.orders.Create(ctx, draft); err != nil {
		if errors.Is(err, repository.ErrOrderExists) {
			return s.orders.GetByID(ctx, orderID)
		}
		return nil, fmt.Errorf("failed to confirm order: %w", err)
	}

	metrics.OrdersConfirmed.Inc()
	metrics.OrdersTotal.Add(draft.TotalPrice)

	if draft.OrderType == entity.OrderTypeCart {
		if err := s.carts.ClearCart(ctx, userID); err != nil {
			logger.Error().Err(err).Str("order_id", draft.ID).Str("user_id", userID).Msg("Order placed but cart was not cleared")
		}
	}

	event := entity.OrderEvent{
		EventType:    entity.EventTypeOrderCreated,
		OrderID:      draft.ID,
		UserID:       draft.UserID,
		OrderType:    draft.OrderType,
		PharmacyID:   draft.PharmacyID,
		PharmacyName: draft.PharmacyName,
		TotalPrice:   draft.TotalPrice,
		ItemsCount:   draft.ItemCount(),
		Status:       draft.Status,
		Timestamp:    time.Now().UTC(),
	}
	if err := publishJSON(ctx, s.publisher, draft.ID, event); err != nil {
		logger.Error().Err(err).Str("order_id", draft.ID).Msg("Failed to publish order created event")
	}

	if err := s.drafts.DeleteDraft(ctx, draft.ID); err != nil {
		logger.Warn().Err(err).Str("order_id", draft.ID).Msg("Failed to delete order draft")
	}

	logger.Info().
		Str("order_id", draft.ID).
		Str("user_id", userID).
		Str("pharmacy_id", draft.PharmacyID).
		Float64("total_price", draft.TotalPrice).
		Msg("Order confirmed")
	return draft, nil
}

// Get - заказ видит покупатель и привязанная аптека
func (s *OrderService) Get(ctx context.Context, userID, orderID string) (*entity.Order, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	if order.UserID != userID && (order.PharmacyID == "" || order.PharmacyID != userID) {
		return nil, ErrForbidden
	}
	return order, nil
}

func (s *OrderService) ListMine(ctx context.Context, userID string) ([]entity.Order, error) {
	return s.orders.ListByUser(ctx, userID)
}

func (s *OrderService) ListForPharmacy(ctx context.Context, pharmacyID string) ([]entity.Order, error) {
	return s.orders.ListByPharmacy(ctx, pharmacyID)
}
