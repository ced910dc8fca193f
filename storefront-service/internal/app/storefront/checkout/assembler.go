// Package checkout собирает из намерения покупки один канонический заказ.
// Сборка ничего не сохраняет и может повторяться сколько угодно раз.
package checkout

import (
	"context"
	"errors"
	"math"
	"time"

	"pharmacart/pkg/logger"
	"pharmacart/pkg/metrics"
	"pharmacart/storefront-service/internal/app/storefront/entity"
	"pharmacart/storefront-service/internal/app/storefront/session"

	"github.com/google/uuid"
)

var (
	ErrEmptyOrder               = errors.New("order has no items")
	ErrInvalidPayment           = errors.New("unsupported payment method")
	ErrPaymentReferenceRequired = errors.New("payment reference is required for this payment method")
)

// DirectBuy - покупка одного товара со страницы товара
type DirectBuy struct {
	Product  entity.Product
	Quantity int
}

// Prescription - список товаров по рецепту; TotalPrice уже посчитан аптекой
type Prescription struct {
	Items        []entity.OrderProduct
	PharmacyName string
	TotalPrice   *float64
	Info         *entity.PrescriptionInfo
}

// Intent - источник товаров. Используется первый непустой:
// DirectBuy, затем Prescription, затем Cart.
type Intent struct {
	DirectBuy       *DirectBuy
	Prescription    *Prescription
	Cart            []entity.CartItem
	DeliveryFee     *float64
	Tax             *float64
	Payment         entity.PaymentMethod
	DeliveryAddress string
}

type Defaults struct {
	DeliveryFee float64
	Tax         float64
}

type PharmacyResolver interface {
	Resolve(ctx context.Context, name string) (string, error)
}

type Assembler struct {
	resolver PharmacyResolver
	defaults Defaults
	now      func() time.Time
	newID    func() string
}

func NewAssembler(resolver PharmacyResolver, defaults Defaults) *Assembler {
	return &Assembler{
		resolver: resolver,
		defaults: defaults,
		now:      func() time.Time { return time.Now().UTC() },
		newID:    uuid.NewString,
	}
}

// lines - выбранный источник, приведенный к строкам заказа
type lines struct {
	orderType     entity.OrderType
	items         []entity.OrderProduct
	pharmacyName  string
	providedTotal *float64
	prescription  *entity.PrescriptionInfo
}

func (a *Assembler) Assemble(ctx context.Context, userID string, intent Intent) (*entity.Order, error) {
	if userID == "" {
		return nil, session.ErrNotAuthenticated
	}

	src, ok := selectSource(intent)
	if !ok {
		return nil, ErrEmptyOrder
	}

	payment, err := normalizePayment(intent.Payment)
	if err != nil {
		return nil, err
	}

	order := &entity.Order{
		ID:              a.newID(),
		UserID:          userID,
		Items:           src.items,
		OrderType:       src.orderType,
		PharmacyName:    src.pharmacyName,
		Status:          entity.OrderStatusPending,
		OrderDate:       a.now(),
		PaymentMethod:   payment,
		DeliveryAddress: intent.DeliveryAddress,
		Prescription:    src.prescription,
	}

	order.DeliveryFee = a.defaults.DeliveryFee
	if intent.DeliveryFee != nil {
		order.DeliveryFee = *intent.DeliveryFee
	}
	order.Tax = a.defaults.Tax
	if intent.Tax != nil {
		order.Tax = *intent.Tax
	}

	for _, it := range order.Items {
		order.Subtotal += it.Price * float64(it.Quantity)
	}
	order.Subtotal = roundCents(order.Subtotal)
	if src.providedTotal != nil {
		order.TotalPrice = *src.providedTotal
	} else {
		order.TotalPrice = roundCents(order.Subtotal + order.DeliveryFee + order.Tax)
	}

	order.PharmacyID = a.resolvePharmacy(ctx, order)

	metrics.OrdersAssembled.WithLabelValues(string(order.OrderType)).Inc()
	logger.Info().
		Str("order_id", order.ID).
		Str("user_id", userID).
		Str("order_type", string(order.OrderType)).
		Str("pharmacy_id", order.PharmacyID).
		Float64("total_price", order.TotalPrice).
		Msg("Order assembled")

	return order, nil
}

// resolvePharmacy: ненайденная аптека и ошибка поиска не прерывают сборку
func (a *Assembler) resolvePharmacy(ctx context.Context, order *entity.Order) string {
	if order.PharmacyName == "" || a.resolver == nil {
		return ""
	}

	id, err := a.resolver.Resolve(ctx, order.PharmacyName)
	if err != nil {
		logger.Error().Err(err).Str("order_id", order.ID).Str("pharmacy_name", order.PharmacyName).
			Msg("Pharmacy lookup failed, order left for manual triage")
	} else if id == "" {
		logger.Warn().Str("order_id", order.ID).Str("pharmacy_name", order.PharmacyName).
			Msg("Pharmacy not found, order left for manual triage")
	}
	if id == "" {
		metrics.PharmacyUnresolved.Inc()
	}
	return id
}

func selectSource(intent Intent) (lines, bool) {
	if d := intent.DirectBuy; d != nil && d.Product.ID != "" {
		qty := d.Quantity
		if qty < 1 {
			qty = 1
		}
		return lines{
			orderType:    entity.OrderTypeDirectBuy,
			items:        []entity.OrderProduct{snapshot(d.Product, qty)},
			pharmacyName: d.Product.PharmacyName,
		}, true
	}

	if p := intent.Prescription; p != nil && len(p.Items) > 0 {
		items := make([]entity.OrderProduct, len(p.Items))
		copy(items, p.Items)
		return lines{
			orderType:     entity.OrderTypePrescription,
			items:         items,
			pharmacyName:  p.PharmacyName,
			providedTotal: p.TotalPrice,
			prescription:  p.Info,
		}, true
	}

	if len(intent.Cart) > 0 {
		items := make([]entity.OrderProduct, 0, len(intent.Cart))
		for _, it := range intent.Cart {
			items = append(items, snapshot(it.Product, it.Quantity))
		}
		return lines{
			orderType:    entity.OrderTypeCart,
			items:        items,
			pharmacyName: intent.Cart[0].Product.PharmacyName,
		}, true
	}

	return lines{}, false
}

func snapshot(p entity.Product, qty int) entity.OrderProduct {
	return entity.OrderProduct{
		ID:       p.ID,
		Name:     p.Name,
		Image:    p.Image,
		Price:    p.Price,
		Quantity: qty,
	}
}

func normalizePayment(pm entity.PaymentMethod) (entity.PaymentMethod, error) {
	switch pm.Type {
	case "", entity.PaymentCashOnDelivery:
		return entity.PaymentMethod{Type: entity.PaymentCashOnDelivery}, nil
	case entity.PaymentVodafoneCash:
		if pm.Reference == "" {
			return entity.PaymentMethod{}, ErrPaymentReferenceRequired
		}
		return pm, nil
	default:
		return entity.PaymentMethod{}, ErrInvalidPayment
	}
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
