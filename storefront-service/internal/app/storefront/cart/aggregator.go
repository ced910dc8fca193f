// Package cart держит строки корзины аккаунта синхронными с хранилищем.
// Запись уходит в хранилище, а локальное состояние меняется только
// снапшотом подписки, поэтому чтения согласованы в конечном счете.
package cart

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"pharmacart/pkg/logger"
	"pharmacart/pkg/metrics"
	"pharmacart/storefront-service/internal/app/storefront/docstore"
	"pharmacart/storefront-service/internal/app/storefront/entity"
	"pharmacart/storefront-service/internal/app/storefront/repository"
	"pharmacart/storefront-service/internal/app/storefront/session"
)

var (
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
	ErrCartNotLoaded   = errors.New("cart is still loading")
)

// Snapshot - последнее доставленное состояние корзины
type Snapshot struct {
	Items      []entity.CartItem
	TotalItems int
	TotalPrice float64
	Version    uint64
}

func newSnapshot(items []entity.CartItem, version uint64) Snapshot {
	s := Snapshot{Items: items, Version: version}
	for _, it := range items {
		s.TotalItems += it.Quantity
		s.TotalPrice += it.LineTotal()
	}
	return s
}

type Aggregator struct {
	sess *session.Session
	repo repository.CartRepository

	mu       sync.RWMutex
	snapshot Snapshot
	sub      docstore.Subscription
	// gen отсекает снапшоты закрытой подписки
	gen      uint64
	starting bool
	stopped  bool
	changed  chan struct{}
	streams  map[chan Snapshot]struct{}
}

func NewAggregator(sess *session.Session, repo repository.CartRepository) *Aggregator {
	return &Aggregator{
		sess:    sess,
		repo:    repo,
		changed: make(chan struct{}),
		streams: make(map[chan Snapshot]struct{}),
	}
}

// Start ждет входа и открывает единственную подписку на строки аккаунта.
// Открытие подписки идет без блокировки, чтения в это время не ждут.
func (a *Aggregator) Start(ctx context.Context) error {
	if _, err := a.sess.Await(ctx); err != nil {
		return err
	}

	a.mu.Lock()
	if a.stopped {
		a.mu.Unlock()
		return session.ErrNotAuthenticated
	}
	if a.sub != nil || a.starting {
		a.mu.Unlock()
		return nil
	}
	a.starting = true
	a.gen++
	gen := a.gen
	a.mu.Unlock()

	sub, err := a.repo.Watch(context.Background(), a.sess.UID(), func(items []entity.CartItem) {
		a.deliver(gen, items)
	})

	a.mu.Lock()
	a.starting = false
	if err != nil {
		a.mu.Unlock()
		return fmt.Errorf("failed to subscribe to cart: %w", err)
	}
	if a.stopped || gen != a.gen {
		a.mu.Unlock()
		sub.Close()
		return session.ErrNotAuthenticated
	}
	a.sub = sub
	a.mu.Unlock()

	metrics.DocstoreSubscriptionsActive.WithLabelValues("storefront-service", repository.CollectionCartItems).Inc()
	return nil
}

// Stop отменяет подписку и очищает локальное состояние
func (a *Aggregator) Stop() {
	a.mu.Lock()
	if a.stopped {
		a.mu.Unlock()
		return
	}
	a.stopped = true
	a.gen++
	sub := a.sub
	a.sub = nil
	a.snapshot = Snapshot{Version: a.snapshot.Version + 1}
	a.broadcastLocked()
	for ch := range a.streams {
		close(ch)
		delete(a.streams, ch)
	}
	a.mu.Unlock()

	if sub != nil {
		sub.Close()
		metrics.DocstoreSubscriptionsActive.WithLabelValues("storefront-service", repository.CollectionCartItems).Dec()
	}
}

func (a *Aggregator) deliver(gen uint64, items []entity.CartItem) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if gen != a.gen || a.stopped {
		return
	}
	a.snapshot = newSnapshot(items, a.snapshot.Version+1)
	a.broadcastLocked()
}

func (a *Aggregator) broadcastLocked() {
	close(a.changed)
	a.changed = make(chan struct{})

	for ch := range a.streams {
		// в канале держим только последний снапшот
		select {
		case <-ch:
		default:
		}
		ch <- a.snapshot
	}
}

// =============================================================================
// Чтение
// =============================================================================

func (a *Aggregator) Snapshot() Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.snapshot
}

func (a *Aggregator) Items() []entity.CartItem {
	return a.Snapshot().Items
}

func (a *Aggregator) TotalItems() int {
	return a.Snapshot().TotalItems
}

func (a *Aggregator) TotalPrice() float64 {
	return a.Snapshot().TotalPrice
}

// WaitFor блокируется, пока доставленный снапшот не удовлетворит pred
func (a *Aggregator) WaitFor(ctx context.Context, pred func(Snapshot) bool) (Snapshot, error) {
	for {
		a.mu.RLock()
		snap, changed, stopped := a.snapshot, a.changed, a.stopped
		a.mu.RUnlock()

		if pred(snap) {
			return snap, nil
		}
		if stopped {
			return snap, session.ErrNotAuthenticated
		}
		select {
		case <-changed:
		case <-ctx.Done():
			return snap, ctx.Err()
		}
	}
}

// WaitForVersion ждет снапшот с версией не ниже v
func (a *Aggregator) WaitForVersion(ctx context.Context, v uint64) (Snapshot, error) {
	return a.WaitFor(ctx, func(s Snapshot) bool { return s.Version >= v })
}

// Loaded ждет первый снапшот подписки: до него пустая корзина не значит пустую корзину в хранилище.
// timeout <= 0 ограничивает ожидание только ctx.
func (a *Aggregator) Loaded(ctx context.Context, timeout time.Duration) (Snapshot, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	snap, err := a.WaitForVersion(ctx, 1)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return snap, fmt.Errorf("%w: %w", ErrCartNotLoaded, err)
		}
		return snap, err
	}

	a.mu.RLock()
	stopped := a.stopped
	a.mu.RUnlock()
	if stopped {
		return Snapshot{}, session.ErrNotAuthenticated
	}
	return snap, nil
}

// Stream отдает текущий и все последующие снапшоты, промежуточные могут теряться.
// Канал закрывается при выходе из сессии или вызове cancel.
func (a *Aggregator) Stream() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)

	a.mu.Lock()
	if a.stopped {
		close(ch)
		a.mu.Unlock()
		return ch, func() {}
	}
	ch <- a.snapshot
	a.streams[ch] = struct{}{}
	a.mu.Unlock()

	cancel := func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		if _, ok := a.streams[ch]; ok {
			delete(a.streams, ch)
			close(ch)
		}
	}
	return ch, cancel
}

// =============================================================================
// Мутации
// =============================================================================

func (a *Aggregator) Add(ctx context.Context, product entity.Product, qty int) error {
	if qty < 1 {
		record("add", "rejected")
		return ErrInvalidQuantity
	}
	uid, err := a.authorize(ctx, "add")
	if err != nil {
		return err
	}
	return a.finish("add", uid, a.repo.Increment(ctx, uid, product, qty))
}

func (a *Aggregator) Remove(ctx context.Context, productID string) error {
	uid, err := a.authorize(ctx, "remove")
	if err != nil {
		return err
	}
	return a.finish("remove", uid, a.repo.Remove(ctx, uid, productID))
}

// SetQuantity перезаписывает количество; qty <= 0 удаляет строку
func (a *Aggregator) SetQuantity(ctx context.Context, productID string, qty int) error {
	if qty <= 0 {
		return a.Remove(ctx, productID)
	}
	uid, err := a.authorize(ctx, "set_quantity")
	if err != nil {
		return err
	}
	return a.finish("set_quantity", uid, a.repo.SetQuantity(ctx, uid, productID, qty))
}

// Clear удаляет все строки одним батчем: либо все, либо ничего
func (a *Aggregator) Clear(ctx context.Context) error {
	uid, err := a.authorize(ctx, "clear")
	if err != nil {
		return err
	}
	return a.finish("clear", uid, a.repo.Clear(ctx, uid))
}

func (a *Aggregator) authorize(ctx context.Context, op string) (string, error) {
	a.mu.RLock()
	stopped := a.stopped
	a.mu.RUnlock()
	if stopped {
		record(op, "rejected")
		return "", session.ErrNotAuthenticated
	}

	if _, err := a.sess.Await(ctx); err != nil {
		record(op, "rejected")
		logger.Warn().Err(err).Str("operation", op).Msg("Cart mutation rejected: no signed-in account")
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", err
		}
		return "", session.ErrNotAuthenticated
	}
	return a.sess.UID(), nil
}

func (a *Aggregator) finish(op, uid string, err error) error {
	if err != nil {
		record(op, "failed")
		if !errors.Is(err, repository.ErrCartItemNotFound) {
			logger.Error().Err(err).Str("user_id", uid).Str("operation", op).Msg("Cart mutation failed")
		}
		return err
	}
	record(op, "success")
	return nil
}

func record(op, status string) {
	metrics.CartMutations.WithLabelValues(op, status).Inc()
}
