package cart

import (
	"context"
	"sync"
	"time"

	"pharmacart/pkg/logger"
	"pharmacart/storefront-service/internal/app/storefront/entity"
	"pharmacart/storefront-service/internal/app/storefront/repository"
	"pharmacart/storefront-service/internal/app/storefront/session"
)

// Manager держит по одной корзине на вошедший аккаунт
type Manager struct {
	repo repository.CartRepository
	// сколько чтение ждет первый снапшот новой сессии
	loadTimeout time.Duration

	mu    sync.Mutex
	carts map[string]*Aggregator
}

func NewManager(repo repository.CartRepository, loadTimeout time.Duration) *Manager {
	return &Manager{
		repo:        repo,
		loadTimeout: loadTimeout,
		carts:       make(map[string]*Aggregator),
	}
}

// Attach - хук Registry.OnSignIn: корзина живет ровно столько, сколько сессия
func (m *Manager) Attach(sess *session.Session) {
	agg := NewAggregator(sess, m.repo)

	m.mu.Lock()
	if prev, ok := m.carts[sess.UID()]; ok {
		prev.Stop()
	}
	m.carts[sess.UID()] = agg
	m.mu.Unlock()

	sess.OnSignOut(func() {
		agg.Stop()
		m.mu.Lock()
		if cur, ok := m.carts[sess.UID()]; ok && cur == agg {
			delete(m.carts, sess.UID())
		}
		m.mu.Unlock()
	})

	go func() {
		if err := agg.Start(context.Background()); err != nil {
			logger.Warn().Err(err).Str("user_id", sess.UID()).Msg("Cart subscription not started")
		}
	}()
}

// For возвращает корзину вошедшего аккаунта
func (m *Manager) For(uid string) (*Aggregator, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	agg, ok := m.carts[uid]
	if !ok {
		return nil, session.ErrNotAuthenticated
	}
	return agg, nil
}

func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.carts)
}

// Current - снапшот корзины аккаунта после первой доставки из хранилища
func (m *Manager) Current(ctx context.Context, uid string) (Snapshot, error) {
	agg, err := m.For(uid)
	if err != nil {
		return Snapshot{}, err
	}
	return agg.Loaded(ctx, m.loadTimeout)
}

// CartItems - строки корзины для оформления заказа
func (m *Manager) CartItems(ctx context.Context, uid string) ([]entity.CartItem, error) {
	snap, err := m.Current(ctx, uid)
	if err != nil {
		return nil, err
	}
	return snap.Items, nil
}

func (m *Manager) ClearCart(ctx context.Context, uid string) error {
	agg, err := m.For(uid)
	if err != nil {
		return err
	}
	return agg.Clear(ctx)
}
