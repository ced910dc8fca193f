package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"pharmacart/pkg/logger"
	"pharmacart/pkg/metrics"
	"pharmacart/storefront-service/internal/app/storefront/entity"
)

// AccountLoader возвращает аккаунт, создавая его при первом входе
type AccountLoader interface {
	LoadOrCreate(ctx context.Context, identity Identity) (*entity.Account, error)
}

// Registry - активные сессии по uid
type Registry struct {
	loader      AccountLoader
	loadTimeout time.Duration

	mu       sync.Mutex
	sessions map[string]*Session
	onSignIn []func(*Session)
}

func NewRegistry(loader AccountLoader, loadTimeout time.Duration) *Registry {
	if loadTimeout <= 0 {
		loadTimeout = 10 * time.Second
	}
	return &Registry{
		loader:      loader,
		loadTimeout: loadTimeout,
		sessions:    make(map[string]*Session),
	}
}

// OnSignIn вызывается для каждой новой сессии до загрузки профиля
func (r *Registry) OnSignIn(fn func(*Session)) {
	r.mu.Lock()
	r.onSignIn = append(r.onSignIn, fn)
	r.mu.Unlock()
}

// SignIn возвращает живую сессию uid или открывает новую в состоянии Loading
func (r *Registry) SignIn(identity Identity) (*Session, error) {
	if identity.UID == "" {
		return nil, ErrNotAuthenticated
	}

	r.mu.Lock()
	if s, ok := r.sessions[identity.UID]; ok && s.State() != StateSignedOut {
		r.mu.Unlock()
		s.Touch()
		return s, nil
	}

	s := newSession(identity)
	r.sessions[identity.UID] = s
	hooks := append([]func(*Session){}, r.onSignIn...)
	r.mu.Unlock()

	metrics.SessionsActive.Inc()
	for _, fn := range hooks {
		fn(s)
	}

	go r.load(s)
	return s, nil
}

func (r *Registry) load(s *Session) {
	ctx, cancel := context.WithTimeout(context.Background(), r.loadTimeout)
	defer cancel()

	account, err := r.loader.LoadOrCreate(ctx, s.identity)
	if err != nil {
		logger.Error().Err(err).Str("user_id", s.UID()).Msg("Failed to load account for session")
		r.drop(s)
		s.resolve(nil, fmt.Errorf("failed to load account: %w", err))
		return
	}
	s.resolve(account, nil)
	logger.Debug().Str("user_id", s.UID()).Str("role", string(account.Role)).Msg("Session signed in")
}

func (r *Registry) Get(uid string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[uid]
	if !ok || s.State() == StateSignedOut {
		return nil, false
	}
	return s, true
}

// SignOut закрывает сессию и освобождает ее подписки
func (r *Registry) SignOut(uid string) bool {
	r.mu.Lock()
	s, ok := r.sessions[uid]
	if ok {
		delete(r.sessions, uid)
	}
	r.mu.Unlock()

	if !ok {
		return false
	}
	metrics.SessionsActive.Dec()
	s.signOut()
	logger.Debug().Str("user_id", uid).Msg("Session signed out")
	return true
}

// Refresh перечитывает профиль, чтобы гейт увидел новые флаги
func (r *Registry) Refresh(ctx context.Context, uid string) (*entity.Account, error) {
	s, ok := r.Get(uid)
	if !ok {
		return nil, ErrNotAuthenticated
	}
	account, err := r.loader.LoadOrCreate(ctx, s.identity)
	if err != nil {
		return nil, fmt.Errorf("failed to refresh account: %w", err)
	}
	s.setAccount(account)
	return account, nil
}

// Update кладет в сессию уже известный свежий профиль
func (r *Registry) Update(account *entity.Account) {
	if account == nil {
		return
	}
	if s, ok := r.Get(account.UID); ok {
		s.setAccount(account)
	}
}

// EvictIdle закрывает сессии без активности дольше maxIdle
func (r *Registry) EvictIdle(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)

	r.mu.Lock()
	var idle []string
	for uid, s := range r.sessions {
		if s.State() != StateLoading && s.idleBefore(cutoff) {
			idle = append(idle, uid)
		}
	}
	r.mu.Unlock()

	evicted := 0
	for _, uid := range idle {
		if r.SignOut(uid) {
			evicted++
		}
	}
	if evicted > 0 {
		logger.Info().Int("evicted", evicted).Msg("Idle sessions evicted")
	}
	return evicted
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Close закрывает все сессии
func (r *Registry) Close() {
	r.mu.Lock()
	uids := make([]string, 0, len(r.sessions))
	for uid := range r.sessions {
		uids = append(uids, uid)
	}
	r.mu.Unlock()

	for _, uid := range uids {
		r.SignOut(uid)
	}
}

func (r *Registry) drop(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.sessions[s.UID()]; ok && cur == s {
		delete(r.sessions, s.UID())
		metrics.SessionsActive.Dec()
	}
}
