// Package session заменяет глобальный контекст аккаунта явным объектом сессии.
// Сессия живет от входа до выхода, гейт и корзина получают ее в конструкторе.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"pharmacart/storefront-service/internal/app/storefront/entity"
	"pharmacart/storefront-service/internal/app/storefront/gate"
)

var ErrNotAuthenticated = errors.New("not authenticated")

type State int

const (
	StateLoading State = iota
	StateSignedIn
	StateSignedOut
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateSignedIn:
		return "signed_in"
	default:
		return "signed_out"
	}
}

// Identity - то, что известно о пользователе из токена
type Identity struct {
	UID      string
	Email    string
	Name     string
	RoleHint string
}

type Session struct {
	identity Identity

	mu        sync.RWMutex
	state     State
	account   *entity.Account
	loadErr   error
	lastSeen  time.Time
	holds     int
	onSignOut []func()

	// закрывается при выходе из Loading
	ready chan struct{}
}

func newSession(identity Identity) *Session {
	return &Session{
		identity: identity,
		state:    StateLoading,
		lastSeen: time.Now(),
		ready:    make(chan struct{}),
	}
}

func (s *Session) UID() string {
	return s.identity.UID
}

func (s *Session) Identity() Identity {
	return s.identity
}

func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Account возвращает копию профиля или nil, пока профиль не загружен
func (s *Session) Account() *entity.Account {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.account == nil {
		return nil
	}
	acc := *s.account
	return &acc
}

// AccessState - вход для гейта
func (s *Session) AccessState() gate.AccountState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	switch s.state {
	case StateLoading:
		return gate.AccountState{Loading: true}
	case StateSignedIn:
		return gate.StateOf(s.account)
	default:
		return gate.AccountState{}
	}
}

// Await ждет окончания загрузки профиля
func (s *Session) Await(ctx context.Context) (*entity.Account, error) {
	select {
	case <-s.ready:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state != StateSignedIn {
		if s.loadErr != nil {
			return nil, s.loadErr
		}
		return nil, ErrNotAuthenticated
	}
	acc := *s.account
	return &acc, nil
}

// Done закрывается, когда сессия покидает состояние Loading
func (s *Session) Done() <-chan struct{} {
	return s.ready
}

// OnSignOut регистрирует освобождение ресурса сессии.
// Для уже закрытой сессии fn вызывается сразу.
func (s *Session) OnSignOut(fn func()) {
	s.mu.Lock()
	if s.state == StateSignedOut {
		s.mu.Unlock()
		fn()
		return
	}
	s.onSignOut = append(s.onSignOut, fn)
	s.mu.Unlock()
}

func (s *Session) Touch() {
	s.mu.Lock()
	s.lastSeen = time.Now()
	s.mu.Unlock()
}

// Hold держит сессию активной, пока открыт долгий запрос (SSE поток).
// release идемпотентен и заново отсчитывает простой от момента закрытия.
func (s *Session) Hold() (release func()) {
	s.mu.Lock()
	s.holds++
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			s.holds--
			s.lastSeen = time.Now()
			s.mu.Unlock()
		})
	}
}

// idleBefore: сессия без удержаний и без запросов с cutoff
func (s *Session) idleBefore(cutoff time.Time) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.holds == 0 && s.lastSeen.Before(cutoff)
}

func (s *Session) resolve(account *entity.Account, err error) {
	s.mu.Lock()
	if s.state != StateLoading {
		s.mu.Unlock()
		return
	}
	if err != nil {
		s.loadErr = err
		s.mu.Unlock()
		s.signOut()
		return
	}
	s.account = account
	s.state = StateSignedIn
	close(s.ready)
	s.mu.Unlock()
}

// setAccount подменяет профиль после смены роли или верификации
func (s *Session) setAccount(account *entity.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateSignedIn {
		s.account = account
	}
}

func (s *Session) signOut() {
	s.mu.Lock()
	if s.state == StateSignedOut {
		s.mu.Unlock()
		return
	}
	wasLoading := s.state == StateLoading
	s.state = StateSignedOut
	s.account = nil
	hooks := s.onSignOut
	s.onSignOut = nil
	if wasLoading {
		close(s.ready)
	}
	s.mu.Unlock()

	// хуки в обратном порядке регистрации
	for i := len(hooks) - 1; i >= 0; i-- {
		hooks[i]()
	}
}
