package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pharmacart/storefront-service/internal/app/storefront/docstore"
	"pharmacart/storefront-service/internal/app/storefront/entity"
)

type accountRepository struct {
	store docstore.Store
}

func NewAccountRepository(store docstore.Store) AccountRepository {
	return &accountRepository{store: store}
}

func (r *accountRepository) GetByID(ctx context.Context, uid string) (*entity.Account, error) {
	raw, err := r.store.Get(ctx, CollectionAccounts, uid)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return docstore.Decode[entity.Account](raw)
}

func (r *accountRepository) Create(ctx context.Context, account *entity.Account) error {
	if err := validateRole(account); err != nil {
		return err
	}

	now := time.Now().UTC()
	account.CreatedAt = now
	account.UpdatedAt = now

	if err := r.store.Create(ctx, CollectionAccounts, account.UID, account); err != nil {
		if errors.Is(err, docstore.ErrAlreadyExists) {
			return ErrAccountExists
		}
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

func (r *accountRepository) Update(ctx context.Context, account *entity.Account) error {
	if err := validateRole(account); err != nil {
		return err
	}

	account.UpdatedAt = time.Now().UTC()
	if err := r.store.Put(ctx, CollectionAccounts, account.UID, account); err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}
	return nil
}

// ListByRole находит аккаунты роли в любом написании; роль нормализуется при декодировании
func (r *accountRepository) ListByRole(ctx context.Context, role entity.Role) ([]entity.Account, error) {
	spellings := role.Spellings()
	values := make([]interface{}, 0, len(spellings))
	for _, s := range spellings {
		values = append(values, s)
	}

	raws, err := r.store.Find(ctx, docstore.Query{
		Collection: CollectionAccounts,
		Where:      []docstore.Filter{docstore.In("role", values...)},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	return docstore.DecodeAll[entity.Account](raws)
}

// validateRole - роль пишется в хранилище только в каноничном виде
func validateRole(account *entity.Account) error {
	role, err := entity.ParseRole(string(account.Role))
	if err != nil {
		return err
	}
	account.Role = role
	return nil
}
