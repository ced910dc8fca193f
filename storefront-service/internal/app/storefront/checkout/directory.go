package checkout

import (
	"context"
	"fmt"
	"strings"
	"time"

	"pharmacart/pkg/logger"
	"pharmacart/storefront-service/internal/app/storefront/entity"
	"pharmacart/storefront-service/internal/app/storefront/infrastructure"
	"pharmacart/storefront-service/internal/app/storefront/repository"
)

// PharmacyDirectory ищет аккаунт аптеки по имени без учета регистра.
// Скан аккаунтов кешируется в Redis целиком.
type PharmacyDirectory struct {
	accounts repository.AccountRepository
	cache    infrastructure.PharmacyCache
	ttl      time.Duration
}

func NewPharmacyDirectory(accounts repository.AccountRepository, cache infrastructure.PharmacyCache, ttl time.Duration) *PharmacyDirectory {
	return &PharmacyDirectory{
		accounts: accounts,
		cache:    cache,
		ttl:      ttl,
	}
}

// Resolve возвращает uid аптеки или пустую строку, если имя не найдено
func (d *PharmacyDirectory) Resolve(ctx context.Context, name string) (string, error) {
	key := normalizeName(name)
	if key == "" {
		return "", nil
	}

	if d.cache != nil {
		id, loaded, err := d.cache.LookupPharmacy(ctx, key)
		if err != nil {
			logger.Warn().Err(err).Msg("Pharmacy directory cache unavailable, scanning accounts")
		} else if loaded {
			return id, nil
		}
	}

	byName, err := d.rebuild(ctx)
	if err != nil {
		return "", err
	}
	return byName[key], nil
}

// Refresh пересобирает кеш справочника
func (d *PharmacyDirectory) Refresh(ctx context.Context) (int, error) {
	byName, err := d.rebuild(ctx)
	if err != nil {
		return 0, err
	}
	return len(byName), nil
}

// Invalidate сбрасывает кеш после верификации аптеки
func (d *PharmacyDirectory) Invalidate(ctx context.Context) error {
	if d.cache == nil {
		return nil
	}
	return d.cache.InvalidatePharmacies(ctx)
}

// scan: аккаунты приходят в порядке uid, при совпадении имен побеждает первый
func (d *PharmacyDirectory) scan(ctx context.Context) (map[string]string, error) {
	pharmacies, err := d.accounts.ListByRole(ctx, entity.RolePharmacy)
	if err != nil {
		return nil, fmt.Errorf("failed to list pharmacies: %w", err)
	}

	byName := make(map[string]string, len(pharmacies))
	for _, acc := range pharmacies {
		key := normalizeName(pharmacyName(&acc))
		if key == "" {
			continue
		}
		if _, taken := byName[key]; !taken {
			byName[key] = acc.UID
		}
	}
	return byName, nil
}

// rebuild сканирует аккаунты и кладет результат в кеш.
// Поколение читается до скана: если между ними был Invalidate, скан в кеш не попадает.
func (d *PharmacyDirectory) rebuild(ctx context.Context) (map[string]string, error) {
	var (
		gen    int64
		genErr error
	)
	if d.cache != nil {
		gen, genErr = d.cache.PharmacyGeneration(ctx)
	}

	byName, err := d.scan(ctx)
	if err != nil {
		return nil, err
	}

	if d.cache == nil {
		return byName, nil
	}
	if genErr != nil {
		logger.Warn().Err(genErr).Msg("Pharmacy directory generation unavailable, skipping cache")
		return byName, nil
	}
	stored, err := d.cache.StorePharmacies(ctx, byName, gen, d.ttl)
	switch {
	case err != nil:
		logger.Warn().Err(err).Msg("Failed to cache pharmacy directory")
	case !stored:
		logger.Debug().Int64("generation", gen).Msg("Pharmacy directory changed during scan, cache left empty")
	}
	return byName, nil
}

func pharmacyName(acc *entity.Account) string {
	if acc.PharmacyInfo != nil && acc.PharmacyInfo.Name != "" {
		return acc.PharmacyInfo.Name
	}
	return acc.FullName
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
