package infrastructure

import (
	"context"
	"errors"
	"time"

	"pharmacart/storefront-service/internal/app/storefront/entity"
)

var ErrDraftNotFound = errors.New("order draft not found or expired")

// MessagePublisher отправляет события в Kafka
type MessagePublisher interface {
	PublishMessage(ctx context.Context, key string, value []byte) error
	Close() error
}

// PharmacyCache - кеш справочника аптек: имя в нижнем регистре -> uid аккаунта
type PharmacyCache interface {
	// LookupPharmacy: loaded=false значит справочника в кеше нет и нужен скан
	LookupPharmacy(ctx context.Context, name string) (id string, loaded bool, err error)
	// PharmacyGeneration растет при каждом сбросе справочника
	PharmacyGeneration(ctx context.Context) (int64, error)
	// StorePharmacies пишет скан, только если поколение не сменилось с его начала.
	// stored=false: скан устарел и отброшен.
	StorePharmacies(ctx context.Context, byName map[string]string, gen int64, ttl time.Duration) (stored bool, err error)
	InvalidatePharmacies(ctx context.Context) error
}

// DraftStore хранит собранные, но еще не подтвержденные заказы
type DraftStore interface {
	SaveDraft(ctx context.Context, order *entity.Order) error
	GetDraft(ctx context.Context, id string) (*entity.Order, error)
	DeleteDraft(ctx context.Context, id string) error
}
