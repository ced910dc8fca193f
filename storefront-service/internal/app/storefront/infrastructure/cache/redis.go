package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"pharmacart/pkg/metrics"
	"pharmacart/storefront-service/internal/app/storefront/entity"
	"pharmacart/storefront-service/internal/app/storefront/infrastructure"

	"github.com/redis/go-redis/v9"
)

const (
	serviceName = "storefront-service"

	pharmacyDirectoryKey  = "pharmacy_directory"
	pharmacyGenerationKey = "pharmacy_directory:gen"
	// служебное поле: справочник загружен, даже если аптек нет
	loadedField = "__loaded"

	draftKeyPrefix = "order_draft:"
)

type RedisClient struct {
	client   *redis.Client
	draftTTL time.Duration
}

func NewRedisClient(addr, password string, db int, draftTTL time.Duration) (*RedisClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewFromClient(client, draftTTL), nil
}

func NewFromClient(client *redis.Client, draftTTL time.Duration) *RedisClient {
	return &RedisClient{client: client, draftTTL: draftTTL}
}

func (r *RedisClient) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisClient) Close() error {
	return r.client.Close()
}

// =============================================================================
// Справочник аптек
// =============================================================================

func (r *RedisClient) LookupPharmacy(ctx context.Context, name string) (string, bool, error) {
	timer := metrics.NewRedisTimer(serviceName, metrics.RedisOpHGet)
	defer timer.ObserveDuration()

	vals, err := r.client.HMGet(ctx, pharmacyDirectoryKey, strings.ToLower(name), loadedField).Result()
	if err != nil {
		metrics.RecordRedisError(serviceName, metrics.RedisOpHGet)
		return "", false, fmt.Errorf("failed to read pharmacy directory: %w", err)
	}

	if vals[1] == nil {
		metrics.RecordCacheMiss(serviceName, pharmacyDirectoryKey)
		return "", false, nil
	}
	metrics.RecordCacheHit(serviceName, pharmacyDirectoryKey)

	id, _ := vals[0].(string)
	return id, true, nil
}

func (r *RedisClient) PharmacyGeneration(ctx context.Context) (int64, error) {
	timer := metrics.NewRedisTimer(serviceName, metrics.RedisOpGet)
	defer timer.ObserveDuration()

	gen, err := r.client.Get(ctx, pharmacyGenerationKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		metrics.RecordRedisError(serviceName, metrics.RedisOpGet)
		return 0, fmt.Errorf("failed to read pharmacy directory generation: %w", err)
	}
	return gen, nil
}

// StorePharmacies заменяет справочник целиком под WATCH на счетчике поколений
func (r *RedisClient) StorePharmacies(ctx context.Context, byName map[string]string, gen int64, ttl time.Duration) (bool, error) {
	timer := metrics.NewRedisTimer(serviceName, metrics.RedisOpHSet)
	defer timer.ObserveDuration()

	fields := make(map[string]interface{}, len(byName)+1)
	for name, id := range byName {
		fields[strings.ToLower(name)] = id
	}
	fields[loadedField] = time.Now().UTC().Format(time.RFC3339)

	stored := false
	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, pharmacyGenerationKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if cur != gen {
			return nil
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, pharmacyDirectoryKey)
			pipe.HSet(ctx, pharmacyDirectoryKey, fields)
			if ttl > 0 {
				pipe.Expire(ctx, pharmacyDirectoryKey, ttl)
			}
			return nil
		})
		if err == nil {
			stored = true
		}
		return err
	}, pharmacyGenerationKey)

	if errors.Is(err, redis.TxFailedErr) {
		// сброс пришел между WATCH и EXEC
		return false, nil
	}
	if err != nil {
		metrics.RecordRedisError(serviceName, metrics.RedisOpHSet)
		return false, fmt.Errorf("failed to store pharmacy directory: %w", err)
	}
	return stored, nil
}

// InvalidatePharmacies сбрасывает справочник и сдвигает поколение,
// чтобы скан, начатый до сброса, не записался поверх
func (r *RedisClient) InvalidatePharmacies(ctx context.Context) error {
	timer := metrics.NewRedisTimer(serviceName, metrics.RedisOpDel)
	defer timer.ObserveDuration()

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, pharmacyGenerationKey)
		pipe.Del(ctx, pharmacyDirectoryKey)
		return nil
	})
	if err != nil {
		metrics.RecordRedisError(serviceName, metrics.RedisOpDel)
		return fmt.Errorf("failed to invalidate pharmacy directory: %w", err)
	}
	return nil
}

// =============================================================================
// Черновики заказов
// =============================================================================

func draftKey(id string) string {
	return draftKeyPrefix + id
}

func (r *RedisClient) SaveDraft(ctx context.Context, order *entity.Order) error {
	data, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("failed to marshal order draft: %w", err)
	}

	timer := metrics.NewRedisTimer(serviceName, metrics.RedisOpSet)
	defer timer.ObserveDuration()

	if err := r.client.Set(ctx, draftKey(order.ID), data, r.draftTTL).Err(); err != nil {
		metrics.RecordRedisError(serviceName, metrics.RedisOpSet)
		return fmt.Errorf("failed to save order draft: %w", err)
	}
	return nil
}

func (r *RedisClient) GetDraft(ctx context.Context, id string) (*entity.Order, error) {
	timer := metrics.NewRedisTimer(serviceName, metrics.RedisOpGet)
	defer timer.ObserveDuration()

	data, err := r.client.Get(ctx, draftKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			metrics.RecordCacheMiss(serviceName, draftKeyPrefix)
			return nil, infrastructure.ErrDraftNotFound
		}
		metrics.RecordRedisError(serviceName, metrics.RedisOpGet)
		return nil, fmt.Errorf("failed to get order draft: %w", err)
	}
	metrics.RecordCacheHit(serviceName, draftKeyPrefix)

	var order entity.Order
	if err := json.Unmarshal(data, &order); err != nil {
		return nil, fmt.Errorf("failed to unmarshal order draft: %w", err)
	}
	return &order, nil
}

func (r *RedisClient) DeleteDraft(ctx context.Context, id string) error {
	timer := metrics.NewRedisTimer(serviceName, metrics.RedisOpDel)
	defer timer.ObserveDuration()

	if err := r.client.Del(ctx, draftKey(id)).Err(); err != nil {
		metrics.RecordRedisError(serviceName, metrics.RedisOpDel)
		return fmt.Errorf("failed to delete order draft: %w", err)
	}
	return nil
}
