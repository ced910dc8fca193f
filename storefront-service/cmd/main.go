package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"pharmacart/pkg/logger"
	"pharmacart/storefront-service/internal/app/storefront/cart"
	"pharmacart/storefront-service/internal/app/storefront/checkout"
	"pharmacart/storefront-service/internal/app/storefront/config"
	"pharmacart/storefront-service/internal/app/storefront/docstore"
	"pharmacart/storefront-service/internal/app/storefront/gate"
	"pharmacart/storefront-service/internal/app/storefront/handler"
	"pharmacart/storefront-service/internal/app/storefront/infrastructure/cache"
	"pharmacart/storefront-service/internal/app/storefront/infrastructure/messaging"
	"pharmacart/storefront-service/internal/app/storefront/processor"
	"pharmacart/storefront-service/internal/app/storefront/rating"
	"pharmacart/storefront-service/internal/app/storefront/repository"
	"pharmacart/storefront-service/internal/app/storefront/service"
	"pharmacart/storefront-service/internal/app/storefront/session"
)

const serviceName = "storefront-service"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(serviceName, cfg.Log.Level)
	if cfg.Log.LogstashAddr != "" {
		if err := logger.InitLogstash(cfg.Log.LogstashAddr, serviceName, cfg.Log.Level); err != nil {
			logger.Warn().Err(err).Msg("Failed to connect to Logstash, using stdout only")
		} else {
			logger.Info().Str("logstash_addr", cfg.Log.LogstashAddr).Msg("Connected to Logstash")
		}
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// === ДОКУМЕНТНОЕ ХРАНИЛИЩЕ ===
	store, err := openStore(ctx, cfg.Store)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to open document store")
	}
	defer func() {
		if err := store.Close(context.Background()); err != nil {
			logger.Error().Err(err).Msg("Error closing document store")
		}
	}()

	// === REDIS ===
	// справочник аптек и черновики заказов
	redisClient, err := connectRedis(cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer redisClient.Close()
	logger.Info().Str("address", cfg.Redis.Address()).Msg("Connected to Redis")

	// === KAFKA ===
	orderProducer := messaging.NewKafkaProducer(cfg.Kafka.Brokers, cfg.Kafka.OrderTopic)
	defer orderProducer.Close()
	reviewProducer := messaging.NewKafkaProducer(cfg.Kafka.Brokers, cfg.Kafka.ReviewTopic)
	defer reviewProducer.Close()
	logger.Info().
		Strs("brokers", cfg.Kafka.Brokers).
		Str("order_topic", cfg.Kafka.OrderTopic).
		Str("review_topic", cfg.Kafka.ReviewTopic).
		Msg("Initialized Kafka producers")

	// === РЕПОЗИТОРИИ ===
	accountRepo := repository.NewAccountRepository(store)
	productRepo := repository.NewProductRepository(store)
	reviewRepo := repository.NewReviewRepository(store)
	orderRepo := repository.NewOrderRepository(store)
	cartRepo := repository.NewCartRepository(store)

	// === ДОМЕН ===
	table := gate.DefaultTable()
	if cfg.Gate.RoutesFile != "" {
		table, err = gate.LoadTable(cfg.Gate.RoutesFile)
		if err != nil {
			logger.Fatal().Err(err).Str("file", cfg.Gate.RoutesFile).Msg("Failed to load gate routes")
		}
		logger.Info().Str("file", cfg.Gate.RoutesFile).Msg("Loaded gate routes")
	}

	directory := checkout.NewPharmacyDirectory(accountRepo, redisClient, cfg.Redis.DirectoryTTL)
	accountService := service.NewAccountService(accountRepo, directory)

	registry := session.NewRegistry(accountService, cfg.Session.LoadTimeout)
	cartManager := cart.NewManager(cartRepo, cfg.Session.AwaitTimeout)
	registry.OnSignIn(cartManager.Attach)

	ratings := rating.NewAggregator(reviewRepo, productRepo)
	assembler := checkout.NewAssembler(directory, checkout.Defaults{
		DeliveryFee: cfg.Order.DefaultDeliveryFee,
		Tax:         cfg.Order.DefaultTax,
	})

	catalogService := service.NewCatalogService(productRepo)
	reviewService := service.NewReviewService(reviewRepo, productRepo, ratings, reviewProducer)
	orderService := service.NewOrderService(assembler, orderRepo, productRepo, redisClient, cartManager, orderProducer)

	// === ФОНОВЫЕ ЗАДАЧИ ===
	reviewConsumer := processor.NewReviewConsumer(cfg.Kafka.Brokers, cfg.Kafka.ReviewTopic, cfg.Kafka.ConsumerGroup, ratings)
	reviewConsumer.Start(ctx)
	defer reviewConsumer.Stop()
	logger.Info().
		Str("topic", cfg.Kafka.ReviewTopic).
		Str("group", cfg.Kafka.ConsumerGroup).
		Msg("Review consumer started")

	scheduler := processor.NewCronScheduler(ratings, directory, registry)
	if err := scheduler.Start(ctx, processor.Schedules{
		RatingReconcile:  cfg.Cron.RatingReconcile,
		DirectoryRefresh: cfg.Cron.DirectoryRefresh,
		SessionEviction:  cfg.Cron.SessionEviction,
		SessionIdleTTL:   cfg.Session.IdleTTL,
	}); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start cron scheduler")
	}
	defer scheduler.Stop()

	// === HTTP ===
	router := handler.SetupRoutes(handler.Handlers{
		Auth:     handler.NewAuthMiddleware(cfg.JWT.Secret, registry),
		Gate:     handler.NewGateMiddleware(table, cfg.Session.AwaitTimeout),
		Accounts: handler.NewAccountHandler(accountService, registry, table),
		Carts:    handler.NewCartHandler(cartManager, catalogService, cfg.Server.CartSettle),
		Catalog:  handler.NewCatalogHandler(catalogService, reviewService),
		Orders:   handler.NewOrderHandler(orderService),
		Health: []handler.HealthCheck{
			{Name: "store", Check: store.Ping},
			{Name: "redis", Check: redisClient.Ping},
		},
	}, cfg.Server.AllowOrigins)

	server := &http.Server{
		Addr:        cfg.Server.Address(),
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		// без WriteTimeout: /cart/stream держит соединение
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		logger.Info().
			Str("address", cfg.Server.Address()).
			Str("store", cfg.Store.Driver).
			Msg("Starting Storefront Service")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// === GRACEFUL SHUTDOWN ===
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down Storefront Service...")

	// закрываем SSE потоки до остановки сервера
	stop()
	registry.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Server forced to shutdown")
	}

	logger.Info().Msg("Storefront Service stopped gracefully")
}

// openStore выбирает реализацию хранилища по STORE_DRIVER
func openStore(ctx context.Context, cfg config.StoreConfig) (docstore.Store, error) {
	if cfg.Driver == "memory" {
		logger.Warn().Msg("Using in-memory document store, data is not persisted")
		return docstore.NewMemoryStore(), nil
	}

	client, err := connectMongoDB(cfg)
	if err != nil {
		return nil, err
	}
	logger.Info().Str("database", cfg.Database).Msg("Connected to MongoDB")

	store := docstore.NewMongoStore(client, cfg.Database)

	indexes := []struct{ collection, field string }{
		{repository.CollectionAccounts, "role"},
		{repository.CollectionProducts, "category"},
		{repository.CollectionProducts, "pharmacy_name"},
		{repository.CollectionReviews, "product_id"},
		{repository.CollectionOrders, "user_id"},
		{repository.CollectionOrders, "pharmacy_id"},
		{repository.CollectionCartItems, "account_id"},
	}
	for _, idx := range indexes {
		if err := store.EnsureIndex(ctx, idx.collection, idx.field); err != nil {
			logger.Warn().Err(err).
				Str("collection", idx.collection).
				Str("field", idx.field).
				Msg("Failed to ensure index")
		}
	}

	return store, nil
}

func connectMongoDB(cfg config.StoreConfig) (*mongo.Client, error) {
	clientOptions := options.Client().ApplyURI(cfg.MongoURI)

	var client *mongo.Client
	var err error

	for i := 0; i < 10; i++ {
		client, err = tryConnectMongoDB(clientOptions)
		if err == nil {
			return client, nil
		}

		logger.Warn().
			Int("attempt", i+1).
			Err(err).
			Msg("Failed to connect to MongoDB, retrying...")
		time.Sleep(3 * time.Second)
	}

	return nil, fmt.Errorf("failed to connect to MongoDB after 10 attempts: %w", err)
}

func tryConnectMongoDB(clientOptions *options.ClientOptions) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return client, nil
}

func connectRedis(cfg config.RedisConfig) (*cache.RedisClient, error) {
	var client *cache.RedisClient
	var err error

	for i := 0; i < 10; i++ {
		client, err = cache.NewRedisClient(cfg.Address(), cfg.Password, cfg.DB, cfg.DraftTTL)
		if err == nil {
			return client, nil
		}
		logger.Warn().
			Int("attempt", i+1).
			Err(err).
			Msg("Failed to connect to Redis, retrying...")
		time.Sleep(3 * time.Second)
	}

	return nil, fmt.Errorf("failed to connect to Redis after 10 attempts: %w", err)
}
