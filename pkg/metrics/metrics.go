package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// HTTP
// =============================================================================

// HttpRequestsTotal - все HTTP запросы
// Labels: service, method, path, status
var HttpRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	},
	[]string{"service", "method", "path", "status"},
)

// HttpRequestDuration - время ответа, от 1ms до 10s
var HttpRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	},
	[]string{"service", "method", "path"},
)

var HttpRequestsInFlight = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "http_requests_in_flight",
		Help: "Current number of HTTP requests being processed",
	},
	[]string{"service"},
)

// =============================================================================
// Хранилища (документное и SQL)
// =============================================================================

// DbQueryDuration - время операции; table это коллекция для документного хранилища
var DbQueryDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "db_query_duration_seconds",
		Help:    "Duration of database operations in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	},
	[]string{"service", "operation", "table"},
)

var DbErrors = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "db_errors_total",
		Help: "Total number of database errors",
	},
	[]string{"service", "operation"},
)

// DocstoreSubscriptionsActive - открытые live-подписки (корзины)
var DocstoreSubscriptionsActive = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "docstore_subscriptions_active",
		Help: "Number of active live snapshot subscriptions",
	},
	[]string{"service", "collection"},
)

// =============================================================================
// Redis
// =============================================================================

var RedisCacheHits = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "redis_cache_hits_total",
		Help: "Total number of Redis cache hits",
	},
	[]string{"service", "key_prefix"},
)

var RedisCacheMisses = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "redis_cache_misses_total",
		Help: "Total number of Redis cache misses",
	},
	[]string{"service", "key_prefix"},
)

var RedisOperationDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "redis_operation_duration_seconds",
		Help:    "Duration of Redis operations in seconds",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
	},
	[]string{"service", "operation"},
)

var RedisErrors = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "redis_errors_total",
		Help: "Total number of Redis errors",
	},
	[]string{"service", "operation"},
)

// =============================================================================
// Kafka
// =============================================================================

var KafkaMessagesProduced = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "kafka_messages_produced_total",
		Help: "Total number of Kafka messages produced",
	},
	[]string{"service", "topic"},
)

var KafkaMessagesConsumed = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "kafka_messages_consumed_total",
		Help: "Total number of Kafka messages consumed",
	},
	[]string{"service", "topic", "group"},
)

var KafkaProduceDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "kafka_produce_duration_seconds",
		Help:    "Duration of Kafka produce operations",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
	},
	[]string{"service", "topic"},
)

var KafkaConsumeDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "kafka_consume_duration_seconds",
		Help:    "Duration of Kafka message processing",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10},
	},
	[]string{"service", "topic"},
)

// KafkaErrors - operation: produce, consume
var KafkaErrors = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "kafka_errors_total",
		Help: "Total number of Kafka errors",
	},
	[]string{"service", "topic", "operation"},
)

// =============================================================================
// Бизнес метрики витрины
// =============================================================================

// --- Role Gate ---

// GateDecisions - решения гейта по исходу и причине
var GateDecisions = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "gate_decisions_total",
		Help: "Total number of role gate decisions",
	},
	[]string{"outcome", "reason"},
)

// SessionsActive - сессии в реестре
var SessionsActive = promauto.NewGauge(
	prometheus.GaugeOpts{
		Name: "sessions_active",
		Help: "Number of signed-in sessions held by the registry",
	},
)

// --- Cart ---

// CartMutations - operation: add, remove, set_quantity, clear; status: success, failed, rejected
var CartMutations = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "cart_mutations_total",
		Help: "Total number of cart mutations",
	},
	[]string{"operation", "status"},
)

// --- Orders ---

var OrdersAssembled = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "orders_assembled_total",
		Help: "Total number of assembled orders by type",
	},
	[]string{"order_type"},
)

var OrdersConfirmed = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: "orders_confirmed_total",
		Help: "Total number of confirmed orders",
	},
)

// OrdersTotal - сумма подтвержденных заказов
var OrdersTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: "orders_total_amount",
		Help: "Total amount of all confirmed orders",
	},
)

// PharmacyUnresolved - заказы без привязанной аптеки (ручной разбор)
var PharmacyUnresolved = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: "orders_pharmacy_unresolved_total",
		Help: "Total number of orders assembled without a resolved pharmacy",
	},
)

// --- Reviews / rating ---

var ReviewsCreated = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: "reviews_created_total",
		Help: "Total number of reviews created",
	},
)

var ReviewsDeleted = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: "reviews_deleted_total",
		Help: "Total number of reviews deleted",
	},
)

var ReviewsRating = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "reviews_rating",
		Help:    "Distribution of review ratings",
		Buckets: []float64{1, 2, 3, 4, 5},
	},
)

// RatingRecomputes - status: success, failed
var RatingRecomputes = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "rating_recomputes_total",
		Help: "Total number of product rating recomputations",
	},
	[]string{"trigger", "status"},
)

// --- Fulfillment worker ---

// WorkerOrdersProcessed - status: routed, needs_triage, failed
var WorkerOrdersProcessed = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "worker_orders_processed_total",
		Help: "Total number of order events processed by the fulfillment worker",
	},
	[]string{"status"},
)

var WorkerTriageEscalations = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: "worker_triage_escalations_total",
		Help: "Total number of stale triage records escalated",
	},
)

var WorkerProcessingDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "worker_order_processing_duration_seconds",
		Help:    "Duration of order event processing in the worker",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
	},
)
