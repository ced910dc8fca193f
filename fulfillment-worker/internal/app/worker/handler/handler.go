package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"pharmacart/fulfillment-worker/internal/app/worker/entity"
	"pharmacart/fulfillment-worker/internal/app/worker/repository"
	"pharmacart/pkg/logger"
)

// TriageReader - чтение журнала маршрутизации
type TriageReader interface {
	ListUnrouted(ctx context.Context, limit int) ([]entity.TriageRecord, error)
	Get(ctx context.Context, orderID string) (*entity.TriageRecord, error)
}

// Pinger - зависимость, проверяемая в readiness
type Pinger func(ctx context.Context) error

// LagReporter отдает отставание consumer group
type LagReporter interface {
	Lag() int64
}

// maxHealthyLag - выше этого отставания health помечает consumer как warning
const maxHealthyLag = 1000

type Handler struct {
	triage   TriageReader
	database Pinger
	consumer LagReporter
}

func NewHandler(triage TriageReader, database Pinger, consumer LagReporter) *Handler {
	return &Handler{
		triage:   triage,
		database: database,
		consumer: consumer,
	}
}

type HealthResponse struct {
	Status    string            `json:"status"`
	Checks    map[string]string `json:"checks"`
	Timestamp time.Time         `json:"timestamp"`
}

// HealthCheck - сводный статус зависимостей
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]string)
	overallStatus := "healthy"

	if err := h.database(ctx); err != nil {
		checks["database"] = "unhealthy: " + err.Error()
		overallStatus = "unhealthy"
	} else {
		checks["database"] = "healthy"
	}

	// отставание не делает сервис нездоровым, только предупреждение
	if lag := h.consumer.Lag(); lag > maxHealthyLag {
		checks["kafka_lag"] = "warning: " + strconv.FormatInt(lag, 10)
	} else {
		checks["kafka_lag"] = strconv.FormatInt(lag, 10)
	}

	status := http.StatusOK
	if overallStatus != "healthy" {
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, HealthResponse{
		Status:    overallStatus,
		Checks:    checks,
		Timestamp: time.Now(),
	})
}

func (h *Handler) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.database(ctx); err != nil {
		http.Error(w, "database not ready", http.StatusServiceUnavailable)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ready"))
}

func (h *Handler) Liveness(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("alive"))
}

// ListTriage обрабатывает GET /triage?limit=
func (h *Handler) ListTriage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	records, err := h.triage.ListUnrouted(r.Context(), limit)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to list triage records")
		writeError(w, http.StatusInternalServerError, "failed to list triage records")
		return
	}
	if records == nil {
		records = []entity.TriageRecord{}
	}

	writeJSON(w, http.StatusOK, entity.TriageListResponse{Records: records, Total: len(records)})
}

// GetTriage обрабатывает GET /triage/{orderID}
func (h *Handler) GetTriage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	orderID := strings.TrimPrefix(r.URL.Path, "/triage/")
	if orderID == "" || strings.Contains(orderID, "/") {
		writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	record, err := h.triage.Get(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, repository.ErrRecordNotFound) {
			writeError(w, http.StatusNotFound, "triage record not found")
			return
		}
		logger.Error().Err(err).Str("order_id", orderID).Msg("Failed to get triage record")
		writeError(w, http.StatusInternalServerError, "failed to get triage record")
		return
	}

	writeJSON(w, http.StatusOK, record)
}

func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", h.HealthCheck)
	mux.HandleFunc("/health/readiness", h.Readiness)
	mux.HandleFunc("/health/liveness", h.Liveness)
	mux.HandleFunc("/triage", h.ListTriage)
	mux.HandleFunc("/triage/", h.GetTriage)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Warn().Err(err).Msg("Failed to write response")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
