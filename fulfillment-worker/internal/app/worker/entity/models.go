package entity

import (
	"time"
)

// TriageStatus - состояние заказа в журнале маршрутизации
type TriageStatus string

const (
	// TriageRouted - аптека определена, заказ ушел исполнителю
	TriageRouted TriageStatus = "routed"
	// TriageNeeded - аптека не найдена по имени, нужен ручной разбор
	TriageNeeded TriageStatus = "needs_triage"
	// TriageEscalated - заказ слишком долго ждет разбора
	TriageEscalated TriageStatus = "escalated"
)

// TriageRecord - строка журнала order_triage
type TriageRecord struct {
	OrderID      string       `json:"order_id" gorm:"type:varchar(64);primaryKey"`
	UserID       string       `json:"user_id" gorm:"type:varchar(128);not null;index"`
	OrderType    string       `json:"order_type" gorm:"type:varchar(32);not null"`
	PharmacyID   string       `json:"pharmacy_id,omitempty" gorm:"type:varchar(128);index"`
	PharmacyName string       `json:"pharmacy_name,omitempty" gorm:"type:varchar(255)"`
	TotalPrice   float64      `json:"total_price" gorm:"type:decimal(10,2);not null"`
	ItemsCount   int          `json:"items_count" gorm:"not null"`
	Status       TriageStatus `json:"status" gorm:"type:varchar(32);not null;index"`
	OrderedAt    time.Time    `json:"ordered_at" gorm:"not null"`
	CreatedAt    time.Time    `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt    time.Time    `json:"updated_at" gorm:"autoUpdateTime"`
}

func (TriageRecord) TableName() string {
	return "order_triage"
}

// OrderEvent - событие из order_events, которое публикует витрина
type OrderEvent struct {
	EventType    string    `json:"event_type"`
	OrderID      string    `json:"order_id"`
	UserID       string    `json:"user_id"`
	OrderType    string    `json:"order_type"`
	PharmacyID   string    `json:"pharmacy_id,omitempty"`
	PharmacyName string    `json:"pharmacy_name,omitempty"`
	TotalPrice   float64   `json:"total_price"`
	ItemsCount   int       `json:"items_count"`
	Status       string    `json:"status"`
	Timestamp    time.Time `json:"timestamp"`
}

const (
	EventTypeOrderCreated = "ORDER_CREATED"
)

type TriageListResponse struct {
	Records []TriageRecord `json:"records"`
	Total   int            `json:"total"`
}
