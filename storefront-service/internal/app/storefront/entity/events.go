package entity

import "time"

const (
	EventTypeOrderCreated  = "ORDER_CREATED"
	EventTypeReviewCreated = "REVIEW_CREATED"
	EventTypeReviewDeleted = "REVIEW_DELETED"
)

// OrderEvent публикуется в order_events с ключом order_id
type OrderEvent struct {
	EventType    string      `json:"event_type"`
	OrderID      string      `json:"order_id"`
	UserID       string      `json:"user_id"`
	OrderType    OrderType   `json:"order_type"`
	PharmacyID   string      `json:"pharmacy_id,omitempty"`
	PharmacyName string      `json:"pharmacy_name,omitempty"`
	TotalPrice   float64     `json:"total_price"`
	ItemsCount   int         `json:"items_count"`
	Status       OrderStatus `json:"status"`
	Timestamp    time.Time   `json:"timestamp"`
}

// ReviewEvent публикуется в review_events с ключом product_id,
// поэтому события одного товара попадают в одну партицию
type ReviewEvent struct {
	EventType string    `json:"event_type"`
	ReviewID  string    `json:"review_id"`
	ProductID string    `json:"product_id"`
	UserID    string    `json:"user_id"`
	Rating    int       `json:"rating"`
	Timestamp time.Time `json:"timestamp"`
}
