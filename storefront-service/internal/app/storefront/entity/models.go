package entity

import (
	"time"
)

// Account - профиль аутентифицированного пользователя.
// Флаги верификации имеют смысл только для своей роли.
type Account struct {
	UID                    string        `json:"uid" bson:"_id"`
	Role                   Role          `json:"role" bson:"role"`
	IsPharmacyVerified     bool          `json:"is_pharmacy_verified" bson:"is_pharmacy_verified"`
	IsDeliveryInfoComplete bool          `json:"is_delivery_info_complete" bson:"is_delivery_info_complete"`
	PharmacyInfo           *PharmacyInfo `json:"pharmacy_info,omitempty" bson:"pharmacy_info,omitempty"`
	DeliveryInfo           *DeliveryInfo `json:"delivery_info,omitempty" bson:"delivery_info,omitempty"`
	FullName               string        `json:"full_name" bson:"full_name"`
	PhoneNumber            string        `json:"phone_number" bson:"phone_number"`
	Username               string        `json:"username" bson:"username"`
	Email                  string        `json:"email" bson:"email"`
	CreatedAt              time.Time     `json:"created_at" bson:"created_at"`
	UpdatedAt              time.Time     `json:"updated_at" bson:"updated_at"`
}

// DisplayName - имя для отзывов и заказов
func (a *Account) DisplayName() string {
	if a.FullName != "" {
		return a.FullName
	}
	return a.Username
}

type PharmacyInfo struct {
	Name          string `json:"name" bson:"name" validate:"required,min=2,max=120"`
	VodafoneCash  string `json:"vodafone_cash" bson:"vodafone_cash" validate:"required,numeric,min=10,max=15"`
	Address       string `json:"address" bson:"address" validate:"required"`
	LicenseNumber string `json:"license_number" bson:"license_number" validate:"required"`
}

type DeliveryInfo struct {
	VehicleType string `json:"vehicle_type" bson:"vehicle_type" validate:"required,oneof=bike motorcycle car"`
	NationalID  string `json:"national_id" bson:"national_id" validate:"required,numeric,len=14"`
	ServiceArea string `json:"service_area" bson:"service_area" validate:"required"`
}

// Product - позиция каталога. Rating и ReviewCount пишет только агрегатор рейтинга.
type Product struct {
	ID           string  `json:"id" bson:"_id"`
	Name         string  `json:"name" bson:"name"`
	Brand        string  `json:"brand" bson:"brand"`
	Price        float64 `json:"price" bson:"price"`
	Category     string  `json:"category" bson:"category"`
	PharmacyName string  `json:"pharmacy_name" bson:"pharmacy_name"`
	Image        string  `json:"image" bson:"image"`
	Description  string  `json:"description,omitempty" bson:"description,omitempty"`
	InStock      bool    `json:"in_stock" bson:"in_stock"`
	Rating       float64 `json:"rating" bson:"rating"`
	ReviewCount  int     `json:"review_count" bson:"review_count"`
}

// CartItem - строка корзины, ключ документа <account_id>:<product_id>
type CartItem struct {
	ID        string    `json:"-" bson:"_id"`
	AccountID string    `json:"-" bson:"account_id"`
	ProductID string    `json:"product_id" bson:"product_id"`
	Product   Product   `json:"product" bson:"product"`
	Quantity  int       `json:"quantity" bson:"quantity"`
	AddedAt   time.Time `json:"added_at" bson:"added_at"`
}

func CartItemID(accountID, productID string) string {
	return accountID + ":" + productID
}

// LineTotal - цена строки по снапшоту товара
func (i CartItem) LineTotal() float64 {
	return i.Product.Price * float64(i.Quantity)
}

type Review struct {
	ID        string    `json:"id" bson:"_id"`
	ProductID string    `json:"product_id" bson:"product_id"`
	UserID    string    `json:"user_id" bson:"user_id"`
	UserName  string    `json:"user_name" bson:"user_name"`
	Rating    int       `json:"rating" bson:"rating"`
	Text      string    `json:"text" bson:"text"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
}

type OrderType string

const (
	OrderTypeDirectBuy    OrderType = "DirectBuy"
	OrderTypePrescription OrderType = "PrescriptionOrder"
	OrderTypeCart         OrderType = "CartOrder"
)

type OrderStatus string

// Дальнейшие статусы выставляют дашборды аптеки и курьера
const (
	OrderStatusPending   OrderStatus = "Pending"
	OrderStatusAccepted  OrderStatus = "Accepted"
	OrderStatusShipped   OrderStatus = "Shipped"
	OrderStatusDelivered OrderStatus = "Delivered"
	OrderStatusCancelled OrderStatus = "Cancelled"
)

type PaymentType string

const (
	PaymentCashOnDelivery PaymentType = "CashOnDelivery"
	PaymentVodafoneCash   PaymentType = "VodafoneCash"
)

// PaymentMethod - способ оплаты; Reference вводит пользователь, не проверяется
type PaymentMethod struct {
	Type      PaymentType `json:"type" bson:"type"`
	Reference string      `json:"reference,omitempty" bson:"reference,omitempty"`
}

// OrderProduct - замороженный снапшот строки заказа
type OrderProduct struct {
	ID       string  `json:"id" bson:"id"`
	Name     string  `json:"name" bson:"name"`
	Image    string  `json:"image" bson:"image"`
	Price    float64 `json:"price" bson:"price"`
	Quantity int     `json:"quantity" bson:"quantity"`
}

type PrescriptionInfo struct {
	PrescriptionID string `json:"prescription_id,omitempty" bson:"prescription_id,omitempty"`
	ImageURL       string `json:"image_url,omitempty" bson:"image_url,omitempty"`
	DoctorName     string `json:"doctor_name,omitempty" bson:"doctor_name,omitempty"`
	Notes          string `json:"notes,omitempty" bson:"notes,omitempty"`
}

type Order struct {
	ID              string            `json:"id" bson:"_id"`
	UserID          string            `json:"user_id" bson:"user_id"`
	Items           []OrderProduct    `json:"items" bson:"items"`
	OrderType       OrderType         `json:"order_type" bson:"order_type"`
	PharmacyID      string            `json:"pharmacy_id,omitempty" bson:"pharmacy_id,omitempty"`
	PharmacyName    string            `json:"pharmacy_name,omitempty" bson:"pharmacy_name,omitempty"`
	Subtotal        float64           `json:"subtotal" bson:"subtotal"`
	DeliveryFee     float64           `json:"delivery_fee" bson:"delivery_fee"`
	Tax             float64           `json:"tax" bson:"tax"`
	TotalPrice      float64           `json:"total_price" bson:"total_price"`
	Status          OrderStatus       `json:"status" bson:"status"`
	OrderDate       time.Time         `json:"order_date" bson:"order_date"`
	PaymentMethod   PaymentMethod     `json:"payment_method" bson:"payment_method"`
	DeliveryAddress string            `json:"delivery_address,omitempty" bson:"delivery_address,omitempty"`
	Prescription    *PrescriptionInfo `json:"prescription,omitempty" bson:"prescription,omitempty"`
}

// ItemCount - суммарное количество единиц в заказе
func (o *Order) ItemCount() int {
	n := 0
	for _, it := range o.Items {
		n += it.Quantity
	}
	return n
}
