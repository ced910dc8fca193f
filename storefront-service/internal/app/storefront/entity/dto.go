package entity

// SelectRoleRequest - выбор роли при онбординге
type SelectRoleRequest struct {
	Role string `json:"role" validate:"required"`
}

type UpdateProfileRequest struct {
	FullName    string `json:"full_name" validate:"omitempty,min=2,max=100"`
	PhoneNumber string `json:"phone_number" validate:"omitempty,numeric,min=10,max=15"`
	Username    string `json:"username" validate:"omitempty,alphanum,min=3,max=30"`
}

type AddCartItemRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"omitempty,gt=0"`
}

// SetQuantityRequest - количество <= 0 удаляет позицию
type SetQuantityRequest struct {
	Quantity *int `json:"quantity" validate:"required"`
}

type CartResponse struct {
	Items      []CartItem `json:"items"`
	TotalItems int        `json:"total_items"`
	TotalPrice float64    `json:"total_price"`
	Version    uint64     `json:"version"`
}

type CreateReviewRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	Rating    int    `json:"rating" validate:"required,min=1,max=5"`
	Text      string `json:"text" validate:"required,max=1000"`
}

type ReviewListResponse struct {
	Reviews     []Review `json:"reviews"`
	Total       int      `json:"total"`
	Rating      float64  `json:"rating"`
	ReviewCount int      `json:"review_count"`
}

type DirectBuyRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"omitempty,gt=0"`
}

type PrescriptionItemRequest struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name" validate:"required"`
	Image     string  `json:"image"`
	Price     float64 `json:"price" validate:"gte=0"`
	Quantity  int     `json:"quantity" validate:"required,gt=0"`
}

type PrescriptionRequest struct {
	PharmacyName   string                    `json:"pharmacy_name"`
	Items          []PrescriptionItemRequest `json:"items" validate:"dive"`
	TotalPrice     *float64                  `json:"total_price" validate:"omitempty,gte=0"`
	PrescriptionID string                    `json:"prescription_id"`
	ImageURL       string                    `json:"image_url"`
	DoctorName     string                    `json:"doctor_name"`
	Notes          string                    `json:"notes" validate:"max=500"`
}

// AssembleOrderRequest - ровно один источник товаров; корзина берется из сессии
type AssembleOrderRequest struct {
	DirectBuy        *DirectBuyRequest    `json:"direct_buy"`
	Prescription     *PrescriptionRequest `json:"prescription"`
	DeliveryFee      *float64             `json:"delivery_fee" validate:"omitempty,gte=0"`
	Tax              *float64             `json:"tax" validate:"omitempty,gte=0"`
	PaymentMethod    string               `json:"payment_method" validate:"omitempty,oneof=CashOnDelivery VodafoneCash"`
	PaymentReference string               `json:"payment_reference" validate:"max=64"`
	DeliveryAddress  string               `json:"delivery_address" validate:"required,max=300"`
}

// UpsertProductRequest - товар аптеки; аптека берется из профиля
type UpsertProductRequest struct {
	ID          string  `json:"id"`
	Name        string  `json:"name" validate:"required,min=2,max=200"`
	Brand       string  `json:"brand" validate:"max=100"`
	Price       float64 `json:"price" validate:"required,gt=0"`
	Category    string  `json:"category" validate:"required"`
	Image       string  `json:"image" validate:"omitempty,url"`
	Description string  `json:"description" validate:"max=2000"`
	InStock     bool    `json:"in_stock"`
}

type OrderListResponse struct {
	Orders []Order `json:"orders"`
	Total  int     `json:"total"`
}

type ProductListResponse struct {
	Products []Product `json:"products"`
	Total    int       `json:"total"`
}

// Notification - короткое сообщение для UI об итоге действия
type Notification struct {
	Kind    string `json:"kind"` // success, error, warning
	Message string `json:"message"`
}

func NotifySuccess(msg string) *Notification {
	return &Notification{Kind: "success", Message: msg}
}

func NotifyError(msg string) *Notification {
	return &Notification{Kind: "error", Message: msg}
}

type ErrorResponse struct {
	Error        string        `json:"error"`
	Message      string        `json:"message,omitempty"`
	Redirect     string        `json:"redirect,omitempty"`
	Notification *Notification `json:"notification,omitempty"`
}

type SuccessResponse struct {
	Message      string        `json:"message"`
	Data         interface{}   `json:"data,omitempty"`
	Notification *Notification `json:"notification,omitempty"`
}
