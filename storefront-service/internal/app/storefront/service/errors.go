package service

import "errors"

// Ошибки бизнес-логики для обработки в handlers
var (
	ErrForbidden       = errors.New("forbidden")
	ErrRoleMismatch    = errors.New("operation not allowed for account role")
	ErrRoleLocked      = errors.New("role cannot be changed after verification")
	ErrNotVerified     = errors.New("account verification is not complete")
	ErrAccountNotFound = errors.New("account not found")
	ErrProductNotFound = errors.New("product not found")
	ErrReviewNotFound  = errors.New("review not found")
	ErrOrderNotFound   = errors.New("order not found")
)
