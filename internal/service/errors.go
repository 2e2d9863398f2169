package service

import "errors"

var (
	ErrNotFound               = errors.New("not found")
	ErrEmailExists            = errors.New("email already exists")
	ErrInvalidEmail           = errors.New("invalid email address")
	ErrWeakPassword           = errors.New("password too weak")
	ErrInvalidCredentials     = errors.New("invalid credentials")
	ErrTooManyRequests        = errors.New("too many requests")
	ErrTokenExpired           = errors.New("token expired")
	ErrTokenNotFoundOrRevoked = errors.New("refresh token not found or already revoked")
	ErrInvalidOrExpiredCode   = errors.New("invalid or expired reset code")

	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotAuthorized — отказ в доступе администратору: аутентификация
	// прошла, авторизация — нет. Не путать с ErrInvalidCredentials.
	ErrNotAuthorized = errors.New("not an authorized admin")
	ErrForbidden     = errors.New("forbidden")

	ErrInvalidInput = errors.New("invalid input")

	ErrEmptyCart          = errors.New("cart is empty")
	ErrQuantityInvalid    = errors.New("quantity must be > 0")
	ErrOrderNotFound      = errors.New("order not found")
	ErrOrderFailed        = errors.New("failed to create order")
	ErrInvalidStatus      = errors.New("invalid order status")
	ErrProductNotFound    = errors.New("product not found")
	ErrCategoryNotFound   = errors.New("category not found")
	ErrCollectionNotFound = errors.New("collection not found")
)
