package repository

import "errors"

var (
	ErrInventoryItemNotFound = errors.New("inventory item not found")
	ErrInsufficientStock     = errors.New("insufficient stock")
)
