package models

import "errors"

// Sentinel errors shared by the catalog, cart, ledger and checkout
// packages. Callers match with errors.Is; operations wrap these with
// context about the offending entity.
var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrEmptyCart         = errors.New("cart is empty")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrUnauthorized      = errors.New("unauthorized")
)
