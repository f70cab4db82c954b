package checkout

import (
	"errors"
	"fmt"
)

var (
	ErrValidation        = errors.New("validation")         // 400
	ErrNotFound          = errors.New("not found")          // 404
	ErrInsufficientStock = errors.New("insufficient stock") // 409
	ErrNotPaid           = errors.New("order not paid")     // 400
	ErrInternal          = errors.New("internal")           // 500
)

// StockError identifies the offending product and the shortfall when a
// requested quantity exceeds available stock, including races lost at the
// conditional-decrement step.
type StockError struct {
	ProductID uint
	Name      string
	Requested int
	Available int
}

func (e *StockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: %d requested, %d available", e.Name, e.Requested, e.Available)
}

func (e *StockError) Unwrap() error {
	return ErrInsufficientStock
}
