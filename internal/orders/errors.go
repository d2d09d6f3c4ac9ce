package orders

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyCart       = errors.New("cart is empty")
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
	ErrNotFound        = errors.New("order not found")
	ErrBadTransition   = errors.New("invalid status transition")
)

// LineFailure names the first cart line that could not be reserved. By the
// time the caller sees it, every previously reserved line has been
// compensated.
type LineFailure struct {
	ProductID   string
	ProductName string
	Available   int
	Reason      error
}

func (e *LineFailure) Error() string {
	name := e.ProductName
	if name == "" {
		name = e.ProductID
	}
	return fmt.Sprintf("line failed for %s: %v", name, e.Reason)
}

func (e *LineFailure) Unwrap() error { return e.Reason }
