package inventory

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/opsuite/backend/internal/domain/shared"
)

// InsufficientStockError is returned when an allocation requests more than
// the candidate batches hold in total. Nothing is committed when it occurs.
type InsufficientStockError struct {
	Requested int64
	Available int64
}

// Error implements the error interface
func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock: requested %d, available %d", e.Requested, e.Available)
}

// Unwrap allows errors.Is against the shared sentinel
func (e *InsufficientStockError) Unwrap() error {
	return shared.ErrInsufficientStock
}

// ValidationError rejects bad input before any mutation
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// Unwrap allows errors.Is against the shared sentinel
func (e *ValidationError) Unwrap() error {
	return shared.ErrInvalidInput
}

// ReversalError is returned when a stored consumption record references a
// batch that no longer resolves. It must be surfaced so the caller can raise
// a data-integrity warning instead of silently losing quantity.
type ReversalError struct {
	BatchID uuid.UUID
	Cause   error
}

// Error implements the error interface
func (e *ReversalError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("cannot reverse consumption for batch %s: %v", e.BatchID, e.Cause)
	}
	return fmt.Sprintf("cannot reverse consumption for batch %s", e.BatchID)
}

// Unwrap allows errors.Is against the shared sentinel
func (e *ReversalError) Unwrap() error {
	return shared.ErrReversalFailed
}
