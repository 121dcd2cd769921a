package incentive

import (
	"errors"
	"fmt"

	"github.com/xraph/incentive/balance"
)

// Sentinel errors for common failure scenarios.
var (
	// General errors
	ErrNotFound      = errors.New("incentive: not found")
	ErrAlreadyExists = errors.New("incentive: already exists")
	ErrInvalidInput  = errors.New("incentive: invalid input")
	ErrUnauthorized  = errors.New("incentive: unauthorized caller")
	ErrReentrantCall = errors.New("incentive: reentrant call rejected")

	// Accrual errors
	ErrAccountNotFound   = errors.New("incentive: account not found")
	ErrOrderLockExists   = errors.New("incentive: order already holds a live lock")
	ErrOrderLockNotFound = errors.New("incentive: order lock not found")
	ErrBatchTooLarge     = errors.New("incentive: batch exceeds size cap")
	ErrLengthMismatch    = errors.New("incentive: batch array lengths differ")
	ErrZeroPoints        = errors.New("incentive: zero points where non-zero required")

	// Consumption errors
	ErrServiceNotFound = errors.New("incentive: service type out of range")
	ErrInvalidLevel    = errors.New("incentive: service level out of range")
	ErrServiceInactive = errors.New("incentive: service is inactive")
	ErrCooldownActive  = errors.New("incentive: cooldown not elapsed")

	// ErrInsufficientBalance surfaces the balance service's burn failure.
	// It is a hard failure for user-initiated consumption only; penalty
	// paths divert the shortfall to the debt ledger instead.
	ErrInsufficientBalance = balance.ErrInsufficientBalance

	// Collaborator errors
	ErrCatalogUnavailable = errors.New("incentive: service catalog unavailable")

	// Store errors
	ErrStoreNotReady = errors.New("incentive: store not ready")
	ErrStoreClosed   = errors.New("incentive: store is closed")
)

// ValidationError represents a validation failure with details.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("incentive: validation failed for %s: %s", e.Field, e.Message)
}

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrAccountNotFound) ||
		errors.Is(err, ErrOrderLockNotFound) ||
		errors.Is(err, ErrServiceNotFound)
}

// IsConsumptionDenied returns true if the error is one of the user-visible
// reasons a purchase or upgrade can be refused.
func IsConsumptionDenied(err error) bool {
	return errors.Is(err, ErrServiceInactive) ||
		errors.Is(err, ErrCooldownActive) ||
		errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrServiceNotFound) ||
		errors.Is(err, ErrInvalidLevel)
}

// IsRetryable returns true if the error is temporary and the operation can
// be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrReentrantCall) ||
		errors.Is(err, ErrStoreNotReady) ||
		errors.Is(err, ErrCatalogUnavailable)
}
