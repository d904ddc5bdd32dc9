// Package apperr defines the error kinds returned across the service boundary.
// Kinds are attached with cockroachdb/errors marks, so checks must go through Is.
package apperr

import (
	"fmt"
	"math"
	"time"

	"github.com/cockroachdb/errors"
)

var (
	ErrAuthentication      = errors.New("authentication required")
	ErrAuthorization       = errors.New("not authorized")
	ErrNotFound            = errors.New("not found")
	ErrValidation          = errors.New("validation failed")
	ErrPaymentNotSucceeded = errors.New("payment not succeeded")
	ErrConflict            = errors.New("conflict")
	ErrUpstream            = errors.New("upstream failure")
)

func Authentication(msg string) error { return errors.Mark(errors.New(msg), ErrAuthentication) }

func Forbidden(msg string) error { return errors.Mark(errors.New(msg), ErrAuthorization) }

func NotFound(msg string) error { return errors.Mark(errors.New(msg), ErrNotFound) }

func Validation(msg string) error { return errors.Mark(errors.New(msg), ErrValidation) }

func Validationf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrValidation)
}

func Conflict(msg string) error { return errors.Mark(errors.New(msg), ErrConflict) }

func PaymentNotSucceeded(status string) error {
	return errors.Mark(errors.Newf("payment not succeeded (status: %s)", status), ErrPaymentNotSucceeded)
}

// Upstream wraps a store or gateway failure. The cause is kept for logging
// but must never reach the client.
func Upstream(err error, msg string) error {
	if err == nil {
		return nil
	}
	return errors.Mark(errors.Wrap(err, msg), ErrUpstream)
}

// Is reports whether err carries the given kind or matches it in the chain.
func Is(err, kind error) bool {
	return errors.Is(err, kind)
}

// As is errors.As over the cockroachdb error chain.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// CooldownError is returned when a spin is requested inside the cooldown window.
type CooldownError struct {
	Remaining  time.Duration
	NextSpinAt time.Time
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("spin cooldown active, try again in %d hours", e.HoursRemaining())
}

// HoursRemaining rounds the remaining wait up to whole hours.
func (e *CooldownError) HoursRemaining() int {
	if e.Remaining <= 0 {
		return 0
	}
	return int(math.Ceil(e.Remaining.Hours()))
}

// InsufficientInventoryError is returned when a package has fewer seats than requested.
type InsufficientInventoryError struct {
	Requested int
	Available int
}

func (e *InsufficientInventoryError) Error() string {
	return fmt.Sprintf("only %d seats available, %d requested", e.Available, e.Requested)
}
