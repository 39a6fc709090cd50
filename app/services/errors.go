// Package services holds the application's use cases. Every error a service
// returns wraps one of the classes below, which controllers map to a status.
package services

import (
	"errors"
	"fmt"

	"github.com/foodle-app/foodle/app/repositories"
)

// Error classes.
var (
	ErrInvalid       = errors.New("invalid request")
	ErrUnauthorized  = errors.New("authentication failed")
	ErrForbidden     = errors.New("forbidden")
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrPaymentFailed = errors.New("payment could not be verified")
	ErrGateway       = errors.New("payment provider unavailable")
)

// ErrPaidButNotPersisted means the student was charged but no order exists.
// Its message is shown to the student as is.
var ErrPaidButNotPersisted = errors.New("Payment successful but order creation failed. Please contact support.")

var (
	ErrEmptyCart          = newError(ErrInvalid, "cart is empty")
	ErrAmountMismatch     = newError(ErrInvalid, "amount does not match cart total")
	ErrItemUnavailable    = newError(ErrInvalid, "item is not available")
	ErrStallUnavailable   = newError(ErrInvalid, "stall is not taking orders")
	ErrStallAtCapacity    = newError(ErrInvalid, "stall has reached its order limit")
	ErrPickupCodeMismatch = newError(ErrInvalid, "pickup code does not match")
	ErrInvalidCredentials = newError(ErrUnauthorized, "invalid email or password")
	ErrEmailTaken         = newError(ErrUnauthorized, "email is already registered")
	ErrNotVendor          = newError(ErrForbidden, "Access denied. This portal is for vendors only.")
	ErrNoStall            = newError(ErrForbidden, "no stall is linked to this vendor")
	ErrNotYourOrder       = newError(ErrForbidden, "order belongs to someone else")
	ErrCheckoutInFlight   = newError(ErrConflict, "checkout already in progress")
	ErrStaleTransition    = newError(ErrConflict, "order was updated by someone else")
	ErrActionInFlight     = newError(ErrConflict, "action already in progress")
	ErrLinkedElsewhere    = newError(ErrConflict, "email is linked to a different sign-in")
)

// classError carries a user-facing message and unwraps to its class.
type classError struct {
	class error
	msg   string
}

func newError(class error, msg string) error { return &classError{class: class, msg: msg} }

func (e *classError) Error() string { return e.msg }
func (e *classError) Unwrap() error { return e.class }

// missing turns a repository miss into ErrNotFound naming what.
func missing(err error, what string) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, what)
	}
	return err
}
