// Package controllers adapts HTTP requests to the services.
package controllers

import (
	"errors"
	"net/http"

	"github.com/foodle-app/foodle/app/services"
	"github.com/foodle-app/foodle/pkg/ctx"
	"github.com/foodle-app/foodle/pkg/logger"
)

// Error codes clients can branch on.
const (
	CodePaidNotPersisted = "paid_not_persisted"
	CodePaymentFailed    = "payment_failed"
	CodeStaleTransition  = "stale_transition"
	CodeInFlight         = "in_flight"
)

// StatusOf maps a service error to its HTTP status.
func StatusOf(err error) int {
	switch {
	case errors.Is(err, services.ErrPaidButNotPersisted):
		return http.StatusBadGateway
	case errors.Is(err, services.ErrInvalid):
		return http.StatusUnprocessableEntity
	case errors.Is(err, services.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, services.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, services.ErrPaymentFailed):
		return http.StatusPaymentRequired
	case errors.Is(err, services.ErrGateway):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func codeOf(err error) string {
	switch {
	case errors.Is(err, services.ErrPaidButNotPersisted):
		return CodePaidNotPersisted
	case errors.Is(err, services.ErrPaymentFailed):
		return CodePaymentFailed
	case errors.Is(err, services.ErrStaleTransition):
		return CodeStaleTransition
	case errors.Is(err, services.ErrCheckoutInFlight), errors.Is(err, services.ErrActionInFlight):
		return CodeInFlight
	}
	return ""
}

// fail writes err as an error envelope. Unclassified errors are logged and
// hidden behind a generic message.
func fail(c *ctx.Context, err error) {
	status := StatusOf(err)
	msg := err.Error()
	switch {
	case errors.Is(err, services.ErrPaidButNotPersisted):
		msg = services.ErrPaidButNotPersisted.Error()
	case status == http.StatusInternalServerError:
		logger.WithCtx(c.Context()).Error("request failed", "path", c.R.URL.Path, "error", err)
		msg = "Internal Server Error"
	}
	c.ErrorCode(status, codeOf(err), msg)
}
