package dispatch

import (
	"context"
	"errors"
	"net/http"

	"prospector_backend/internal/email"
	"prospector_backend/internal/sms"
	"prospector_backend/internal/whatsapp"

	"github.com/badoux/checkmail"
	"github.com/sony/gobreaker"
	gomail "github.com/wneessen/go-mail"
)

// PermanentError marks a delivery failure that retrying cannot fix, such as a rejected
// recipient or revoked credentials.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return "permanent delivery failure: " + e.Err.Error() }

func (e *PermanentError) Unwrap() error { return e.Err }

// IsPermanent reports whether err must not be retried.
func IsPermanent(err error) bool {
	if err == nil {
		return false
	}
	var pe *PermanentError
	if errors.As(err, &pe) {
		return true
	}
	return classifyPermanent(err)
}

func classifyPermanent(err error) bool {
	if errors.Is(err, context.Canceled) {
		return true
	}
	if errors.Is(err, whatsapp.ErrInvalidNumber) || errors.Is(err, sms.ErrInvalidNumber) {
		return true
	}

	var sendErr *gomail.SendError
	if errors.As(err, &sendErr) {
		return !sendErr.IsTemp()
	}

	var brevoErr *email.StatusError
	if errors.As(err, &brevoErr) {
		return permanentStatus(brevoErr.StatusCode)
	}

	var waErr *whatsapp.StatusError
	if errors.As(err, &waErr) {
		return permanentStatus(waErr.StatusCode)
	}

	var smsErr *sms.APIError
	if errors.As(err, &smsErr) {
		return permanentStatus(smsErr.StatusCode)
	}

	return errors.Is(err, checkmail.ErrBadFormat)
}

// 4xx means the request itself is wrong, except timeouts and throttling.
func permanentStatus(code int) bool {
	if code == http.StatusRequestTimeout || code == http.StatusTooManyRequests {
		return false
	}
	return code >= 400 && code < 500
}

func isBreakerOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
