package payment

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/sony/gobreaker"

	"paygate/internal/models"
)

// ErrorKind classifies gateway failures.
type ErrorKind string

const (
	KindInvalidConfig        ErrorKind = "InvalidConfig"
	KindNotInitialized       ErrorKind = "NotInitialized"
	KindInvalidRequest       ErrorKind = "InvalidRequest"
	KindSignatureMismatch    ErrorKind = "SignatureMismatch"
	KindProviderRejected     ErrorKind = "ProviderRejected"
	KindPaymentNotSucceeded  ErrorKind = "PaymentNotSucceeded"
	KindPaymentNotRefundable ErrorKind = "PaymentNotRefundable"
	KindRefundRejected       ErrorKind = "RefundRejected"
	KindProviderUnreachable  ErrorKind = "ProviderUnreachable"
	KindNetworkTimeout       ErrorKind = "NetworkTimeout"
	KindNotFound             ErrorKind = "NotFound"
)

// Sentinels for errors.Is matching against a *GatewayError of the same kind.
var (
	ErrInvalidConfig        = &GatewayError{Kind: KindInvalidConfig}
	ErrNotInitialized       = &GatewayError{Kind: KindNotInitialized}
	ErrInvalidRequest       = &GatewayError{Kind: KindInvalidRequest}
	ErrSignatureMismatch    = &GatewayError{Kind: KindSignatureMismatch}
	ErrProviderRejected     = &GatewayError{Kind: KindProviderRejected}
	ErrPaymentNotSucceeded  = &GatewayError{Kind: KindPaymentNotSucceeded}
	ErrPaymentNotRefundable = &GatewayError{Kind: KindPaymentNotRefundable}
	ErrRefundRejected       = &GatewayError{Kind: KindRefundRejected}
	ErrProviderUnreachable  = &GatewayError{Kind: KindProviderUnreachable}
	ErrNetworkTimeout       = &GatewayError{Kind: KindNetworkTimeout}
	ErrNotFound             = &GatewayError{Kind: KindNotFound}
)

// GatewayError is the only error type adapters return.
type GatewayError struct {
	Kind     ErrorKind
	Provider models.Provider
	Op       string
	Msg      string
	Err      error
}

func (e *GatewayError) Error() string {
	s := string(e.Kind)
	if e.Provider != "" {
		s = string(e.Provider) + ": " + s
	}
	if e.Op != "" {
		s += " (" + e.Op + ")"
	}
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *GatewayError) Unwrap() error { return e.Err }

// Is reports kind equality so callers can write errors.Is(err, ErrNotFound).
// A NetworkTimeout is also a ProviderUnreachable.
func (e *GatewayError) Is(target error) bool {
	t, ok := target.(*GatewayError)
	if !ok {
		return false
	}
	if t.Kind == KindProviderUnreachable && e.Kind == KindNetworkTimeout {
		return true
	}
	return t.Kind == e.Kind
}

func newError(kind ErrorKind, provider models.Provider, op, msg string, err error) *GatewayError {
	return &GatewayError{Kind: kind, Provider: provider, Op: op, Msg: msg, Err: err}
}

// KindOf returns the kind of a gateway error, or "" for foreign errors.
func KindOf(err error) ErrorKind {
	var gwErr *GatewayError
	if errors.As(err, &gwErr) {
		return gwErr.Kind
	}
	return ""
}

// transportError classifies a failure that happened before any provider
// response was received.
func transportError(provider models.Provider, op string, err error) *GatewayError {
	if errors.Is(err, context.DeadlineExceeded) {
		return newError(KindNetworkTimeout, provider, op, "", err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return newError(KindNetworkTimeout, provider, op, "", err)
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return newError(KindProviderUnreachable, provider, op, "circuit open", err)
	}
	return newError(KindProviderUnreachable, provider, op, "", err)
}

// statusError classifies a non-2xx provider response.
func statusError(provider models.Provider, op string, status int, msg string) *GatewayError {
	err := fmt.Errorf("http %d", status)
	switch {
	case status == 404:
		return newError(KindNotFound, provider, op, msg, err)
	case status >= 500:
		return newError(KindProviderUnreachable, provider, op, msg, err)
	default:
		return newError(KindProviderRejected, provider, op, msg, err)
	}
}

// refundStatusError narrows a provider refusal on the refund path.
func refundStatusError(provider models.Provider, status int, msg string, notRefundable bool) *GatewayError {
	err := statusError(provider, "refund", status, msg)
	if err.Kind != KindProviderRejected {
		return err
	}
	if notRefundable {
		err.Kind = KindPaymentNotRefundable
	} else {
		err.Kind = KindRefundRejected
	}
	return err
}
