package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Kind classifies why a provider call failed.
type Kind string

const (
	KindAuth        Kind = "auth_error"
	KindRateLimited Kind = "rate_limited"
	KindTimeout     Kind = "timeout"
	KindUnavailable Kind = "provider_unavailable"
	KindMalformed   Kind = "malformed_response"
)

// Failure is the error returned for every unsuccessful provider call.
type Failure struct {
	Kind     Kind
	Provider string
	// Status is the HTTP status code when the provider answered, else zero.
	Status  int
	Message string
	Cause   error
}

func (f *Failure) Error() string {
	msg := fmt.Sprintf("%s: %s", f.Provider, f.Kind)
	if f.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", f.Status)
	}
	if f.Message != "" {
		msg += ": " + f.Message
	}
	if f.Cause != nil && f.Message == "" {
		msg += ": " + f.Cause.Error()
	}
	return msg
}

func (f *Failure) Unwrap() error { return f.Cause }

// FailureKind exposes the kind to the logger without an import of this package.
func (f *Failure) FailureKind() string { return string(f.Kind) }

// Transient reports whether the same provider may succeed on a later request.
func (f *Failure) Transient() bool {
	return f.Kind == KindTimeout || f.Kind == KindRateLimited
}

// KindForStatus maps an HTTP status code from a provider to a failure kind.
func KindForStatus(status int) Kind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return KindAuth
	case status == http.StatusTooManyRequests:
		return KindRateLimited
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return KindTimeout
	default:
		return KindUnavailable
	}
}

func statusFailure(provider string, status int, message string, cause error) *Failure {
	return &Failure{
		Kind:     KindForStatus(status),
		Provider: provider,
		Status:   status,
		Message:  message,
		Cause:    cause,
	}
}

func malformed(provider, message string) *Failure {
	return &Failure{Kind: KindMalformed, Provider: provider, Message: message}
}

// Classify converts any error from a provider call into a *Failure.
// Errors that already are failures keep their kind.
func Classify(provider string, err error) *Failure {
	if err == nil {
		return nil
	}

	var f *Failure
	if errors.As(err, &f) {
		if f.Provider == "" {
			f.Provider = provider
		}
		return f
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &Failure{Kind: KindTimeout, Provider: provider, Cause: err}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &Failure{Kind: KindTimeout, Provider: provider, Cause: err}
	}

	return &Failure{Kind: KindUnavailable, Provider: provider, Cause: err}
}

// IsKind reports whether err is a *Failure of the given kind.
func IsKind(err error, kind Kind) bool {
	var f *Failure
	return errors.As(err, &f) && f.Kind == kind
}
