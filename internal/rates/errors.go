package rates

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConfigured indicates no active provider key exists.
	ErrNotConfigured = errors.New("rates: no active exchange rate api key configured")
	// ErrInvalidBase indicates a malformed base currency code.
	ErrInvalidBase = errors.New("rates: invalid base currency")
)

// UpstreamError describes a failed provider call. It carries the provider's
// own diagnostic when the failure envelope had one.
type UpstreamError struct {
	Provider   string
	StatusCode int
	Code       int
	Type       string
	Info       string
	Err        error
}

func (e *UpstreamError) Error() string {
	if e == nil {
		return ""
	}
	switch {
	case e.Info != "":
		return fmt.Sprintf("rates: %s: %s", e.Provider, e.Info)
	case e.Type != "":
		return fmt.Sprintf("rates: %s: %s (code=%d)", e.Provider, e.Type, e.Code)
	case e.Err != nil:
		return fmt.Sprintf("rates: %s: %v", e.Provider, e.Err)
	case e.StatusCode > 0:
		return fmt.Sprintf("rates: %s status=%d", e.Provider, e.StatusCode)
	}
	return "rates: provider request failed"
}

func (e *UpstreamError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Diagnostic returns the provider-supplied message, if any.
func (e *UpstreamError) Diagnostic() string {
	if e == nil {
		return ""
	}
	if e.Info != "" {
		return e.Info
	}
	return e.Type
}
