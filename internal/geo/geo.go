package geo

import (
	"context"
	"errors"
	"fmt"
)

// Result is the geolocation resolved for a ZIP code. It is a plain value:
// produced once per successful lookup and never mutated afterwards.
type Result struct {
	Latitude         float64 `json:"latitude"`
	Longitude        float64 `json:"longitude"`
	UTCOffsetSeconds int     `json:"utcOffsetSeconds"`
	Name             string  `json:"name"`
}

// Lookuper resolves a 5-digit ZIP code to a geolocation.
// Implemented by Client and by the decorators that wrap it.
type Lookuper interface {
	Lookup(ctx context.Context, zip string) (Result, error)
}

// Code classifies a lookup failure. The CRUD layer maps codes to HTTP
// statuses; the retry layer keys its policy off them.
type Code string

const (
	CodeInvalidInput    Code = "invalid_input"
	CodeNotFound        Code = "not_found"
	CodeUnauthorized    Code = "unauthorized"
	CodeRateLimited     Code = "rate_limited"
	CodeUnreachable     Code = "unreachable"
	CodeUnknown         Code = "unknown"
	CodeServiceDegraded Code = "service_degraded"
)

// Error is a classified lookup failure.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func newError(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// CodeOf extracts the classification from err, or CodeUnknown if err is not
// a classified lookup error.
func CodeOf(err error) Code {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Code
	}
	return CodeUnknown
}

// ValidateZip checks that zip is exactly 5 ASCII digits.
func ValidateZip(zip string) error {
	if len(zip) != 5 {
		return newError(CodeInvalidInput, "invalid ZIP code %q: must be exactly 5 digits", zip)
	}
	for i := 0; i < len(zip); i++ {
		if zip[i] < '0' || zip[i] > '9' {
			return newError(CodeInvalidInput, "invalid ZIP code %q: must be exactly 5 digits", zip)
		}
	}
	return nil
}
