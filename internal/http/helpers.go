package http

import (
	"errors"
	"net/http"
	"strings"

	"txcat/internal/core"
	"txcat/internal/services"
)

// sanitizeInput removes control characters except tab, newline and
// carriage return, and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		if r == 0x7f {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}

var validationErrors = []error{
	core.ErrInvalidAmount,
	core.ErrInvalidDate,
	core.ErrEmptyMerchant,
	core.ErrMerchantTooLong,
	core.ErrInvalidRange,
	core.ErrInvalidMonth,
	errInvalidField,
	errInvalidID,
	errMissingMonth,
}

// errorResponse maps an error from parsing or the service to a response.
// Unexpected errors become an opaque 500.
func errorResponse(err error) *ResponseBuilder {
	switch {
	case errors.Is(err, services.ErrNotFound):
		return NotFoundError("transaction not found")
	case errors.Is(err, errMalformedBody):
		return BadRequestError(err.Error())
	}
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return UnprocessableEntityError(err.Error())
		}
	}
	return InternalServerError()
}

func isServerError(rb *ResponseBuilder) bool {
	return rb.StatusCode() >= http.StatusInternalServerError
}
