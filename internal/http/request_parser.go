package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"txcat/internal/core"
)

// maxBodyBytes bounds create request bodies.
const maxBodyBytes = 1 << 20

var (
	errMalformedBody = errors.New("malformed JSON body")
	errInvalidID     = errors.New("invalid transaction id")
	errMissingMonth  = errors.New("month is required")
)

// createTransactionRequest is the POST /transactions/ body. Category is
// not accepted; it is always derived from the merchant.
type createTransactionRequest struct {
	Amount   *core.Money `json:"amount"`
	Merchant string      `json:"merchant"`
	Date     *core.Date  `json:"date"`
}

// DecodeCreateRequest reads a transaction payload. Syntax errors wrap
// errMalformedBody; bad field values wrap the core validation errors.
func DecodeCreateRequest(r *http.Request) (core.NewTransaction, error) {
	body := http.MaxBytesReader(nil, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)

	var req createTransactionRequest
	if err := dec.Decode(&req); err != nil {
		var typeErr *json.UnmarshalTypeError
		switch {
		case errors.Is(err, core.ErrInvalidAmount), errors.Is(err, core.ErrInvalidDate):
			return core.NewTransaction{}, err
		case errors.As(err, &typeErr):
			return core.NewTransaction{}, fmt.Errorf("%w: field %q must be a %s", errInvalidField, typeErr.Field, jsonKind(typeErr.Type.Kind().String()))
		case errors.Is(err, io.EOF):
			return core.NewTransaction{}, fmt.Errorf("%w: empty body", errMalformedBody)
		default:
			return core.NewTransaction{}, fmt.Errorf("%w: %v", errMalformedBody, err)
		}
	}
	if dec.More() {
		return core.NewTransaction{}, fmt.Errorf("%w: unexpected data after JSON object", errMalformedBody)
	}

	if req.Amount == nil {
		return core.NewTransaction{}, fmt.Errorf("%w: amount is required", core.ErrInvalidAmount)
	}
	if req.Date == nil {
		return core.NewTransaction{}, fmt.Errorf("%w: date is required", core.ErrInvalidDate)
	}

	return core.NewTransaction{
		Amount:   *req.Amount,
		Merchant: sanitizeInput(req.Merchant),
		Date:     *req.Date,
	}, nil
}

var errInvalidField = errors.New("invalid field")

func jsonKind(goKind string) string {
	switch goKind {
	case "string":
		return "string"
	case "struct", "map":
		return "object"
	case "slice", "array":
		return "array"
	default:
		return "number"
	}
}

// ParseFilterParams reads the optional start and end query parameters.
func ParseFilterParams(query url.Values) (core.Filter, error) {
	var f core.Filter
	for _, p := range []struct {
		name string
		dst  **core.Date
	}{{"start", &f.Start}, {"end", &f.End}} {
		v := strings.TrimSpace(query.Get(p.name))
		if v == "" {
			continue
		}
		d, err := core.ParseDate(v)
		if err != nil {
			return core.Filter{}, fmt.Errorf("%s: %w", p.name, err)
		}
		*p.dst = &d
	}
	if err := f.Validate(); err != nil {
		return core.Filter{}, err
	}
	return f, nil
}

// ParseMonthParam reads the required month=YYYY-MM query parameter.
func ParseMonthParam(query url.Values) (core.Month, error) {
	v := strings.TrimSpace(query.Get("month"))
	if v == "" {
		return core.Month{}, errMissingMonth
	}
	return core.ParseMonth(v)
}

// ParseIDParam reads a positive integer path value.
func ParseIDParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %q", errInvalidID, r.PathValue("id"))
	}
	return id, nil
}

// RequireMethod returns a 405 response when r uses none of methods. HEAD is
// accepted wherever GET is.
func RequireMethod(r *http.Request, methods ...string) *ResponseBuilder {
	if slices.Contains(methods, r.Method) {
		return nil
	}
	if r.Method == http.MethodHead && slices.Contains(methods, http.MethodGet) {
		return nil
	}
	return MethodNotAllowedError(methods...)
}
