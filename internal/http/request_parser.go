// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for decoding and validating request data.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"ledger/internal/core"
)

const maxBodyBytes = 1 << 20

// errBadRequest marks malformed requests, as opposed to well-formed ones
// the ledger rejects.
var errBadRequest = errors.New("bad request")

// decodeJSON reads a single JSON object into v, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: invalid JSON body: %v", errBadRequest, err)
	}
	return nil
}

// amountInput accepts an amount as a JSON number or string. Both dot and
// comma decimal separators are allowed in the string form.
type amountInput struct {
	raw string
}

func (a *amountInput) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if strings.HasPrefix(s, `"`) {
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
	}
	if s == "null" {
		s = ""
	}
	a.raw = s
	return nil
}

func (a amountInput) Money() (core.Money, error) {
	m, err := core.ParseMoney(a.raw)
	if err != nil {
		return core.Money{}, fmt.Errorf("%w: %q", core.ErrInvalidAmount, a.raw)
	}
	return m, nil
}

// parseDate reads YYYY-MM-DD, defaulting to today when empty.
func parseDate(s string) (core.Date, error) {
	if strings.TrimSpace(s) == "" {
		return core.Today(), nil
	}
	return core.ParseDate(s)
}

// parseIndex reads the {index} path value.
func parseIndex(r *http.Request) (int, error) {
	raw := r.PathValue("index")
	i, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: index %q is not a number", errBadRequest, raw)
	}
	return i, nil
}

// MonthParams holds parsed year/month values from request parameters.
type MonthParams struct {
	Year  int
	Month int
}

// ParseMonthParams extracts year and month from query parameters, using
// the current month for missing values. Non-numeric values are errors;
// range checks are left to the balance engine.
func ParseMonthParams(query url.Values) (MonthParams, error) {
	now := time.Now()
	params := MonthParams{
		Year:  now.Year(),
		Month: int(now.Month()),
	}

	if v := strings.TrimSpace(query.Get("year")); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil {
			return params, fmt.Errorf("%w: year %q is not a number", errBadRequest, v)
		}
		params.Year = y
	}
	if v := strings.TrimSpace(query.Get("month")); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil {
			return params, fmt.Errorf("%w: month %q is not a number", errBadRequest, v)
		}
		params.Month = m
	}

	return params, nil
}
