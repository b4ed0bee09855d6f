// Package validate holds the pure field validators used by the onboarding
// machines. Validators are total: the same input always yields the same
// typed value or the same failure, and nothing is mutated. Failures wrap
// errors.ErrValidation and carry the field name and a reason.
package validate

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	e "github.com/thkuo/onboarding/internal/onboarding/errors"
)

// esgNegative is the set of tokens meaning "no ESG certifications".
// Anything else non-empty is treated as the certification list itself.
var esgNegative = map[string]bool{
	"none":  true,
	"no":    true,
	"n":     true,
	"false": true,
	"0":     true,
	"-":     true,
}

func failure(field, reason string) error {
	return fmt.Errorf("%w: %s: %s", e.ErrValidation, field, reason)
}

// Text accepts any value with visible content and returns it trimmed.
func Text(field, raw string) (string, error) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return "", failure(field, "must not be empty")
	}
	return v, nil
}

// Count accepts a non-negative integer.
func Count(field, raw string) (int, error) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return 0, failure(field, "must not be empty")
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, failure(field, "must be an integer")
	}
	if n < 0 {
		return 0, failure(field, "must not be negative")
	}
	return n, nil
}

// Money accepts a non-negative decimal amount.
func Money(field, raw string) (decimal.Decimal, error) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return decimal.Zero, failure(field, "must not be empty")
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, failure(field, "must be a numeric amount")
	}
	if d.IsNegative() {
		return decimal.Zero, failure(field, "must not be negative")
	}
	return d, nil
}

// ESG accepts either a negative token (normalized to "none") or a non-empty
// certification list, returned trimmed.
func ESG(field, raw string) (string, error) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return "", failure(field, "must not be empty")
	}
	if esgNegative[strings.ToLower(v)] {
		return "none", nil
	}
	return v, nil
}
