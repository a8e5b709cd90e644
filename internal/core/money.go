// Package core provides money parsing and handling utilities.
//
// This file contains functions for parsing monetary amounts from strings
// and converting between cents and decimal representations.
package core

import (
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// ParseDecimalToCents converts a decimal string to cents with proper rounding.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and performs
// half-up rounding on the third decimal place. The result is always positive cents.
// Returns ErrInvalidAmount for invalid formats, negative values, or zero amounts.
//
// Examples:
//
//	ParseDecimalToCents("12.34") -> 1234, nil
//	ParseDecimalToCents("12,34") -> 1234, nil
//	ParseDecimalToCents("12.345") -> 1235, nil
//	ParseDecimalToCents("-5") -> 0, ErrInvalidAmount
func ParseDecimalToCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, fmt.Errorf("%w: amount must be positive", ErrInvalidAmount)
	}
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return 0, ErrInvalidAmount
	}
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if intPart == "" {
		intPart = "0"
	}
	for _, r := range intPart + fracPart {
		if !unicode.IsDigit(r) {
			return 0, ErrInvalidAmount
		}
	}
	iv, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	const maxSafeInt64 = (1<<63 - 1) / 100
	if iv >= maxSafeInt64 {
		return 0, ErrInvalidAmount
	}
	// first two fractional digits, half-up on the third
	var fracCents int64
	if len(fracPart) > 0 {
		fracCents = int64(fracPart[0]-'0') * 10
		if len(fracPart) > 1 {
			fracCents += int64(fracPart[1] - '0')
			if len(fracPart) > 2 && fracPart[2] >= '5' {
				fracCents++
			}
		}
	}
	cents := iv*100 + fracCents
	if cents <= 0 {
		return 0, ErrInvalidAmount
	}
	return cents, nil
}

// ParseMoney is ParseDecimalToCents wrapped in a Money.
func ParseMoney(s string) (Money, error) {
	cents, err := ParseDecimalToCents(s)
	if err != nil {
		return Money{}, err
	}
	return Money{Cents: cents}, nil
}

// ParseSignedMoney reads a persisted amount such as "-45.50". Unlike
// ParseMoney it accepts a sign and zero. Digits past the cent are rounded
// half away from zero.
func ParseSignedMoney(s string) (Money, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return Money{}, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	cents := d.Shift(2).Round(0)
	if !cents.BigInt().IsInt64() {
		return Money{}, fmt.Errorf("%w: %q out of range", ErrInvalidAmount, s)
	}
	return Money{Cents: cents.IntPart()}, nil
}

// FromRat rounds an exact number of cents to a whole cent, half away
// from zero.
func FromRat(cents *big.Rat) Money {
	den := cents.Denom()
	q, r := new(big.Int).QuoRem(new(big.Int).Abs(cents.Num()), den, new(big.Int))
	if r.Lsh(r, 1).Cmp(den) >= 0 {
		q.Add(q, big.NewInt(1))
	}
	if cents.Sign() < 0 {
		q.Neg(q)
	}
	return Money{Cents: q.Int64()}
}

// FromFloat converts a decimal amount to Money, rounding half away from zero
// to the nearest cent.
func FromFloat(v float64) Money {
	return Money{Cents: int64(math.Round(v * 100))}
}

// Float returns the amount as a decimal number. Use cents for arithmetic.
func (m Money) Float() float64 {
	return float64(m.Cents) / 100.0
}

// Abs returns the magnitude of m.
func (m Money) Abs() Money {
	if m.Cents < 0 {
		return Money{Cents: -m.Cents}
	}
	return m
}

// Neg returns m with its sign flipped.
func (m Money) Neg() Money {
	return Money{Cents: -m.Cents}
}

// String renders the amount with two decimals and no currency symbol.
func (m Money) String() string {
	sign := ""
	c := m.Cents
	if c < 0 {
		sign = "-"
		c = -c
	}
	return fmt.Sprintf("%s%d.%02d", sign, c/100, c%100)
}
