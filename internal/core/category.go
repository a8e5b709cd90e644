package core

import "fmt"

// Category is the closed set of cashbook expense categories.
type Category string

const (
	Food          Category = "Food"
	Transport     Category = "Transport"
	Utilities     Category = "Utilities"
	Entertainment Category = "Entertainment"
	Health        Category = "Health"
	OtherCategory Category = "Other"
)

// Source is the closed set of cashbook income sources.
type Source string

const (
	Salary      Source = "Salary"
	Business    Source = "Business"
	Investment  Source = "Investment"
	Gift        Source = "Gift"
	OtherSource Source = "Other"
)

// Categories returns every category in display order. Monthly reports
// list categories in this order.
func Categories() []Category {
	return []Category{Food, Transport, Utilities, Entertainment, Health, OtherCategory}
}

// Sources returns every income source in display order.
func Sources() []Source {
	return []Source{Salary, Business, Investment, Gift, OtherSource}
}

func (c Category) Valid() bool {
	switch c {
	case Food, Transport, Utilities, Entertainment, Health, OtherCategory:
		return true
	}
	return false
}

func (c Category) String() string { return string(c) }

// ParseCategory matches s exactly against the known categories.
func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidCategory, s)
	}
	return c, nil
}

func (s Source) Valid() bool {
	switch s {
	case Salary, Business, Investment, Gift, OtherSource:
		return true
	}
	return false
}

func (s Source) String() string { return string(s) }

// ParseSource matches s exactly against the known income sources.
func ParseSource(s string) (Source, error) {
	src := Source(s)
	if !src.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidSource, s)
	}
	return src, nil
}
