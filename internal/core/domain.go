package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the text form of a Date in persisted state and exports.
const DateLayout = "2006-01-02"

type (
	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	Person struct {
		Name string
	}

	// Expense is a shared outlay paid by Payer and split equally
	// among Participants. Amount is always positive.
	Expense struct {
		Date         Date
		Description  string
		Amount       Money
		Payer        string
		Participants []string
	}

	// Income is money received by Recipient. Amount is always positive.
	Income struct {
		Date        Date
		Description string
		Amount      Money
		Recipient   string
	}

	// TaggedExpense is a cashbook expense. Amount is stored negative.
	TaggedExpense struct {
		Date        Date
		Category    Category
		Amount      Money
		Description string
	}

	// TaggedIncome is a cashbook income. Amount is stored positive.
	TaggedIncome struct {
		Date        Date
		Source      Source
		Amount      Money
		Description string
	}
)

var (
	ErrDuplicateEntity   = errors.New("duplicate entity")
	ErrUnknownPerson     = errors.New("unknown person")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInvalidCategory   = errors.New("invalid category")
	ErrInvalidSource     = errors.New("invalid source")
	ErrEmptyParticipants = errors.New("at least one participant is required")
	ErrEmptyName         = errors.New("empty name")
	ErrInvalidMonth      = errors.New("invalid month")
	ErrInvalidDate       = errors.New("invalid date")
	ErrPersistence       = errors.New("persistence failure")
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string. Calendar overflow such as
// 2024-02-30 is rejected.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

// Today returns the current calendar date in UTC.
func Today() Date {
	now := time.Now().UTC()
	return NewDate(now.Year(), int(now.Month()), now.Day())
}

func (d Date) Validate() error {
	if d.IsZero() {
		return fmt.Errorf("%w: date cannot be zero", ErrInvalidDate)
	}
	return nil
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// InMonth reports whether the date falls in the given calendar year and month.
func (d Date) InMonth(year, month int) bool {
	return d.Year() == year && d.Month() == month
}

func (d Date) String() string {
	return d.Format(DateLayout)
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(b []byte) error {
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MarshalJSON shadows the promoted time.Time encoder so dates stay in
// YYYY-MM-DD form.
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	return d.UnmarshalText([]byte(s))
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (p Person) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return ErrEmptyName
	}
	return nil
}

// Validate checks the expense fields that do not depend on ledger state.
// Membership of payer and participants is checked by the ledger.
func (e Expense) Validate() error {
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if len(e.Participants) == 0 {
		return ErrEmptyParticipants
	}
	return nil
}

// Involves reports whether name is the payer or one of the participants.
func (e Expense) Involves(name string) bool {
	if e.Payer == name {
		return true
	}
	for _, p := range e.Participants {
		if p == name {
			return true
		}
	}
	return false
}

func (i Income) Validate() error {
	if err := i.Date.Validate(); err != nil {
		return err
	}
	return i.Amount.Validate()
}

func (e TaggedExpense) Validate() error {
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if e.Amount.Cents >= 0 {
		return ErrInvalidAmount
	}
	if !e.Category.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidCategory, string(e.Category))
	}
	return nil
}

func (i TaggedIncome) Validate() error {
	if err := i.Date.Validate(); err != nil {
		return err
	}
	if err := i.Amount.Validate(); err != nil {
		return err
	}
	if !i.Source.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidSource, string(i.Source))
	}
	return nil
}
