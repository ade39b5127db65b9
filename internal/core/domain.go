package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Income  Kind = "income"
	Expense Kind = "expense"
)

type (
	Kind string

	Date struct {
		time.Time
	}

	// Transaction is a single recorded money movement. Amount is normalized:
	// positive increases category spend, negative is a refund or credit.
	Transaction struct {
		ID          string          `json:"id"`
		Date        Date            `json:"date"`
		Amount      decimal.Decimal `json:"amount"`
		Account     string          `json:"account"`
		Category    string          `json:"category,omitempty"`
		Description string          `json:"description"`
		Kind        Kind            `json:"kind"`
	}

	// BudgetDefinition is a monthly spending ceiling for one category.
	// A zero EndDate means the definition is open-ended.
	BudgetDefinition struct {
		ID        string          `json:"id"`
		Category  string          `json:"category"`
		Amount    decimal.Decimal `json:"amount"`
		StartDate Date            `json:"start_date"`
		EndDate   Date            `json:"end_date"`
		Enabled   bool            `json:"enabled"`
	}
)

var (
	ErrInvalidPeriod   = errors.New("invalid period")
	ErrMalformedRecord = errors.New("malformed record")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidFormula  = errors.New("invalid formula")
	ErrNotFound        = errors.New("not found")
)

const dateLayout = "2006-01-02"

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// MonthEnd returns the last calendar day of the given month.
func MonthEnd(year, month int) Date {
	return Date{Time: time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a date string in YYYY-MM-DD format.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

// IsEmpty returns true if the date is zero (optional end dates)
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.Format(dateLayout) + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return fmt.Errorf("date %q: %w", s, err)
	}
	*d = parsed
	return nil
}

func malformed(kind, id, reason string) error {
	if id == "" {
		id = "<no id>"
	}
	return fmt.Errorf("%w: %s %s: %s", ErrMalformedRecord, kind, id, reason)
}

func (t Transaction) Validate() error {
	if t.Date.IsZero() {
		return malformed("transaction", t.ID, "missing date")
	}
	if strings.TrimSpace(t.Account) == "" {
		return malformed("transaction", t.ID, "missing account")
	}
	switch t.Kind {
	case Expense:
		if strings.TrimSpace(t.Category) == "" {
			return malformed("transaction", t.ID, "expense without category")
		}
	case Income:
	default:
		return malformed("transaction", t.ID, fmt.Sprintf("unknown kind %q", t.Kind))
	}
	if len(t.Description) > 200 {
		return malformed("transaction", t.ID, "description too long (max 200 characters)")
	}
	return nil
}

// EffectiveOn reports whether the definition's [start, end] interval contains d.
func (b BudgetDefinition) EffectiveOn(d Date) bool {
	if d.Before(b.StartDate.Time) {
		return false
	}
	return b.EndDate.IsZero() || !d.After(b.EndDate.Time)
}

// Overlaps reports whether the definition is effective on any day of [from, to].
func (b BudgetDefinition) Overlaps(from, to Date) bool {
	if to.Before(b.StartDate.Time) {
		return false
	}
	return b.EndDate.IsZero() || !from.After(b.EndDate.Time)
}

func (b BudgetDefinition) Validate() error {
	if strings.TrimSpace(b.Category) == "" {
		return malformed("budget", b.ID, "missing category")
	}
	if b.StartDate.IsZero() {
		return malformed("budget", b.ID, "missing start date")
	}
	if !b.EndDate.IsZero() && b.EndDate.Before(b.StartDate.Time) {
		return malformed("budget", b.ID, "end date before start date")
	}
	if b.Amount.IsNegative() {
		return malformed("budget", b.ID, "negative amount")
	}
	return nil
}
