package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the storage format of Expense.Date. Lexical order of strings in
// this layout matches chronological order.
const DateLayout = "2006-01-02"

type (
	// Expense is one recorded monetary entry.
	Expense struct {
		ID          int64   `json:"id"`
		Date        string  `json:"date"`
		Amount      float64 `json:"amount"`
		Description string  `json:"description"`
	}

	// Draft is the raw user input for a new expense, before validation.
	Draft struct {
		Date        string
		Amount      string
		Description string
	}
)

var (
	ErrValidation = errors.New("validation error")
	ErrStorage    = errors.New("storage error")
)

// ValidationError reports bad or missing input to the expense factory.
type ValidationError struct {
	Reason string
	Fields []string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Reason
	}
	return fmt.Sprintf("%s (%s)", e.Reason, strings.Join(e.Fields, ", "))
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// StorageError reports a write the persistence substrate rejected.
// The caller's pending collection must be treated as unsaved.
type StorageError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func (e *StorageError) Is(target error) bool {
	return target == ErrStorage
}

// NewExpense validates and normalizes d and assigns it an id drawn from ids.
// An id is only drawn once validation has passed.
func NewExpense(d Draft, ids IDSource) (Expense, error) {
	date := strings.TrimSpace(d.Date)
	amount := strings.TrimSpace(d.Amount)
	desc := strings.TrimSpace(d.Description)

	var missing []string
	if date == "" {
		missing = append(missing, "date")
	}
	if amount == "" {
		missing = append(missing, "amount")
	}
	if desc == "" {
		missing = append(missing, "description")
	}
	if len(missing) > 0 {
		return Expense{}, &ValidationError{Reason: "missing fields", Fields: missing}
	}

	if err := ValidateDate(date); err != nil {
		return Expense{}, err
	}

	value, err := ParseAmount(amount)
	if err != nil {
		return Expense{}, &ValidationError{Reason: "invalid amount", Fields: []string{"amount"}}
	}

	return Expense{
		ID:          ids.NextID(),
		Date:        date,
		Amount:      value,
		Description: strings.ToUpper(desc),
	}, nil
}

// ValidateDate checks that s is a calendar date in YYYY-MM-DD form.
func ValidateDate(s string) error {
	if _, err := time.Parse(DateLayout, s); err != nil {
		return &ValidationError{Reason: "invalid date", Fields: []string{"date"}}
	}
	return nil
}
