package core

import (
	"errors"
	"net/mail"
	"strings"
	"time"
)

const (
	// DefaultUtility is applied when a caller leaves utility unset.
	DefaultUtility = 1

	MinPasswordLength = 6

	maxDescriptionLength = 200
	maxLabelLength       = 100
)

type (
	User struct {
		ID           int64
		Name         string
		Email        string
		PasswordHash string
		ExpenseLimit Money
		CreatedAt    time.Time
	}

	// Session is an opaque login token bound to a user until ExpiresAt.
	Session struct {
		Token     string
		UserID    int64
		CreatedAt time.Time
		ExpiresAt time.Time
	}

	Expense struct {
		ID          int64
		UserID      int64
		Amount      Money
		Category    string
		Description string
		Utility     int // lower value = higher spending priority
		Date        time.Time
		Month       int // 1-12, derived from Date (UTC)
		Year        int
	}

	Income struct {
		ID          int64
		UserID      int64
		Amount      Money
		Source      string
		Description string
		Date        time.Time
		Month       int
		Year        int
	}
)

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidLimit    = errors.New("invalid expense limit")
	ErrInvalidUtility  = errors.New("utility must not be negative")
	ErrInvalidMonth    = errors.New("invalid month")
	ErrInvalidYear     = errors.New("invalid year")
	ErrEmptyCategory   = errors.New("empty category")
	ErrEmptySource     = errors.New("empty source")
	ErrEmptyName       = errors.New("empty name")
	ErrInvalidEmail    = errors.New("invalid email")
	ErrWeakPassword    = errors.New("password too short")
	ErrZeroDate        = errors.New("date cannot be zero")
	ErrDescriptionLong = errors.New("description too long (max 200 characters)")
	ErrLabelLong       = errors.New("label too long (max 100 characters)")

	ErrNotFound      = errors.New("not found")
	ErrEmailTaken    = errors.New("email already registered")
	ErrNotAuthorized = errors.New("not authorized")
)

// Stamp sets Month and Year from Date, defaulting Date to now when it is zero.
func (e *Expense) Stamp(now time.Time) {
	if e.Date.IsZero() {
		e.Date = now
	}
	e.Date = e.Date.UTC()
	p := PeriodOf(e.Date)
	e.Month, e.Year = p.Month, p.Year
	if e.Utility == 0 {
		e.Utility = DefaultUtility
	}
}

func (e Expense) Validate() error {
	if e.Date.IsZero() {
		return ErrZeroDate
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if err := validateLabel(e.Category, ErrEmptyCategory); err != nil {
		return err
	}
	if len(e.Description) > maxDescriptionLength {
		return ErrDescriptionLong
	}
	if e.Utility < 0 {
		return ErrInvalidUtility
	}
	return nil
}

// Stamp sets Month and Year from Date, defaulting Date to now when it is zero.
func (i *Income) Stamp(now time.Time) {
	if i.Date.IsZero() {
		i.Date = now
	}
	i.Date = i.Date.UTC()
	p := PeriodOf(i.Date)
	i.Month, i.Year = p.Month, p.Year
}

func (i Income) Validate() error {
	if i.Date.IsZero() {
		return ErrZeroDate
	}
	if err := i.Amount.Validate(); err != nil {
		return err
	}
	if err := validateLabel(i.Source, ErrEmptySource); err != nil {
		return err
	}
	if len(i.Description) > maxDescriptionLength {
		return ErrDescriptionLong
	}
	return nil
}

// NormalizeEmail lowercases and trims an address so lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateRegistration checks the fields a new account needs before hashing.
func ValidateRegistration(name, email, password string) error {
	if strings.TrimSpace(name) == "" {
		return ErrEmptyName
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != strings.TrimSpace(email) {
		return ErrInvalidEmail
	}
	if len(password) < MinPasswordLength {
		return ErrWeakPassword
	}
	return nil
}

func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

func validateLabel(v string, empty error) error {
	v = strings.TrimSpace(v)
	if v == "" {
		return empty
	}
	if len(v) > maxLabelLength {
		return ErrLabelLong
	}
	return nil
}
