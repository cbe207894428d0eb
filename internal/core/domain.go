package core

import (
	"fmt"
	"math"
	"strings"
	"time"
	"unicode"
)

const (
	Expense OperationType = "expense"
	Revenue OperationType = "revenue"
)

const minPasswordLength = 8

type (
	OperationType string

	User struct {
		ID       int64  `json:"id"`
		Username string `json:"username"`
		Password string `json:"password"`
	}

	// Credentials is the sign-in payload; it carries no id.
	Credentials struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}

	Operation struct {
		ID     int64         `json:"id"`
		Sum    float64       `json:"sum"`
		UserID int64         `json:"userId"`
		Type   OperationType `json:"type"`
		Date   time.Time     `json:"date"`
	}
)

// ParseOperationType maps a wire value onto the closed set of types.
func ParseOperationType(s string) (OperationType, error) {
	switch t := OperationType(strings.ToLower(strings.TrimSpace(s))); t {
	case Expense, Revenue:
		return t, nil
	default:
		return "", &ValidationError{Field: "type", Rule: fmt.Sprintf("must be %q or %q", Expense, Revenue)}
	}
}

func (t OperationType) String() string {
	return string(t)
}

func (t OperationType) Valid() bool {
	return t == Expense || t == Revenue
}

func (t *OperationType) UnmarshalText(b []byte) error {
	parsed, err := ParseOperationType(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

func (t OperationType) MarshalText() ([]byte, error) {
	return []byte(t), nil
}

func (u User) Validate() error {
	return Credentials{Username: u.Username, Password: u.Password}.Validate()
}

func (c Credentials) Validate() error {
	if err := validateUsername(c.Username); err != nil {
		return err
	}
	return validatePassword(c.Password)
}

func validateUsername(name string) error {
	if name == "" {
		return &ValidationError{Field: "username", Rule: "cannot be empty"}
	}
	for _, r := range name {
		if !unicode.IsLetter(r) {
			return &ValidationError{Field: "username", Rule: "must contain letters only"}
		}
	}
	return nil
}

func validatePassword(pw string) error {
	if len([]rune(pw)) < minPasswordLength {
		return &ValidationError{Field: "password", Rule: fmt.Sprintf("must be at least %d characters", minPasswordLength)}
	}
	if strings.IndexFunc(pw, unicode.IsSpace) >= 0 {
		return &ValidationError{Field: "password", Rule: "cannot contain whitespace"}
	}
	return nil
}

// Validate checks the value invariants of an operation. Whether the user
// exists is checked by the ledger, which owns the resolver.
func (o Operation) Validate() error {
	if math.IsNaN(o.Sum) {
		return &ValidationError{Field: "sum", Rule: "must be a number"}
	}
	if o.Sum < 0 {
		return &ValidationError{Field: "sum", Rule: "cannot be negative"}
	}
	if !o.Type.Valid() {
		return &ValidationError{Field: "type", Rule: fmt.Sprintf("must be %q or %q", Expense, Revenue)}
	}
	if o.Date.IsZero() {
		return &ValidationError{Field: "date", Rule: "is required"}
	}
	if y := o.Date.UTC().Year(); y < MinYear || y > MaxYear {
		return &ValidationError{Field: "date", Rule: fmt.Sprintf("year must be between %d and %d", MinYear, MaxYear)}
	}
	return nil
}
