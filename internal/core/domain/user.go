package domain

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	// UserIDPrefix is prepended to the numeric primary key to build a UserID.
	UserIDPrefix = "usr_"
	// MaxFieldLength bounds email and name, in characters (varchar(255)).
	MaxFieldLength = 255
)

var (
	userIDPattern = regexp.MustCompile(`^usr_(\d+)$`)
	emailPattern  = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

// UserID is the public identifier of a user, e.g. "usr_42".
type UserID string

// FormatUserID maps a users.id primary key to its public identifier.
func FormatUserID(pk int64) UserID {
	return UserID(UserIDPrefix + strconv.FormatInt(pk, 10))
}

// ParseUserID extracts the primary key from a public identifier.
// The second return value is false when s does not match usr_<digits>
// or the digits overflow int64.
func ParseUserID(s string) (int64, bool) {
	m := userIDPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	pk, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, false
	}
	return pk, true
}

// IsValidEmail reports whether s passes the basic address pattern.
func IsValidEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// User is the domain record for a row of the users table.
type User struct {
	ID        UserID    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// ValidateNewUser checks the create payload invariants: email must match the
// basic pattern and name must be non-empty. Both fit MaxFieldLength.
func ValidateNewUser(email, name string) error {
	var problems []string
	switch {
	case !IsValidEmail(email):
		problems = append(problems, "Invalid email format")
	case utf8.RuneCountInString(email) > MaxFieldLength:
		problems = append(problems, fmt.Sprintf("Email must be at most %d characters", MaxFieldLength))
	}
	switch {
	case name == "":
		problems = append(problems, "Name is required")
	case utf8.RuneCountInString(name) > MaxFieldLength:
		problems = append(problems, fmt.Sprintf("Name must be at most %d characters", MaxFieldLength))
	}
	if len(problems) == 0 {
		return nil
	}
	return &ValidationError{
		Message: strings.Join(problems, "; "),
		Errors:  problems,
	}
}

// AuditEntry is written to the audit bucket after a user is created.
type AuditEntry struct {
	Action     string
	UserID     UserID
	Email      string
	OccurredAt time.Time
	RequestID  string
}

const AuditUserCreated = "user.created"
