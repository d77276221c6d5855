package domain

import (
	"errors"
	"math"
	"strings"
	"testing"
)

func TestUserID_RoundTrip(t *testing.T) {
	for _, pk := range []int64{0, 1, 7, 42, 999999, math.MaxInt64} {
		id := FormatUserID(pk)
		got, ok := ParseUserID(string(id))
		if !ok {
			t.Fatalf("ParseUserID(%q) reported invalid", id)
		}
		if got != pk {
			t.Fatalf("round trip mismatch: want %d, got %d", pk, got)
		}
	}
}

func TestParseUserID_Invalid(t *testing.T) {
	cases := []string{
		"",
		"usr_",
		"usr_abc",
		"usr_12a",
		"usr-12",
		"USR_12",
		"12",
		" usr_12",
		"usr_12 ",
		"usr_-1",
		"usr_99999999999999999999",
	}
	for _, in := range cases {
		if pk, ok := ParseUserID(in); ok {
			t.Fatalf("ParseUserID(%q) = %d, expected invalid", in, pk)
		}
	}
}

func TestFormatUserID(t *testing.T) {
	if got := FormatUserID(42); got != "usr_42" {
		t.Fatalf("expected usr_42, got %s", got)
	}
}

func TestIsValidEmail(t *testing.T) {
	valid := []string{"a@b.co", "alice@example.com", "x.y+z@sub.domain.org"}
	invalid := []string{"", "alice", "alice@", "@example.com", "alice@example", "al ice@example.com"}

	for _, s := range valid {
		if !IsValidEmail(s) {
			t.Fatalf("expected %q to be valid", s)
		}
	}
	for _, s := range invalid {
		if IsValidEmail(s) {
			t.Fatalf("expected %q to be invalid", s)
		}
	}
}

func TestValidateNewUser(t *testing.T) {
	if err := ValidateNewUser("alice@example.com", "Alice"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err := ValidateNewUser("nope", "")
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(ve.Errors) != 2 {
		t.Fatalf("expected 2 problems, got %v", ve.Errors)
	}
}

func TestValidateNewUser_Lengths(t *testing.T) {
	long := strings.Repeat("a", MaxFieldLength)
	if err := ValidateNewUser("a@b.co", long); err != nil {
		t.Fatalf("name of %d chars must be accepted: %v", MaxFieldLength, err)
	}
	if err := ValidateNewUser("a@b.co", strings.Repeat("é", MaxFieldLength)); err != nil {
		t.Fatalf("length is counted in characters, not bytes: %v", err)
	}

	tests := []struct {
		email, name string
		want        string
	}{
		{"a@b.co", long + "a", "Name must be at most 255 characters"},
		{long + "@b.co", "N", "Email must be at most 255 characters"},
	}
	for _, tt := range tests {
		err := ValidateNewUser(tt.email, tt.name)
		var ve *ValidationError
		if !errors.As(err, &ve) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		if len(ve.Errors) != 1 || ve.Errors[0] != tt.want {
			t.Fatalf("got %v, want [%s]", ve.Errors, tt.want)
		}
	}
}

func TestUserNotFoundError_Is(t *testing.T) {
	err := error(&UserNotFoundError{ID: "usr_1", Message: "User not found: usr_1"})
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected errors.Is to match ErrUserNotFound")
	}
}

func TestUserCreationError_Unwrap(t *testing.T) {
	err := error(&UserCreationError{Email: "a@b.co", Name: "A", Err: ErrDuplicateEmail})
	if !errors.Is(err, ErrDuplicateEmail) {
		t.Fatalf("expected errors.Is to match ErrDuplicateEmail")
	}
	var tagged Tagged
	if !errors.As(err, &tagged) || tagged.Tag() != "UserCreationError" {
		t.Fatalf("expected tagged UserCreationError, got %v", err)
	}
}
