package validation

import "testing"

func TestIsValidEmail(t *testing.T) {
	tests := []struct {
		name  string
		email string
		valid bool
	}{
		{
			name:  "plain address",
			email: "user@example.com",
			valid: true,
		},
		{
			name:  "subdomain",
			email: "user@mail.example.org",
			valid: true,
		},
		{
			name:  "missing at",
			email: "userexample.com",
			valid: false,
		},
		{
			name:  "missing domain dot",
			email: "user@example",
			valid: false,
		},
		{
			name:  "trailing dot",
			email: "user@example.",
			valid: false,
		},
		{
			name:  "two at signs",
			email: "user@foo@example.com",
			valid: false,
		},
		{
			name:  "contains space",
			email: "us er@example.com",
			valid: false,
		},
		{
			name:  "empty string",
			email: "",
			valid: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsValidEmail(tt.email)
			if got != tt.valid {
				t.Fatalf("IsValidEmail(%q) = %v, want %v", tt.email, got, tt.valid)
			}
		})
	}
}

func TestIsValidPassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		valid    bool
	}{
		{
			name:     "meets all requirements",
			password: "Abc1@x",
			valid:    true,
		},
		{
			name:     "longer password",
			password: "Str0ng#Passw0rd",
			valid:    true,
		},
		{
			name:     "too short",
			password: "Ab1@x",
			valid:    false,
		},
		{
			name:     "no uppercase",
			password: "abc1@xyz",
			valid:    false,
		},
		{
			name:     "no lowercase",
			password: "ABC1@XYZ",
			valid:    false,
		},
		{
			name:     "no digit",
			password: "Abcd@xyz",
			valid:    false,
		},
		{
			name:     "no symbol",
			password: "Abc1xyz9",
			valid:    false,
		},
		{
			name:     "disallowed character",
			password: "Abc1@x yz",
			valid:    false,
		},
		{
			name:     "empty string",
			password: "",
			valid:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsValidPassword(tt.password)
			if got != tt.valid {
				t.Fatalf("IsValidPassword(%q) = %v, want %v", tt.password, got, tt.valid)
			}
		})
	}
}
