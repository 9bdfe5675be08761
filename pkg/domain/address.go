package domain

import (
	"bytes"
	"encoding/json"
	"net/mail"
	"strings"
)

// Address is a structured mail sender or recipient.
type Address struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
}

// ParseAddress reads "Name <email>" or a bare address. Input mail.ParseAddress
// rejects is split on the angle brackets, or kept whole as the email.
func ParseAddress(s string) Address {
	s = strings.TrimSpace(s)
	if s == "" {
		return Address{}
	}
	if parsed, err := mail.ParseAddress(s); err == nil {
		return Address{Name: parsed.Name, Email: strings.ToLower(parsed.Address)}
	}
	open := strings.LastIndex(s, "<")
	closing := strings.LastIndex(s, ">")
	if open >= 0 && closing > open {
		return Address{
			Name:  strings.Trim(strings.TrimSpace(s[:open]), `"`),
			Email: strings.ToLower(strings.TrimSpace(s[open+1 : closing])),
		}
	}
	return Address{Email: strings.ToLower(s)}
}

// String renders the display form "Name <email>", or just the email when
// there is no name.
func (a Address) String() string {
	if a.Name == "" {
		return a.Email
	}
	return a.Name + " <" + a.Email + ">"
}

// DisplayName returns the name, falling back to the local part of the email.
func (a Address) DisplayName() string {
	if a.Name != "" {
		return a.Name
	}
	if at := strings.Index(a.Email, "@"); at > 0 {
		return a.Email[:at]
	}
	return a.Email
}

// IsZero reports whether the address is empty.
func (a Address) IsZero() bool { return a.Email == "" && a.Name == "" }

// UnmarshalJSON accepts both the structured form and the legacy
// "Name <email>" string form.
func (a *Address) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		*a = Address{}
		return nil
	}
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var raw string
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return err
		}
		*a = ParseAddress(raw)
		return nil
	}
	type alias Address
	var aux alias
	if err := json.Unmarshal(trimmed, &aux); err != nil {
		return err
	}
	*a = Address(aux)
	return nil
}
