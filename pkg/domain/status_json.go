package domain

import (
	"bytes"
	"encoding/json"
)

// MarshalJSON encodes the null status as JSON null.
func (s InvestmentStatus) MarshalJSON() ([]byte, error) {
	if s == StatusUnassigned {
		return []byte("null"), nil
	}
	return json.Marshal(string(s))
}

// UnmarshalJSON decodes JSON null (or an empty string) as StatusUnassigned.
func (s *InvestmentStatus) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		*s = StatusUnassigned
		return nil
	}
	var raw string
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return err
	}
	*s = InvestmentStatus(raw)
	return nil
}
