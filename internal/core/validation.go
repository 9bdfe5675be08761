package core

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// processRequest holds the trimmed required fields of the new process flow.
type processRequest struct {
	FundName   string   `validate:"required"`
	ClientName string   `validate:"required"`
	To         []string `validate:"min=1,dive,required"`
	Body       string   `validate:"required"`
}

type conversationRequest struct {
	To      []string `validate:"min=1,dive,required"`
	Subject string   `validate:"required"`
	Body    string   `validate:"required"`
}

type messageRequest struct {
	To   []string `validate:"min=1,dive,required"`
	Body string   `validate:"required"`
}

// checkRequest validates req and renders the first failure as a reason.
// An empty reason means the request is valid.
func checkRequest(req any) string {
	err := validate.Struct(req)
	if err == nil {
		return ""
	}
	var vErrs validator.ValidationErrors
	if errors.As(err, &vErrs) && len(vErrs) > 0 {
		first := vErrs[0]
		if first.Tag() == "required" || first.Tag() == "min" {
			return fmt.Sprintf("%s is required", fieldLabel(first.Field()))
		}
		return fmt.Sprintf("%s failed %s", fieldLabel(first.Field()), first.Tag())
	}
	return err.Error()
}

func fieldLabel(field string) string {
	// dive errors carry the element index, e.g. To[0]
	if i := strings.IndexByte(field, '['); i > 0 {
		field = field[:i]
	}
	switch field {
	case "FundName":
		return "fund name"
	case "ClientName":
		return "client name"
	case "To":
		return "recipient"
	}
	return strings.ToLower(field)
}

// cleanList trims entries and drops blanks.
func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
