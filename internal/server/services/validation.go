package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/leftoverchef/internal/common"
	"github.com/go-playground/validator/v10"
)

// maxPasswordBytes is the longest input bcrypt accepts.
const maxPasswordBytes = 72

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// "max" counts runes; bcrypt limits bytes.
	_ = v.RegisterValidation("maxbytes72", func(fl validator.FieldLevel) bool {
		return len(fl.Field().String()) <= maxPasswordBytes
	})
	return v
}

// fieldMessages maps "<Field>.<tag>" to the text returned to clients.
var fieldMessages = map[string]string{
	"Name.required":            "Name is required",
	"Name.min":                 "Name must be at least 2 characters long",
	"Name.max":                 "Name cannot exceed 50 characters",
	"Email.required":           "Email is required",
	"Email.email":              "Please enter a valid email address",
	"Password.required":        "Password is required",
	"Password.min":             "Password must be at least 6 characters long",
	"Password.maxbytes72":      "Password cannot exceed 72 bytes",
	"CurrentPassword.required": "Current password is required",
	"NewPassword.required":     "New password is required",
	"NewPassword.min":          "New password must be at least 6 characters long",
	"NewPassword.maxbytes72":   "New password cannot exceed 72 bytes",
}

// validateStruct runs the validator and folds its findings into a single
// common.ErrValidation.
func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", common.ErrValidation, err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if m, ok := fieldMessages[fe.StructField()+"."+fe.Tag()]; ok {
			msgs = append(msgs, m)
			continue
		}
		msgs = append(msgs, fmt.Sprintf("%s is invalid", strings.ToLower(fe.StructField())))
	}
	return fmt.Errorf("%w: %s", common.ErrValidation, strings.Join(msgs, "; "))
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
