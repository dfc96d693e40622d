package handler

import (
	"errors"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/nahiyan/tasktrail/internal/apperror"
)

// validate is the shared validator instance. Struct tag rules cover the
// request DTOs; "password" is a custom rule enforcing the password policy
// (min 8 chars, at least one upper, one lower, one digit).
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Registration only fails for a nil function or empty tag.
	if err := v.RegisterValidation("password", validPassword); err != nil {
		panic(err)
	}
	return v
}

func validPassword(fl validator.FieldLevel) bool {
	password := fl.Field().String()
	if len(password) < 8 {
		return false
	}

	var hasUpper, hasLower, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	return hasUpper && hasLower && hasDigit
}

// checkRequest runs the validator over a decoded DTO and converts any
// failures into an apperror.ValidationFailed with per-field messages.
func checkRequest(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperror.ValidationField("request", "invalid request")
	}

	details := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		details[fieldName(fe)] = fieldMessage(fe)
	}
	return apperror.ValidationFailed(details)
}

func fieldName(fe validator.FieldError) string {
	switch fe.Field() {
	case "Email":
		return "email"
	case "Password", "NewPassword":
		return "password"
	case "DisplayName":
		return "displayName"
	case "Token":
		return "token"
	default:
		return fe.Field()
	}
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "email":
		return "must be a valid email address"
	case "password":
		return "must be at least 8 characters with one uppercase letter, one lowercase letter, and one digit"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	default:
		return "is invalid"
	}
}
