package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	apperrors "github.com/jrsteele09/go-bookstore-api/internal/errors"
	"github.com/jrsteele09/go-bookstore-api/users"
)

// Validator checks auth request bodies before they reach the credential store.
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a new Validator instance
func NewValidator() *Validator {
	return &Validator{validate: validator.New(validator.WithRequiredStructEnabled())}
}

// ValidateRegister checks field formats, the confirmation match and password strength.
func (v *Validator) ValidateRegister(req RegisterRequest) error {
	if err := v.validate.Struct(req); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			for _, fe := range fieldErrs {
				if fe.Tag() == "eqfield" {
					return fmt.Errorf("%w: %w", apperrors.ErrInvalidRequest, PasswordsDontMatchErr)
				}
			}
		}
		return invalid(err)
	}
	if err := users.ValidatePasswordStrength(req.Password); err != nil {
		return fmt.Errorf("%w: %w: %s", apperrors.ErrInvalidRequest, WeakPasswordErr, err.Error())
	}
	return nil
}

func (v *Validator) ValidateLogin(req LoginRequest) error {
	if err := v.validate.Struct(req); err != nil {
		return invalid(err)
	}
	return nil
}

func (v *Validator) ValidateRefresh(req RefreshRequest) error {
	if err := v.validate.Struct(req); err != nil {
		return invalid(err)
	}
	return nil
}

// invalid flattens validator output into one ErrInvalidRequest naming the failing fields.
func invalid(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %s", apperrors.ErrInvalidRequest, err.Error())
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
	}
	return fmt.Errorf("%w: %s", apperrors.ErrInvalidRequest, strings.Join(msgs, ", "))
}
