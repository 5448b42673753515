// Package validation checks caller input with struct tags.
package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("validation failed")

var validate = validator.New(validator.WithRequiredStructEnabled())

// Struct validates s against its `validate` tags. Failures are reported in
// one error wrapping ErrInvalid.
func Struct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	var msgs []string
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		param := fe.Param()

		switch fe.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		case "min":
			msgs = append(msgs, field+" must be at least "+param+" characters")
		case "max":
			msgs = append(msgs, field+" must be at most "+param+" characters")
		case "email":
			msgs = append(msgs, field+" must be a valid email")
		case "oneof":
			msgs = append(msgs, field+" must be one of "+param)
		default:
			msgs = append(msgs, field+" is invalid")
		}
	}

	return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, ", "))
}
