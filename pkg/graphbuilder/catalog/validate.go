package catalog

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/randalmurphal/graphbuilder/pkg/graphbuilder"
)

// Sentinel errors for catalog records.
var (
	// ErrInvalidRecord indicates a tool or template failed validation.
	ErrInvalidRecord = errors.New("invalid catalog record")

	// ErrDuplicateID indicates two records in one catalog share an id.
	ErrDuplicateID = errors.New("duplicate catalog id")
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// validateStruct checks s against its validate tags and folds every field
// failure into one ErrInvalidRecord.
func validateStruct(kind, id string, s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	msgs := make([]string, len(fieldErrs))
	for i, fe := range fieldErrs {
		msgs[i] = formatFieldError(fe)
	}
	if id == "" {
		return fmt.Errorf("%w: %s: %s", ErrInvalidRecord, kind, strings.Join(msgs, "; "))
	}
	return fmt.Errorf("%w: %s %q: %s", ErrInvalidRecord, kind, id, strings.Join(msgs, "; "))
}

func formatFieldError(e validator.FieldError) string {
	field := e.Namespace()
	if i := strings.IndexByte(field, '.'); i >= 0 {
		field = field[i+1:]
	}
	field = strings.ToLower(field)

	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must have at least %s entries", field, e.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, e.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, e.Param())
	case "slug":
		return fmt.Sprintf("%s must be lowercase letters, digits and dashes", field)
	case "role":
		return fmt.Sprintf("%s is not a known role", field)
	case "gte":
		return fmt.Sprintf("%s is out of range", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

func init() {
	// Catalog ids are kebab-case, as on the canvas.
	_ = validate.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		if s == "" || s[0] == '-' || s[len(s)-1] == '-' {
			return false
		}
		for _, r := range s {
			if (r < 'a' || r > 'z') && (r < '0' || r > '9') && r != '-' {
				return false
			}
		}
		return true
	})
	_ = validate.RegisterValidation("role", func(fl validator.FieldLevel) bool {
		return graphbuilder.Role(fl.Field().Int()).Valid()
	})
}
