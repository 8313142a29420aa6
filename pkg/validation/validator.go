package validation

import (
	"errors"
	"regexp"
	"sync"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/language"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once

	profileNamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]*$`)
)

// Validator returns the shared validator with the custom tags registered
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		_ = validate.RegisterValidation("profile_name", func(fl validator.FieldLevel) bool {
			return profileNamePattern.MatchString(fl.Field().String())
		})
		_ = validate.RegisterValidation("language_tag", func(fl validator.FieldLevel) bool {
			return IsLanguageTag(fl.Field().String())
		})
	})
	return validate
}

// ValidateStruct validates a struct against its `validate` tags
func ValidateStruct(s interface{}) error {
	err := Validator().Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return NewValidationError(verrs)
	}
	return err
}

// IsLanguageTag reports whether code parses as a BCP 47 tag
func IsLanguageTag(code string) bool {
	if code == "" {
		return false
	}
	_, err := language.Parse(code)
	return err == nil
}
