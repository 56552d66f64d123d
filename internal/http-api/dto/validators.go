package dto

import (
	"reflect"
	"regexp"
	"strings"

	"yamdb/internal/http-api/models"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var slugPattern = regexp.MustCompile(`^[-a-zA-Z0-9_]+$`)

// IsSlug reports whether s only uses the slug charset.
func IsSlug(s string) bool {
	return slugPattern.MatchString(s)
}

// RegisterValidators installs the custom binding tags used by the DTOs.
// Safe to call more than once.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}
	// report JSON field names in validation errors
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	if err := v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		return IsSlug(fl.Field().String())
	}); err != nil {
		return err
	}
	return v.RegisterValidation("role", func(fl validator.FieldLevel) bool {
		return models.Role(fl.Field().String()).Valid()
	})
}
