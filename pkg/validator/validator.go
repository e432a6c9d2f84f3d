package validator

import (
	"github.com/go-playground/validator/v10"
)

// validate is the shared validator instance
var validate = validator.New()

// ValidateStruct func - validates a struct against its validate tags
func ValidateStruct(s interface{}) error {
	return validate.Struct(s)
}
