package validator

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()

	// Use JSON tag names in error messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	registerCustomValidations()
}

func registerCustomValidations() {
	validate.RegisterValidation("target", oneOf("all", "pending", "paying", "expired"))
	validate.RegisterValidation("price_mode", oneOf("original", "custom"))
	validate.RegisterValidation("expiration_mode", oneOf("none", "minutes", "hours", "days"))
	validate.RegisterValidation("send_mode", oneOf("test", "full"))
	validate.RegisterValidation("reuse_mode", oneOf("edit", "direct"))
}

func oneOf(values ...string) validator.Func {
	return func(fl validator.FieldLevel) bool {
		v := fl.Field().String()
		for _, allowed := range values {
			if v == allowed {
				return true
			}
		}
		return false
	}
}

// Validate validates a struct and returns a map of field errors
func Validate(s interface{}) map[string]string {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return map[string]string{"_": err.Error()}
	}

	errors := make(map[string]string)
	for _, err := range verrs {
		field := err.Field()
		switch err.Tag() {
		case "required":
			errors[field] = "This field is required"
		case "required_if":
			errors[field] = "This field is required here"
		case "gt":
			errors[field] = "Value must be greater than " + err.Param()
		case "max":
			errors[field] = "Value is too long (max: " + err.Param() + ")"
		case "url":
			errors[field] = "Invalid URL format"
		case "uuid":
			errors[field] = "Invalid id format"
		case "target":
			errors[field] = "Invalid target. Must be: all, pending, paying, or expired"
		case "price_mode":
			errors[field] = "Invalid price mode. Must be: original or custom"
		case "expiration_mode":
			errors[field] = "Invalid expiration mode. Must be: none, minutes, hours, or days"
		case "send_mode":
			errors[field] = "Invalid send mode. Must be: test or full"
		case "reuse_mode":
			errors[field] = "Invalid reuse mode. Must be: edit or direct"
		default:
			errors[field] = "Invalid value"
		}
	}

	return errors
}
