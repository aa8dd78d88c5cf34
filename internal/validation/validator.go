// Credissuer - Verifiable Credential Issuer Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/credissuer

// Package validation provides struct validation using go-playground/validator v10.
//
// A single validator instance is shared by the whole process. Field names in
// error messages are taken from the `env` struct tag when present (falling
// back to `json`, then the Go field name), so configuration errors name the
// environment key an operator has to fix:
//
//	type DatabaseConfig struct {
//	    Name    string `env:"DB_USERS" validate:"required"`
//	    Retries int    `env:"DB_RETRIES" validate:"min=5"`
//	}
//
//	if verr := validation.ValidateStruct(&cfg); verr != nil {
//	    for _, fe := range verr.Errors() {
//	        fmt.Println(fe.Field(), fe.Error()) // DB_USERS DB_USERS is required
//	    }
//	}
//
// Required strings also carry notblank, which rejects whitespace-only values.
//
// Conditional tags (required_if, required_with, required_without) have their
// parameters rewritten to the same display names, so a message reads
// "STATIC_CARD_BACK_IMAGE is required when CARD_IMAGE_RENDERING=static".
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

// singleton validator instance
var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// ValidationError represents a single field validation error.
type ValidationError struct {
	field   string
	tag     string
	param   string
	value   interface{}
	message string
}

// Field returns the display name of the field that failed validation.
func (e *ValidationError) Field() string {
	return e.field
}

// Tag returns the validation tag that failed.
func (e *ValidationError) Tag() string {
	return e.tag
}

// Param returns the parameter for the validation tag (e.g., "5" for "min=5").
func (e *ValidationError) Param() string {
	return e.param
}

// Value returns the actual value that failed validation.
func (e *ValidationError) Value() interface{} {
	return e.value
}

// Error returns a human-readable error message.
func (e *ValidationError) Error() string {
	return e.message
}

// RequestValidationError is the collection of every field that failed.
type RequestValidationError struct {
	errors []ValidationError
}

// Errors returns the slice of validation errors.
func (ve *RequestValidationError) Errors() []ValidationError {
	return ve.errors
}

// Error implements the error interface, returning a combined error message.
func (ve *RequestValidationError) Error() string {
	if len(ve.errors) == 0 {
		return "validation failed"
	}

	messages := make([]string, 0, len(ve.errors))
	for i := range ve.errors {
		messages = append(messages, ve.errors[i].message)
	}
	return strings.Join(messages, "; ")
}

// APIError is the JSON error body returned by the admin API.
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// ToAPIError converts validation errors to the API error format.
func (ve *RequestValidationError) ToAPIError() *APIError {
	if len(ve.errors) == 0 {
		return &APIError{Code: "VALIDATION_ERROR", Message: "Validation failed"}
	}

	if len(ve.errors) == 1 {
		err := ve.errors[0]
		return &APIError{
			Code:    "VALIDATION_ERROR",
			Message: err.message,
			Details: map[string]interface{}{
				"field": err.field,
				"tag":   err.tag,
			},
		}
	}

	fields := make([]map[string]interface{}, len(ve.errors))
	messages := make([]string, len(ve.errors))
	for i, err := range ve.errors {
		fields[i] = map[string]interface{}{
			"field":   err.field,
			"tag":     err.tag,
			"message": err.message,
		}
		messages[i] = err.message
	}

	return &APIError{
		Code:    "VALIDATION_ERROR",
		Message: strings.Join(messages, "; "),
		Details: map[string]interface{}{"fields": fields},
	}
}

// GetValidator returns the singleton validator instance.
// This function is thread-safe.
func GetValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(displayName)
		// notblank rejects whitespace-only values that pass required.
		if err := validate.RegisterValidation("notblank", validators.NotBlank); err != nil {
			panic(fmt.Sprintf("validation: register notblank: %v", err))
		}
	})

	return validate
}

// displayName picks the name used for a field in messages.
func displayName(fld reflect.StructField) string {
	for _, tag := range []string{"env", "json"} {
		name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return fld.Name
}

// ValidateStruct validates a struct using the singleton validator.
// Returns nil if validation passes, or *RequestValidationError if it fails.
func ValidateStruct(s interface{}) *RequestValidationError {
	v := GetValidator()

	err := v.Struct(s)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return &RequestValidationError{
			errors: []ValidationError{{
				field:   "unknown",
				tag:     "unknown",
				message: err.Error(),
			}},
		}
	}

	root := reflect.TypeOf(s)
	fieldErrors := make([]ValidationError, len(validationErrs))
	for i, fieldErr := range validationErrs {
		param := resolveParam(root, fieldErr)
		fieldErrors[i] = ValidationError{
			field:   fieldErr.Field(),
			tag:     fieldErr.Tag(),
			param:   param,
			value:   fieldErr.Value(),
			message: translateError(fieldErr, param),
		}
	}

	return &RequestValidationError{errors: fieldErrors}
}

// resolveParam rewrites Go field names inside conditional tag parameters
// to their display names.
func resolveParam(root reflect.Type, fe validator.FieldError) string {
	param := fe.Param()
	switch fe.Tag() {
	case "required_if", "required_unless", "required_with", "required_without",
		"required_with_all", "required_without_all":
	default:
		return param
	}

	parent := parentStruct(root, fe.StructNamespace())
	if parent == nil {
		return param
	}

	parts := strings.Fields(param)
	if fe.Tag() == "required_if" || fe.Tag() == "required_unless" {
		pairs := make([]string, 0, len(parts)/2)
		for i := 0; i+1 < len(parts); i += 2 {
			pairs = append(pairs, fieldDisplayName(parent, parts[i])+"="+parts[i+1])
		}
		return strings.Join(pairs, " and ")
	}

	for i, p := range parts {
		parts[i] = fieldDisplayName(parent, p)
	}
	return strings.Join(parts, ", ")
}

// parentStruct walks a struct namespace such as "Config.Providers.Field"
// and returns the type holding the final field.
func parentStruct(root reflect.Type, namespace string) reflect.Type {
	for root != nil && root.Kind() == reflect.Ptr {
		root = root.Elem()
	}
	if root == nil || root.Kind() != reflect.Struct {
		return nil
	}

	segs := strings.Split(namespace, ".")
	if len(segs) < 2 {
		return nil
	}

	t := root
	for _, seg := range segs[1 : len(segs)-1] {
		f, ok := t.FieldByName(seg)
		if !ok {
			return nil
		}
		t = f.Type
		for t.Kind() == reflect.Ptr {
			t = t.Elem()
		}
	}
	return t
}

func fieldDisplayName(t reflect.Type, field string) string {
	f, ok := t.FieldByName(field)
	if !ok {
		return field
	}
	if name := displayName(f); name != "" {
		return name
	}
	return field
}

// errorMessageTemplates maps validation tags to message templates.
var errorMessageTemplates = map[string]string{
	"required": "%s is required",
	"notblank": "%s must not be blank",
	"url":      "%s must be a valid URL",
	"http_url": "%s must be an absolute http or https URL",
	"email":    "%s must be a valid email address",
	"hostname": "%s must be a valid hostname",
}

// errorMessageWithParam maps validation tags to templates that include param.
var errorMessageWithParam = map[string]string{
	"oneof":            "%s must be one of: %s",
	"gte":              "%s must be greater than or equal to %s",
	"lte":              "%s must be less than or equal to %s",
	"gt":               "%s must be greater than %s",
	"lt":               "%s must be less than %s",
	"required_if":      "%s is required when %s",
	"required_unless":  "%s is required unless %s",
	"required_with":    "%s is required when %s is set",
	"required_without": "%s is required when %s is not set",
}

// translateError converts a validator.FieldError to a human-readable message.
func translateError(fe validator.FieldError, param string) string {
	field := fe.Field()
	tag := fe.Tag()

	if template, ok := errorMessageTemplates[tag]; ok {
		return fmt.Sprintf(template, field)
	}

	if template, ok := errorMessageWithParam[tag]; ok {
		return fmt.Sprintf(template, field, param)
	}

	return translateMinMax(fe, field, tag, param)
}

// translateMinMax handles min/max validation with type-specific messages.
func translateMinMax(fe validator.FieldError, field, tag, param string) string {
	isString := fe.Kind() == reflect.String

	switch tag {
	case "min":
		if isString {
			return fmt.Sprintf("%s must be at least %s characters", field, param)
		}
		return fmt.Sprintf("%s must be at least %s", field, param)
	case "max":
		if isString {
			return fmt.Sprintf("%s must be at most %s characters", field, param)
		}
		return fmt.Sprintf("%s must be at most %s", field, param)
	default:
		return fmt.Sprintf("%s failed %s validation", field, tag)
	}
}
