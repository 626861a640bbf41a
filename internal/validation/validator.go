// Churnwatch - Churn Risk Scoring and Retention Policy Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnwatch

package validation

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/tomtom215/churnwatch/internal/policy"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// ValidationError is a single failed field.
type ValidationError struct {
	field   string
	tag     string
	param   string
	value   interface{}
	message string
}

// Field returns the field name, using the json tag when the struct has one.
func (e *ValidationError) Field() string { return e.field }

// Tag returns the failed validation tag.
func (e *ValidationError) Tag() string { return e.tag }

// Param returns the tag parameter ("100" for "max=100").
func (e *ValidationError) Param() string { return e.param }

// Value returns the rejected value.
func (e *ValidationError) Value() interface{} { return e.value }

func (e *ValidationError) Error() string { return e.message }

// RequestValidationError collects every failed field of one struct.
type RequestValidationError struct {
	errors []ValidationError
}

// Errors returns the individual field errors.
func (ve *RequestValidationError) Errors() []ValidationError {
	return ve.errors
}

// Error joins the field messages with "; ".
func (ve *RequestValidationError) Error() string {
	if len(ve.errors) == 0 {
		return "validation failed"
	}
	messages := make([]string, 0, len(ve.errors))
	for _, err := range ve.errors {
		messages = append(messages, err.Error())
	}
	return strings.Join(messages, "; ")
}

// APIError mirrors the API error envelope without importing the api package.
type APIError struct {
	Code    string
	Message string
	Details map[string]interface{}
}

// ToAPIError converts the errors to a VALIDATION_ERROR payload.
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
				"value": err.value,
			},
		}
	}

	fields := make([]map[string]interface{}, len(ve.errors))
	messages := make([]string, 0, len(ve.errors))
	for i, err := range ve.errors {
		fields[i] = map[string]interface{}{
			"field":   err.field,
			"tag":     err.tag,
			"message": err.message,
		}
		messages = append(messages, fmt.Sprintf("%s: %s", err.field, err.message))
	}

	return &APIError{
		Code:    "VALIDATION_ERROR",
		Message: strings.Join(messages, "; "),
		Details: map[string]interface{}{"fields": fields},
	}
}

// GetValidator returns the shared validator. Besides the built-in tags it
// knows:
//
//	probability  finite float in [0, 1]
//	tier         one of the four risk tier names
//	action       one of the four recommended actions
func GetValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())

		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})

		// Registration only fails on an empty tag or nil func.
		_ = validate.RegisterValidation("probability", validateProbability)
		_ = validate.RegisterValidation("tier", validateTier)
		_ = validate.RegisterValidation("action", validateAction)
	})

	return validate
}

func validateProbability(fl validator.FieldLevel) bool {
	f := fl.Field()
	switch f.Kind() {
	case reflect.Float32, reflect.Float64:
		v := f.Float()
		return !math.IsNaN(v) && v >= 0 && v <= 1
	default:
		return false
	}
}

func validateTier(fl validator.FieldLevel) bool {
	_, err := policy.ParseTier(fl.Field().String())
	return err == nil
}

func validateAction(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	for _, a := range policy.Actions() {
		if string(a) == s {
			return true
		}
	}
	return false
}

// ValidateStruct validates s. It returns nil on success.
//
//	if err := validation.ValidateStruct(&req); err != nil {
//	    apiErr := err.ToAPIError()
//	    respondError(w, http.StatusUnprocessableEntity, apiErr.Code, apiErr.Message, nil)
//	    return
//	}
func ValidateStruct(s interface{}) *RequestValidationError {
	err := GetValidator().Struct(s)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return &RequestValidationError{
			errors: []ValidationError{{field: "unknown", tag: "unknown", message: err.Error()}},
		}
	}

	fieldErrors := make([]ValidationError, len(validationErrs))
	for i, fieldErr := range validationErrs {
		fieldErrors[i] = ValidationError{
			field:   fieldErr.Field(),
			tag:     fieldErr.Tag(),
			param:   fieldErr.Param(),
			value:   fieldErr.Value(),
			message: translateError(fieldErr),
		}
	}

	return &RequestValidationError{errors: fieldErrors}
}

// ValidateVar validates a single value against tag.
func ValidateVar(field interface{}, tag string) error {
	return GetValidator().Var(field, tag)
}

var errorMessageTemplates = map[string]string{
	"required":    "%s is required",
	"required_if": "%s is required by the selected filter",
	"probability": "%s must be a probability between 0 and 1",
	"tier":        "%s must be one of: High, Medium, Low-Medium, Low",
	"action":      "%s must be a known retention action",
	"url":         "%s must be a valid URL",
	"uuid4":       "%s must be a valid UUID",
}

var errorMessageWithParam = map[string]string{
	"oneof": "%s must be one of: %s",
	"gte":   "%s must be greater than or equal to %s",
	"lte":   "%s must be less than or equal to %s",
	"gt":    "%s must be greater than %s",
	"lt":    "%s must be less than %s",
}

func translateError(fe validator.FieldError) string {
	field := fe.Field()
	tag := fe.Tag()
	param := fe.Param()

	if template, ok := errorMessageTemplates[tag]; ok {
		return fmt.Sprintf(template, field)
	}
	if template, ok := errorMessageWithParam[tag]; ok {
		return fmt.Sprintf(template, field, param)
	}
	return translateMinMax(fe, field, tag, param)
}

func translateMinMax(fe validator.FieldError, field, tag, param string) string {
	unit := ""
	switch fe.Kind() {
	case reflect.String:
		unit = " characters"
	case reflect.Slice, reflect.Map:
		unit = " items"
	}

	switch tag {
	case "min":
		return fmt.Sprintf("%s must be at least %s%s", field, param, unit)
	case "max":
		return fmt.Sprintf("%s must be at most %s%s", field, param, unit)
	default:
		return fmt.Sprintf("%s failed %s validation", field, tag)
	}
}
