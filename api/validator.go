package api

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// FieldError is one rejected field, named by its JSON key.
type FieldError struct {
	Field   string
	Tag     string
	Message string
}

// ValidationError is returned before any request is sent when a payload is
// rejected.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Message)
	}
	return "invalid input: " + strings.Join(msgs, "; ")
}

// Message is the first field message, for a single-line banner.
func (e *ValidationError) Message() string {
	if len(e.Fields) == 0 {
		return "Invalid input"
	}
	return e.Fields[0].Message
}

// payloadValidator is initialised on first use.
type payloadValidator struct {
	once     sync.Once
	validate *validator.Validate
}

var defaultValidator payloadValidator

func (v *payloadValidator) lazyinit() {
	v.once.Do(func() {
		v.validate = validator.New(validator.WithRequiredStructEnabled())
		v.validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
}

func (v *payloadValidator) Struct(obj any) error {
	v.lazyinit()

	err := v.validate.Struct(obj)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	out := &ValidationError{Fields: make([]FieldError, 0, len(verrs))}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, FieldError{
			Field:   fe.Field(),
			Tag:     fe.Tag(),
			Message: fieldMessage(fe),
		})
	}
	return out
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "email":
		return "Invalid email address"
	case "min":
		return fmt.Sprintf("%s of minimum length %s is required", fe.Field(), fe.Param())
	case "len":
		return fmt.Sprintf("%s must be %s characters", fe.Field(), fe.Param())
	case "numeric":
		return fmt.Sprintf("%s must be numeric", fe.Field())
	case "eqfield":
		return "Passwords don't match"
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}
