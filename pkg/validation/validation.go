// Package validation turns request binding failures into per-field messages
// keyed by JSON field name.
package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var registerOnce sync.Once

// UseJSONNames makes validator report fields by their json tag.
func UseJSONNames() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return fld.Name
			}
			return name
		})
	})
}

// Fields converts a bind error. ok is false when err is not a validation or
// decoding failure.
func Fields(err error) (map[string][]string, bool) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		out := make(map[string][]string, len(verrs))
		for _, fe := range verrs {
			field := fe.Field()
			out[field] = append(out[field], message(fe))
		}
		return out, true
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return map[string][]string{
			typeErr.Field: {fmt.Sprintf("The %s field has an invalid type.", human(typeErr.Field))},
		}, true
	}

	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return map[string][]string{"body": {"The request body is not valid JSON."}}, true
	}

	return nil, false
}

func message(fe validator.FieldError) string {
	name := human(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("The %s field is required.", name)
	case "max":
		return fmt.Sprintf("The %s may not be greater than %s characters.", name, fe.Param())
	case "min":
		return fmt.Sprintf("The %s must be at least %s.", name, fe.Param())
	case "oneof":
		return fmt.Sprintf("The %s must be one of: %s.", name, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "uuid":
		return fmt.Sprintf("The %s must be a valid UUID.", name)
	default:
		return fmt.Sprintf("The %s is invalid.", name)
	}
}

func human(field string) string {
	return strings.ReplaceAll(field, "_", " ")
}
