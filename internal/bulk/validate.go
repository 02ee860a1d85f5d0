package bulk

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"descriptai/internal/domain"
)

var validate = validator.New()

var fieldMessages = map[string]string{
	"required": "The field '%s' is required.",
	"max":      "The field '%s' must be no longer than %s characters.",
	"min":      "The field '%s' must be at least %s characters long.",
	"gt":       "The field '%s' must be greater than %s.",
	"gte":      "The field '%s' must be greater than or equal to %s.",
	"oneof":    "The field '%s' must be one of %s.",
}

func fieldMessage(name string, e validator.FieldError) string {
	msg, ok := fieldMessages[e.Tag()]
	if !ok {
		return fmt.Sprintf("Field '%s' is invalid: %s", name, e.Tag())
	}
	if strings.Count(msg, "%s") == 2 {
		return fmt.Sprintf(msg, name, e.Param())
	}
	return fmt.Sprintf(msg, name)
}

// validateStruct returns json field names mapped to friendly messages.
func validateStruct(s any, prefix string) map[string]string {
	out := map[string]string{}
	err := validate.Struct(s)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return out
	}
	t := reflect.TypeOf(s)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	for _, e := range verrs {
		name := e.StructField()
		if f, ok := t.FieldByName(e.StructField()); ok {
			if tag := strings.Split(f.Tag.Get("json"), ",")[0]; tag != "" && tag != "-" {
				name = tag
			}
		}
		out[prefix+name] = fieldMessage(name, e)
	}
	return out
}

// ValidateItem checks one work item after trimming.
func ValidateItem(item domain.WorkItem) error {
	fields := validateStruct(item.Normalized(), "")
	if len(fields) == 0 {
		return nil
	}
	return &domain.ValidationError{Message: firstMessage(fields), Fields: fields}
}

// ValidateItems checks every item and keys failures as items[i].field.
func ValidateItems(items []domain.WorkItem) error {
	fields := map[string]string{}
	for i, item := range items {
		for k, v := range validateStruct(item.Normalized(), fmt.Sprintf("items[%d].", i)) {
			fields[k] = v
		}
	}
	if len(fields) == 0 {
		return nil
	}
	return &domain.ValidationError{Message: firstMessage(fields), Fields: fields}
}

func firstMessage(fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if len(keys) == 1 {
		return fields[keys[0]]
	}
	return fmt.Sprintf("%s (and %d more)", fields[keys[0]], len(keys)-1)
}
