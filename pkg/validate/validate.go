// Package validate checks request structs against `validate` struct tags.
//
// Rules are comma-separated:
//
//	required     field must not be zero or empty
//	nullable     if empty, skip the remaining rules
//	email        valid email address
//	uuid         valid UUID
//	numeric      any number (strings are parsed)
//	digits=N     exactly N decimal digits
//	min=N        string: min length | number: min value
//	max=N        string: max length | number: max value
//	gt=N         number > N
//	gte=N        number >= N
//	lte=N        number <= N
//	in=a|b|c     value must be one of the listed items
//
// Numbers may be ints, floats, decimal.Decimal or numeric strings.
//
//	type AddItem struct {
//	    MenuItemID string `json:"menu_item_id" validate:"required,uuid"`
//	    Quantity   int    `json:"quantity"     validate:"gte=0,lte=50"`
//	}
package validate

import (
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

var (
	emailRE = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	uuidRE  = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)
)

// Struct validates the tagged fields of v. It returns json field name →
// message, one message per field; an empty map means v is valid.
func Struct(v any) map[string]string {
	errs := make(map[string]string)
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return errs
	}
	rt := rv.Type()

	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		tag := field.Tag.Get("validate")
		if tag == "" || !field.IsExported() {
			continue
		}
		name := jsonName(field)
		value := rv.Field(i)
		rules := strings.Split(tag, ",")

		if isEmpty(value) && !hasRule(rules, "required") {
			continue
		}
		value = deref(value)

		for _, rule := range rules {
			if msg := apply(rule, name, value); msg != "" {
				errs[name] = msg
				break
			}
		}
	}
	return errs
}

// HasErrors reports whether errs is non-empty.
func HasErrors(errs map[string]string) bool { return len(errs) > 0 }

func apply(rule, field string, v reflect.Value) string {
	key, param, _ := strings.Cut(strings.TrimSpace(rule), "=")

	switch key {
	case "nullable", "":
		return ""
	case "required":
		if isEmpty(v) {
			return fmt.Sprintf("The %s field is required.", field)
		}
	case "email":
		if !emailRE.MatchString(text(v)) {
			return fmt.Sprintf("The %s must be a valid email address.", field)
		}
	case "uuid":
		if !uuidRE.MatchString(text(v)) {
			return fmt.Sprintf("The %s must be a valid UUID.", field)
		}
	case "numeric":
		if _, ok := number(v); !ok {
			return fmt.Sprintf("The %s must be a number.", field)
		}
	case "digits":
		n, _ := strconv.Atoi(param)
		s := text(v)
		if len(s) != n || strings.Trim(s, "0123456789") != "" {
			return fmt.Sprintf("The %s must be %d digits.", field, n)
		}
	case "min", "max":
		limit := decimal.RequireFromString(param)
		var got decimal.Decimal
		if v.Kind() == reflect.String {
			got = decimal.NewFromInt(int64(utf8.RuneCountInString(v.String())))
		} else if n, ok := number(v); ok {
			got = n
		} else {
			return fmt.Sprintf("The %s must be a number.", field)
		}
		if key == "min" && got.LessThan(limit) {
			if v.Kind() == reflect.String {
				return fmt.Sprintf("The %s must be at least %s characters.", field, param)
			}
			return fmt.Sprintf("The %s must be at least %s.", field, param)
		}
		if key == "max" && got.GreaterThan(limit) {
			if v.Kind() == reflect.String {
				return fmt.Sprintf("The %s may not be greater than %s characters.", field, param)
			}
			return fmt.Sprintf("The %s may not be greater than %s.", field, param)
		}
	case "gt", "gte", "lte":
		limit := decimal.RequireFromString(param)
		n, ok := number(v)
		if !ok {
			return fmt.Sprintf("The %s must be a number.", field)
		}
		switch {
		case key == "gt" && !n.GreaterThan(limit):
			return fmt.Sprintf("The %s must be greater than %s.", field, param)
		case key == "gte" && n.LessThan(limit):
			return fmt.Sprintf("The %s must be greater than or equal to %s.", field, param)
		case key == "lte" && n.GreaterThan(limit):
			return fmt.Sprintf("The %s must be less than or equal to %s.", field, param)
		}
	case "in":
		s := text(v)
		for _, opt := range strings.Split(param, "|") {
			if s == opt {
				return ""
			}
		}
		return fmt.Sprintf("The selected %s is invalid.", field)
	default:
		return fmt.Sprintf("Unknown validation rule %q on %s.", key, field)
	}
	return ""
}

var decimalType = reflect.TypeOf(decimal.Decimal{})

func number(v reflect.Value) (decimal.Decimal, bool) {
	switch {
	case v.Type() == decimalType:
		return v.Interface().(decimal.Decimal), true
	case v.CanInt():
		return decimal.NewFromInt(v.Int()), true
	case v.CanUint():
		return decimal.NewFromUint64(v.Uint()), true
	case v.CanFloat():
		return decimal.NewFromFloat(v.Float()), true
	case v.Kind() == reflect.String:
		d, err := decimal.NewFromString(strings.TrimSpace(v.String()))
		return d, err == nil
	}
	return decimal.Decimal{}, false
}

func text(v reflect.Value) string {
	if v.Kind() == reflect.String {
		return v.String()
	}
	return fmt.Sprint(v.Interface())
}

func deref(v reflect.Value) reflect.Value {
	for v.Kind() == reflect.Ptr && !v.IsNil() {
		v = v.Elem()
	}
	return v
}

func isEmpty(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Ptr, reflect.Interface:
		return v.IsNil()
	case reflect.String:
		return strings.TrimSpace(v.String()) == ""
	case reflect.Slice, reflect.Map, reflect.Array:
		return v.Len() == 0
	}
	if v.Type() == decimalType {
		return v.Interface().(decimal.Decimal).IsZero()
	}
	return v.IsZero()
}

func hasRule(rules []string, target string) bool {
	for _, r := range rules {
		if strings.TrimSpace(r) == target {
			return true
		}
	}
	return false
}

func jsonName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "" || name == "-" {
		return strings.ToLower(f.Name)
	}
	return name
}
