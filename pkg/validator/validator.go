package validator

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
)

// Validator checks a single request field. Implementations accept both
// value and pointer forms; a nil pointer means the field is unset.
type Validator interface {
	Validate(value interface{}) error
}

type Form struct {
	validators map[string]Validator
}

// MustForm builds a struct validator keyed by json tag (falling back to
// the exact field name). It panics on a nil validator so that bad route
// definitions fail at startup, not per request.
func MustForm(validators map[string]Validator) *Form {
	for field, v := range validators {
		if v == nil {
			panic(fmt.Sprintf("nil validator for field %s", field))
		}
	}
	return &Form{validators: validators}
}

func (f *Form) Validate(value interface{}) error {
	v := reflect.ValueOf(value)
	for v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return errors.New("expect a struct")
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return errors.New("expect a struct")
	}

	for name, validator := range f.validators {
		fv, ok := fieldByTagOrName(v, name)
		if !ok {
			return fmt.Errorf("field %s not found", name)
		}
		if err := validator.Validate(fv.Interface()); err != nil {
			return fmt.Errorf("%s: %v", name, err)
		}
	}

	return nil
}

func fieldByTagOrName(v reflect.Value, name string) (reflect.Value, bool) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		for _, tag := range []string{"json", "schema"} {
			tagVal := strings.Split(f.Tag.Get(tag), ",")[0]
			if tagVal == name {
				return v.Field(i), true
			}
		}
		if f.Name == name {
			return v.Field(i), true
		}
	}
	return reflect.Value{}, false
}

var ErrUnsetField = errors.New("field is not set")

// deref unwraps pointers, reporting whether the value is set.
func deref(value interface{}) (interface{}, bool) {
	v := reflect.ValueOf(value)
	for v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return nil, false
		}
		v = v.Elem()
	}
	if !v.IsValid() {
		return nil, false
	}
	return v.Interface(), true
}

type String struct {
	Optional bool
	MinLen   int
	MaxLen   int
	Regex    *regexp.Regexp
}

func (c *String) Validate(value interface{}) error {
	val, ok := deref(value)
	if !ok {
		if c.Optional {
			return nil
		}
		return ErrUnsetField
	}

	s, ok := val.(string)
	if !ok {
		return errors.New("expect a string")
	}

	if len(s) < c.MinLen {
		return fmt.Errorf("require len >= %d", c.MinLen)
	}
	if c.MaxLen > 0 && len(s) > c.MaxLen {
		return fmt.Errorf("require len <= %d", c.MaxLen)
	}
	if c.Regex != nil && !c.Regex.MatchString(s) {
		return errors.New("invalid format")
	}

	return nil
}

type UInt64 struct {
	Optional bool
	Min      *uint64
	Max      *uint64
}

func (c *UInt64) Validate(value interface{}) error {
	val, ok := deref(value)
	if !ok {
		if c.Optional {
			return nil
		}
		return ErrUnsetField
	}

	var ui uint64
	switch n := val.(type) {
	case uint64:
		ui = n
	case uint32:
		ui = uint64(n)
	default:
		return errors.New("expect an unsigned integer")
	}

	if c.Min != nil && ui < *c.Min {
		return fmt.Errorf("require value >= %d", *c.Min)
	}
	if c.Max != nil && ui > *c.Max {
		return fmt.Errorf("require value <= %d", *c.Max)
	}

	return nil
}

type Bool struct {
	Optional bool
}

func (c *Bool) Validate(value interface{}) error {
	val, ok := deref(value)
	if !ok {
		if c.Optional {
			return nil
		}
		return ErrUnsetField
	}
	if _, ok := val.(bool); !ok {
		return errors.New("expect a bool")
	}
	return nil
}

type Slice struct {
	Optional  bool
	MinLen    int
	MaxLen    int
	Validator Validator
}

func (c *Slice) Validate(value interface{}) error {
	v := reflect.ValueOf(value)
	for v.Kind() == reflect.Ptr {
		if v.IsNil() {
			v = reflect.Value{}
			break
		}
		v = v.Elem()
	}

	if !v.IsValid() || (v.Kind() == reflect.Slice && v.IsNil()) {
		if c.Optional {
			return nil
		}
		return ErrUnsetField
	}

	if v.Kind() != reflect.Slice {
		return errors.New("expect a slice")
	}

	if v.Len() < c.MinLen {
		return fmt.Errorf("require len >= %d", c.MinLen)
	}
	if c.MaxLen > 0 && v.Len() > c.MaxLen {
		return fmt.Errorf("require len <= %d", c.MaxLen)
	}

	if c.Validator != nil {
		for i := 0; i < v.Len(); i++ {
			if err := c.Validator.Validate(v.Index(i).Interface()); err != nil {
				return fmt.Errorf("[%d]: %v", i, err)
			}
		}
	}

	return nil
}
