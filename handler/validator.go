package handler

import (
	"errors"
	"regexp"

	"outreach/entity"
	"outreach/pkg/goutil"
	"outreach/pkg/validator"
	"outreach/repo"
)

const maxPageLimit = 1000

func ResourceNameValidator(optional bool) validator.Validator {
	return &validator.String{
		Optional: optional,
		MinLen:   1,
		MaxLen:   120,
	}
}

func ResourceDescValidator() validator.Validator {
	return &validator.String{
		Optional: true,
		MaxLen:   500,
	}
}

func TagValidator() validator.Validator {
	return &validator.String{
		MinLen: 1,
		MaxLen: 60,
		Regex:  regexp.MustCompile(`^[0-9a-zA-Z_\-.\s]+$`),
	}
}

func EmailValidator(optional bool) validator.Validator {
	return &validator.String{
		Optional: optional,
		MaxLen:   320,
		Regex:    regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`),
	}
}

func ScoreValidator(optional bool) validator.Validator {
	return &validator.UInt64{
		Optional: optional,
		Max:      goutil.Uint64(100),
	}
}

// optionalForm skips validation when the struct pointer itself is unset.
type optionalForm struct {
	form *validator.Form
}

func (v *optionalForm) Validate(value interface{}) error {
	if goutil.IsNil(value) {
		return nil
	}
	return v.form.Validate(value)
}

func PaginationValidator() validator.Validator {
	return &optionalForm{form: validator.MustForm(map[string]validator.Validator{
		"page": &validator.UInt64{Optional: true},
		"limit": &validator.UInt64{
			Optional: true,
			Max:      goutil.Uint64(maxPageLimit),
		},
	})}
}

// supportedString accepts only members of a closed string enum.
type supportedString struct {
	optional  bool
	supported func(s string) bool
}

func (v *supportedString) Validate(value interface{}) error {
	var s string
	switch t := value.(type) {
	case string:
		s = t
	case *string:
		if t == nil {
			if v.optional {
				return nil
			}
			return validator.ErrUnsetField
		}
		s = *t
	default:
		return errors.New("expect a string")
	}

	if !v.supported(s) {
		return errors.New("unsupported value")
	}

	return nil
}

func ProspectStatusValidator(optional bool) validator.Validator {
	return &supportedString{
		optional: optional,
		supported: func(s string) bool {
			_, ok := entity.SupportedProspectStatuses[s]
			return ok
		},
	}
}

func EnrollmentStatusValidator(optional bool) validator.Validator {
	return &supportedString{
		optional: optional,
		supported: func(s string) bool {
			_, ok := entity.SupportedEnrollmentStatuses[s]
			return ok
		},
	}
}

func EventValidator() validator.Validator {
	return &supportedString{
		supported: func(s string) bool {
			_, ok := entity.SupportedEvents[s]
			return ok
		},
	}
}

func BulkActionValidator() validator.Validator {
	return &supportedString{
		supported: func(s string) bool {
			_, ok := entity.SupportedBulkActions[s]
			return ok
		},
	}
}

// DimensionValidator is optional; an unset dimension defaults to band.
func DimensionValidator() validator.Validator {
	return &supportedString{
		optional: true,
		supported: func(s string) bool {
			_, ok := repo.SupportedDimensions[s]
			return ok
		},
	}
}

func StepValidator() validator.Validator {
	return validator.MustForm(map[string]validator.Validator{
		"step_index":  &validator.UInt64{Optional: true},
		"template_id": &validator.UInt64{},
		"delay_days": &validator.UInt64{
			Optional: true,
			Max:      goutil.Uint64(365),
		},
		"delay_hours": &validator.UInt64{
			Optional: true,
			Max:      goutil.Uint64(23),
		},
	})
}
