package eventform

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"

	"github.com/victorjakob/mamareykjavik/internal/domain/event"
)

// parsed holds the typed values derived from the textual form inputs.
type parsed struct {
	date          time.Time
	earlyBirdDate *time.Time
	capacity      *int
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.SetTagName("binding")
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	// notblank rejects whitespace-only text
	_ = v.RegisterValidation("notblank", validators.NotBlank)
	return v
}

// check runs the field-level schema rules and parses dates and capacity.
// Every failure is collected so the operator sees all of them at once.
func (s *Service) check(v FormValues) (parsed, []FieldError) {
	var out parsed
	fields := s.structErrors("", v)

	if v.Date != "" {
		d, err := event.ParseFormDate(v.Date)
		if err != nil {
			fields = append(fields, FieldError{Field: "date", Rule: "datetime", Message: "must be a date and time"})
		} else {
			out.date = d
		}
	}

	capacity, err := v.Capacity.Int()
	switch {
	case err != nil:
		fields = append(fields, FieldError{Field: "capacity", Rule: "number", Message: "must be a whole number"})
	case capacity != nil && *capacity < 0:
		fields = append(fields, FieldError{Field: "capacity", Rule: "min", Param: "0", Message: validationMessage("min", "0")})
	default:
		out.capacity = capacity
	}

	if v.ShowEarlyBird && strings.TrimSpace(v.EarlyBirdDate) != "" {
		d, err := event.ParseFormDate(v.EarlyBirdDate)
		if err != nil {
			fields = append(fields, FieldError{Field: "early_bird_date", Rule: "datetime", Message: "must be a date and time"})
		} else {
			out.earlyBirdDate = &d
		}
	}

	if v.ShowSlidingScale {
		if v.SlidingScaleMin == nil {
			fields = append(fields, FieldError{Field: "sliding_scale_min", Rule: "required", Message: validationMessage("required", "")})
		}
		if v.SlidingScaleMax == nil {
			fields = append(fields, FieldError{Field: "sliding_scale_max", Rule: "required", Message: validationMessage("required", "")})
		}
	}

	if v.ShowVariants {
		for i, tv := range v.TicketVariants {
			fields = append(fields, s.structErrors(fmt.Sprintf("ticket_variants[%d].", i), tv)...)
		}
	}

	return out, fields
}

func (s *Service) structErrors(prefix string, v any) []FieldError {
	err := s.validate.Struct(v)
	if err == nil {
		return nil
	}

	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return []FieldError{{Field: strings.TrimSuffix(prefix, "."), Rule: "invalid", Message: err.Error()}}
	}

	out := make([]FieldError, 0, len(ve))
	for _, fe := range ve {
		field := prefix + fe.Field()
		msg := validationMessage(fe.Tag(), fe.Param())
		if field == "hosting_wl_policy_agreed" {
			msg = "you must agree to the hosting policy"
		}
		out = append(out, FieldError{Field: field, Rule: fe.Tag(), Param: fe.Param(), Message: msg})
	}
	return out
}

func validationMessage(rule, param string) string {
	switch rule {
	case "required", "notblank":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "url":
		return "must be a valid URL"
	case "min":
		return "must be at least " + param
	case "max":
		return "must be at most " + param
	case "gt":
		return "must be greater than " + param
	case "oneof":
		return "must be one of " + strings.ReplaceAll(param, " ", ", ")
	default:
		if param != "" {
			return fmt.Sprintf("failed %s validation (%s)", rule, param)
		}
		return "failed " + rule + " validation"
	}
}
