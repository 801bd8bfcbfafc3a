package steps

import (
	"errors"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// DateLayout is the date format used for all date fields.
const DateLayout = "2006-01-02"

// MinimumAge is the minimum employee age in years.
const MinimumAge = 18

var panPattern = regexp.MustCompile(`^[A-Z]{5}[0-9]{4}[A-Z]$`)

// newValidator builds the declarative schema validator. The clock feeds the
// "adult" rule so tests can pin today's date.
func newValidator(now func() time.Time) *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})

	_ = v.RegisterValidation("pan", func(fl validator.FieldLevel) bool {
		return panPattern.MatchString(fl.Field().String())
	})

	_ = v.RegisterValidation("adult", func(fl validator.FieldLevel) bool {
		dob, err := time.Parse(DateLayout, fl.Field().String())
		if err != nil {
			return false
		}
		return IsAdult(dob, now())
	})

	return v
}

// IsAdult reports whether someone born on dob is at least [MinimumAge] on today.
func IsAdult(dob, today time.Time) bool {
	y, m, d := today.Date()
	today = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	y, m, d = dob.Date()
	dob = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return !dob.AddDate(MinimumAge, 0, 0).After(today)
}

// fieldErrors converts a validator error into per-field messages.
func fieldErrors(err error) map[string]string {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]string{"_": err.Error()}
	}

	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		out[fe.Field()] = message(fe)
	}
	return out
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "len":
		return "must be " + fe.Param() + " digits"
	case "numeric":
		return "must contain only digits"
	case "pan":
		return "must be a valid PAN (e.g. ABCDE1234F)"
	case "adult":
		return "must be at least 18 years old"
	case "datetime":
		return "must be a date in YYYY-MM-DD format"
	case "email":
		return "must be a valid email address"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	}
	return "is invalid"
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
