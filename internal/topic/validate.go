package topic

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil {
		panic(err)
	}
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ValidationError reports every problem found in a focus session.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid focus session: " + strings.Join(e.Problems, "; ")
}

// IsValidationError reports whether err is (or wraps) a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Validate checks a focus session at the API boundary. Values are never
// coerced: a weight outside [0,1] or a negative rule is an error.
func Validate(fs FocusSession) error {
	var problems []string

	if err := validate.Struct(fs); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("validate focus session: %w", err)
		}
		for _, fe := range verrs {
			problems = append(problems, describe(fe))
		}
	}

	// validator compares with >= and <=, which NaN fails, but Inf passes gte=0.
	for i, kw := range fs.Topic.Keywords {
		if math.IsNaN(kw.Weight) || math.IsInf(kw.Weight, 0) {
			problems = append(problems, fmt.Sprintf("topic.keywords[%d].weight: must be a finite number", i))
		}
	}
	if math.IsNaN(fs.MatchingRules.TitleBoost) || math.IsInf(fs.MatchingRules.TitleBoost, 0) {
		problems = append(problems, "matchingRules.titleBoost: must be a finite number")
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: dedupe(problems)}
	}
	return nil
}

func describe(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), "FocusSession.")
	switch fe.Tag() {
	case "notblank":
		return field + ": must not be blank"
	case "gte":
		return fmt.Sprintf("%s: must be >= %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s: must be <= %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s: failed %q", field, fe.Tag())
	}
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := in[:0]
	for _, s := range in {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
