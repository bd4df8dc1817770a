package charts

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/frostdev-ops/eventstats-backend-go/internal/core/formula"
)

// ValidationError lists every problem found in a chart configuration
type ValidationError struct {
	ChartID  string
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("chart %q is invalid:\n- %s", e.ChartID, strings.Join(e.Problems, "\n- "))
}

// Validator checks configurations before they are stored
type Validator struct {
	validate *validator.Validate
	registry *Registry
}

// NewValidator creates a validator backed by the given type registry
func NewValidator(registry *Registry) *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})

	return &Validator{validate: v, registry: registry}
}

// Validate returns a *ValidationError describing all problems, or nil
func (v *Validator) Validate(cfg ChartConfiguration) error {
	var problems []string

	if err := v.validate.Struct(cfg); err != nil {
		if fieldErrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range fieldErrs {
				problems = append(problems, describeFieldError(fe))
			}
		} else {
			problems = append(problems, err.Error())
		}
	}

	if def, ok := v.registry.Get(cfg.Type); ok {
		if cfg.AspectRatio != "" && !def.SupportsAspectRatio {
			problems = append(problems, fmt.Sprintf("aspectRatio is not supported by %s charts", cfg.Type))
		}
	} else if cfg.Type != "" {
		problems = append(problems, fmt.Sprintf("chart type %q is not registered", cfg.Type))
	}

	if cfg.Formula != "" {
		if _, err := formula.Compile(cfg.Formula); err != nil {
			problems = append(problems, fmt.Sprintf("formula: %v", err))
		}
	}

	for i, el := range cfg.Elements {
		if el.Literal != nil {
			continue
		}
		if el.Ref == "" {
			problems = append(problems, fmt.Sprintf("elements[%d]: ref or literal is required", i))
			continue
		}
		if _, err := formula.Compile(el.Ref); err != nil {
			problems = append(problems, fmt.Sprintf("elements[%d].ref: %v", i, err))
		}
	}

	if len(problems) > 0 {
		return &ValidationError{ChartID: cfg.ChartID, Problems: problems}
	}
	return nil
}

func describeFieldError(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), "ChartConfiguration.")
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	case "min", "max":
		return fmt.Sprintf("%s must satisfy %s=%s", field, fe.Tag(), fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}
