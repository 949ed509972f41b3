package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/opssage/opssage/internal/models"
)

// ValidationError reports that extracted JSON did not satisfy a stage's
// output schema. Violations lists every failed constraint, not just the
// first, so a bad model response can be debugged from one error.
type ValidationError struct {
	Stage      string
	Violations []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("stage %s output failed validation: %s",
		e.Stage, strings.Join(e.Violations, "; "))
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report violations against the wire field names, not Go identifiers.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ValidatePrimaryContext checks Stage A output against its schema.
func ValidatePrimaryContext(raw json.RawMessage) (models.PrimaryContext, error) {
	var envelope models.PrimaryContextEnvelope
	if err := decodeStrict(raw, &envelope, "stageA"); err != nil {
		return models.PrimaryContext{}, err
	}
	if err := validateStruct(&envelope, "stageA"); err != nil {
		return models.PrimaryContext{}, err
	}
	return envelope.PrimaryContextPackage, nil
}

// ValidateEnhancedContext checks Stage B output against its schema.
func ValidateEnhancedContext(raw json.RawMessage) (models.EnhancedContext, error) {
	var envelope models.EnhancedContextEnvelope
	if err := decodeStrict(raw, &envelope, "stageB"); err != nil {
		return models.EnhancedContext{}, err
	}
	if err := validateStruct(&envelope, "stageB"); err != nil {
		return models.EnhancedContext{}, err
	}
	return envelope.EnhancedContextPackage, nil
}

// ValidateDiagnosticReport checks Stage C output against its schema.
func ValidateDiagnosticReport(raw json.RawMessage) (models.DiagnosticReport, error) {
	var envelope models.DiagnosticReportEnvelope
	if err := decodeStrict(raw, &envelope, "stageC"); err != nil {
		return models.DiagnosticReport{}, err
	}
	if err := validateStruct(&envelope, "stageC"); err != nil {
		return models.DiagnosticReport{}, err
	}
	return envelope.IncidentDiagnosticReport, nil
}

func decodeStrict(raw json.RawMessage, target any, stage string) error {
	if err := json.Unmarshal(raw, target); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return &ValidationError{
				Stage: stage,
				Violations: []string{fmt.Sprintf(
					"field %q has wrong type: got %s, want %s",
					typeErr.Field, typeErr.Value, typeErr.Type)},
			}
		}
		return &ValidationError{
			Stage:      stage,
			Violations: []string{fmt.Sprintf("document does not match schema: %v", err)},
		}
	}
	return nil
}

func validateStruct(target any, stage string) error {
	err := validate.Struct(target)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return &ValidationError{Stage: stage, Violations: []string{err.Error()}}
	}

	violations := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		violations = append(violations, describeViolation(fe))
	}
	return &ValidationError{Stage: stage, Violations: violations}
}

func describeViolation(fe validator.FieldError) string {
	field := fe.Namespace()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("field %q is required", field)
	case "gte":
		return fmt.Sprintf("field %q must be >= %s (got %v)", field, fe.Param(), fe.Value())
	case "lte":
		return fmt.Sprintf("field %q must be <= %s (got %v)", field, fe.Param(), fe.Value())
	case "min":
		return fmt.Sprintf("field %q needs at least %s entries", field, fe.Param())
	default:
		return fmt.Sprintf("field %q failed %q constraint", field, fe.Tag())
	}
}
