package models

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	perrors "github.com/julianstephens/pacewise/internal/errors"
)

// recordValidate is shared by every record type; validator caches struct metadata.
var recordValidate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks a record against its struct tags and reports the first failing
// field as an InputValidationError.
func Validate(record interface{}) error {
	err := recordValidate.Struct(record)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		reason := fe.Tag()
		if fe.Param() != "" {
			reason = fmt.Sprintf("%s=%s", fe.Tag(), fe.Param())
		}
		return &perrors.InputValidationError{
			Field:  strings.ToLower(fe.Namespace()),
			Reason: fmt.Sprintf("failed %s (got %v)", reason, fe.Value()),
		}
	}
	return &perrors.InputValidationError{Reason: err.Error()}
}
