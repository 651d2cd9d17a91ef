package analysis

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/chrissnell/structbreak/internal/constants"
	"github.com/chrissnell/structbreak/internal/types"
)

// Request is one analysis as submitted by a user.
type Request struct {
	Column    string `json:"column" validate:"required"`
	StartYear int    `json:"start_year" validate:"gte=1900,lte=2100"`
	EndYear   int    `json:"end_year" validate:"gte=1900,lte=2100"`
	Breaks    int    `json:"breaks" validate:"gte=1,lte=10"`
	// Algorithm overrides the configured detector for this request.
	Algorithm string `json:"algorithm,omitempty" validate:"omitempty,oneof=binseg dynp pelt"`
}

// DefaultRequest returns the form defaults for column.
func DefaultRequest(column string) Request {
	return Request{
		Column:    column,
		StartYear: constants.DefaultStartYear,
		EndYear:   constants.DefaultEndYear,
		Breaks:    constants.DefaultBreaks,
	}
}

var validate = validator.New()

// Validate checks the request before any data is touched. The year order is
// checked first so that a reversed range is always reported as such.
func (r *Request) Validate() error {
	r.Algorithm = strings.ToLower(strings.TrimSpace(r.Algorithm))

	if r.StartYear >= r.EndYear {
		return fmt.Errorf("%w: start=%d end=%d", types.ErrInvalidRange, r.StartYear, r.EndYear)
	}

	if err := validate.Struct(r); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("%w: %w", types.ErrInvalidParameter, err)
		}

		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, formatFieldError(fe))
		}
		return fmt.Errorf("%w: %s", types.ErrInvalidParameter, strings.Join(msgs, "; "))
	}
	return nil
}

func formatFieldError(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}
