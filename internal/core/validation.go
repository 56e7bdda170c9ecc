package core

// validation.go turns raw filter control text, as typed into a form field or
// passed on the command line, into view filters.
//
// Every field is checked and all problems are reported together, so a form
// can mark each bad control at once.

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/JonMunkholm/simroster/internal/view"
)

// ErrInvalidFilter wraps every filter validation failure.
var ErrInvalidFilter = errors.New("invalid filter")

// FilterInput is the unparsed text of each filter control.
type FilterInput struct {
	FreeText       string
	Gender         string
	MinAge         string
	MaxAge         string
	LikedSubstring string
}

// ValidationError describes one bad filter control.
type ValidationError struct {
	Field   string
	Value   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors collects every bad control in one error.
type ValidationErrors []ValidationError

func (es ValidationErrors) Error() string {
	parts := make([]string, len(es))
	for i, e := range es {
		parts[i] = e.Error()
	}
	return fmt.Sprintf("%s: %s", ErrInvalidFilter, strings.Join(parts, "; "))
}

func (es ValidationErrors) Unwrap() error {
	return ErrInvalidFilter
}

// ParseFilters validates in. Text controls are taken as typed; blank age
// controls are inert; age controls must be whole numbers.
func ParseFilters(in FilterInput) (view.Filters, error) {
	var errs ValidationErrors

	parseAge := func(field, raw string) *int {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			return nil
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			errs = append(errs, ValidationError{Field: field, Value: raw, Message: "must be a whole number"})
			return nil
		}
		return &n
	}

	f := view.Filters{
		FreeText:       in.FreeText,
		Gender:         strings.TrimSpace(in.Gender),
		MinAge:         parseAge("minAge", in.MinAge),
		MaxAge:         parseAge("maxAge", in.MaxAge),
		LikedSubstring: in.LikedSubstring,
	}

	if f.MinAge != nil && f.MaxAge != nil && *f.MinAge > *f.MaxAge {
		errs = append(errs, ValidationError{
			Field:   "maxAge",
			Value:   strconv.Itoa(*f.MaxAge),
			Message: "must not be below minAge",
		})
	}

	if len(errs) > 0 {
		return view.Filters{}, errs
	}
	return f, nil
}
