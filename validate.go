package sitecms

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/eringen/sitecms/store"
)

// requestValidator plugs go-playground/validator into echo's c.Validate.
// Field names in errors are the JSON names.
type requestValidator struct {
	v *validator.Validate
}

func newRequestValidator() *requestValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &requestValidator{v: v}
}

func (rv *requestValidator) Validate(i any) error {
	err := rv.v.Struct(i)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return badRequest(err.Error())
	}
	details := make(map[string]string, len(ve))
	for _, fe := range ve {
		details[fe.Field()] = fe.Tag()
	}
	return echo.NewHTTPError(http.StatusBadRequest, apiError{Error: "Validation failed", Details: details})
}

// bind decodes the JSON body into req and runs its validate tags.
func bind(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return badRequest("Invalid request body")
	}
	return c.Validate(req)
}

// requireBilingual fails unless both language variants are present.
func requireBilingual(field string, b *store.Bilingual) error {
	if b == nil || !b.Complete() {
		return badRequest(fmt.Sprintf("%s is required in both English and Farsi", field))
	}
	return nil
}

// checkBilingual accepts an absent or fully blank value and otherwise
// requires both variants.
func checkBilingual(field string, b *store.Bilingual) error {
	if b == nil || b.Blank() || b.Complete() {
		return nil
	}
	return badRequest(fmt.Sprintf("%s must have both English and Farsi or neither", field))
}

// checkUpdateBilingual validates a required field that is present in an
// update payload: clearing it is not allowed.
func checkUpdateBilingual(field string, b *store.Bilingual) error {
	if b == nil {
		return nil
	}
	return requireBilingual(field, b)
}

// parseDate accepts RFC 3339 timestamps and plain YYYY-MM-DD dates. A plain
// date used as the end of a window covers the whole day.
func parseDate(field, s string, endOfDay bool) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		if endOfDay {
			t = t.Add(24*time.Hour - time.Millisecond)
		}
		return t, nil
	}
	return time.Time{}, badRequest(fmt.Sprintf("%s must be a date (YYYY-MM-DD) or RFC 3339 timestamp", field))
}

func trimmed(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
