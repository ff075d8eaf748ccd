// Package validation holds the shared struct validator and the error marker
// used for rejected user input.
package validation

import (
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"

	"github.com/osa030/showtime/internal/domain/duration"
)

// ErrInvalid marks every error caused by rejected user input.
var ErrInvalid = errors.New("invalid input")

var (
	once     sync.Once
	validate *validator.Validate
)

// rules are the custom tags used by the domain structs.
var rules = map[string]validator.Func{
	// "duration" accepts any text that parses to more than zero seconds.
	"duration": func(fl validator.FieldLevel) bool {
		return !duration.IsZero(fl.Field().String())
	},
	"notblank_trim": func(fl validator.FieldLevel) bool {
		for _, r := range fl.Field().String() {
			if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
				return true
			}
		}
		return false
	},
}

func instance() *validator.Validate {
	once.Do(func() {
		v, err := newValidator(rules)
		if err != nil {
			panic(err)
		}
		validate = v
	})
	return validate
}

// newValidator builds a validator with the given custom rules.
func newValidator(custom map[string]validator.Func) (*validator.Validate, error) {
	v := validator.New()
	for tag, fn := range custom {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return nil, errors.Wrapf(err, "failed to register validation %q", tag)
		}
	}
	return v, nil
}

// Struct validates v against its `validate` tags.
func Struct(v any) error {
	if err := instance().Struct(v); err != nil {
		return errors.Mark(errors.Wrap(err, "validation failed"), ErrInvalid)
	}
	return nil
}

// Newf returns a new error marked as invalid input.
func Newf(format string, args ...any) error {
	return errors.Mark(errors.Newf(format, args...), ErrInvalid)
}

// Is reports whether err was caused by rejected input.
func Is(err error) bool {
	return errors.Is(err, ErrInvalid)
}
