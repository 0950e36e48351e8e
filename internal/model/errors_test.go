package model_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/intinstall/intinstall/internal/model"
)

func TestErrorKindMatching(t *testing.T) {
	tests := map[string]struct {
		err    error
		target error
		expIs  bool
	}{
		"An error should match the sentinel of its own kind": {
			err:    model.NewError(model.ErrKindContainer, "boom"),
			target: model.ErrContainer,
			expIs:  true,
		},

		"An error should not match a sentinel of another kind": {
			err:    model.NewError(model.ErrKindContainer, "boom"),
			target: model.ErrValidation,
			expIs:  false,
		},

		"A wrapped error should still match its kind sentinel": {
			err:    fmt.Errorf("context: %w", model.NewError(model.ErrKindExecutionTimeout, "too slow")),
			target: model.ErrExecutionTimeout,
			expIs:  true,
		},

		"A wrapping error should expose its cause": {
			err:    model.WrapError(model.ErrKindExecution, errAssertable, "stream broke"),
			target: errAssertable,
			expIs:  true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, test.expIs, errors.Is(test.err, test.target))
		})
	}
}

var errAssertable = errors.New("cause")

func TestErrorMessage(t *testing.T) {
	assert := assert.New(t)

	err := model.WrapError(model.ErrKindScriptGeneration, errAssertable, "no template for %q", "redis")
	assert.Equal(`script-generation: no template for "redis": cause`, err.Error())

	err = model.NewError(model.ErrKindValidation, "rejected")
	assert.Equal("validation: rejected", err.Error())
}
