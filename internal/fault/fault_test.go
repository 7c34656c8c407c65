package fault

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMatching(t *testing.T) {
	sentinel := Conflict("version conflict")

	t.Run("SameKindAndMessageMatch", func(t *testing.T) {
		assert.ErrorIs(t, Conflict("version conflict"), sentinel)
	})

	t.Run("DifferentMessageDoesNotMatch", func(t *testing.T) {
		assert.NotErrorIs(t, Conflict("duplicate idempotency key"), sentinel)
	})

	t.Run("WrappedSentinelMatches", func(t *testing.T) {
		wrapped := fmt.Errorf("apply payment: %w", sentinel)
		assert.ErrorIs(t, wrapped, sentinel)
	})
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindValidation, KindOf(Validation("bad input")))
	assert.Equal(t, KindNotFound, KindOf(NotFound("missing")))
	assert.Equal(t, KindUnprocessable, KindOf(Unprocessable("credit limit exceeded")))
	assert.Equal(t, KindInternal, KindOf(errors.New("driver: bad connection")))
}

func TestInternalUnwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := Internal("load customer", cause)

	assert.Equal(t, KindInternal, KindOf(err))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "load customer")
}
