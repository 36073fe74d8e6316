package domainerrors

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasCode(t *testing.T) {
	t.Run("matches direct code", func(t *testing.T) {
		err := New(CodeDuplicateDID, "DID already exists")
		assert.True(t, HasCode(err, CodeDuplicateDID))
		assert.False(t, HasCode(err, CodeNotFound))
	})

	t.Run("matches through fmt wrapping", func(t *testing.T) {
		err := fmt.Errorf("register: %w", New(CodeInactiveDID, "DID is revoked"))
		assert.True(t, HasCode(err, CodeInactiveDID))
		assert.Equal(t, CodeInactiveDID, CodeOf(err))
	})

	t.Run("matches inner code of nested domain errors", func(t *testing.T) {
		inner := New(CodeUnauthorizedSource, "source not linked")
		err := Wrap(inner, CodeInternal, "append failed")
		assert.True(t, HasCode(err, CodeInternal))
		assert.True(t, HasCode(err, CodeUnauthorizedSource))
		assert.Equal(t, CodeInternal, CodeOf(err))
	})

	t.Run("plain errors have no code", func(t *testing.T) {
		assert.False(t, HasCode(context.Canceled, CodeTimeout))
		assert.Equal(t, CodeInternal, CodeOf(context.Canceled))
	})
}

func TestToHTTPStatus(t *testing.T) {
	cases := map[Code]int{
		CodeValidation:          http.StatusBadRequest,
		CodeUnauthenticated:     http.StatusUnauthorized,
		CodeUnauthorized:        http.StatusForbidden,
		CodeNotFound:            http.StatusNotFound,
		CodeDuplicateDID:        http.StatusConflict,
		CodeDuplicateCredential: http.StatusConflict,
		CodeAlreadyRevoked:      http.StatusConflict,
		CodeInactiveDID:         http.StatusConflict,
		CodeUnauthorizedSource:  http.StatusForbidden,
		CodeInternal:            http.StatusInternalServerError,
	}
	for code, want := range cases {
		assert.Equal(t, want, ToHTTPStatus(code), "code %s", code)
	}
}

func TestErrorMessage(t *testing.T) {
	err := Wrap(context.DeadlineExceeded, CodeTimeout, "transaction aborted")
	assert.Equal(t, "transaction aborted: context deadline exceeded", err.Error())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
