package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppErrorUnwrap(t *testing.T) {
	cause := stderrors.New("duplicate key")
	err := fmt.Errorf("create patient: %w", Conflict("employee_id already exists", cause))

	appErr, ok := As(err)
	require.True(t, ok)
	assert.Equal(t, KindConflict, appErr.Kind)
	assert.True(t, stderrors.Is(err, cause))
	assert.True(t, IsKind(err, KindConflict))
	assert.False(t, IsKind(err, KindNotFound))
}

func TestWithDetail(t *testing.T) {
	err := Validation("invalid request", nil).WithDetail("systolic", "must be an integer")

	assert.Equal(t, map[string]string{"systolic": "must be an integer"}, err.Details)
	assert.Equal(t, "invalid request", err.Error())
}

func TestNotFoundMessage(t *testing.T) {
	err := NotFound("patient", nil)
	assert.Equal(t, "patient not found", err.Error())
	assert.False(t, IsKind(stderrors.New("plain"), KindNotFound))
}
