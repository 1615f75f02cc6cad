package model_test

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"liveboard/internal/model"
)

// Re-hosting a session id must insert a new audit row, so the schema cannot
// carry a unique constraint on the session id column.
func TestBoardSessionAllowsRepeatedSessionIDs(t *testing.T) {
	field, ok := reflect.TypeOf(model.BoardSession{}).FieldByName("SessionID")
	require.True(t, ok)

	tag := field.Tag.Get("gorm")
	assert.NotContains(t, tag, "uniqueIndex")
	assert.Contains(t, tag, "index")
}

func TestSessionRoleValidation(t *testing.T) {
	assert.True(t, model.RoleHost.Valid())
	assert.True(t, model.RoleViewer.Valid())
	assert.False(t, model.SessionRole("ADMIN").Valid())
	assert.False(t, model.SessionRole("").Valid())

	assert.Equal(t, "HOST", model.RoleHost.String())
	assert.Equal(t, "VIEWER", model.RoleViewer.String())
}
