package role_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/quorumlabs/council/pkg/chats/role"
)

func TestValid(t *testing.T) {
	assert.True(t, role.System.Valid())
	assert.True(t, role.User.Valid())
	assert.True(t, role.Assistant.Valid())
	assert.False(t, role.Role("moderator").Valid())
	assert.False(t, role.Role("").Valid())
}

func TestString(t *testing.T) {
	assert.Equal(t, "system", role.System.String())
	assert.Equal(t, "user", role.User.String())
	assert.Equal(t, "assistant", role.Assistant.String())
}
