package ids

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewLocal(t *testing.T) {
	id := NewLocal()
	assert.True(t, strings.HasPrefix(id, LocalPrefix))
	assert.NotEqual(t, id, NewLocal())
}

func TestIsLocal(t *testing.T) {
	assert.True(t, IsLocal(NewLocal()))
	assert.False(t, IsLocal("a1b2c3"))
	assert.False(t, IsLocal(""))
}

func TestNewOperationEmbedsTypeAndTarget(t *testing.T) {
	id := NewOperation("rename", "rec-1")
	assert.True(t, strings.HasPrefix(id, "rename_rec-1_"))
	assert.NotEqual(t, id, NewOperation("rename", "rec-1"))
}
