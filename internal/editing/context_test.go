package editing

import (
	"testing"

	"github.com/SUSTechPOINTS/boxeditor/pkg/core"
	"github.com/stretchr/testify/assert"
)

func TestContext_SetAndRead(t *testing.T) {
	c := NewContext()
	assert.True(t, c.Target().IsZero())
	assert.Nil(t, c.LogAttrs())

	target := core.EditingTarget{Scene: "s1", ObjTrackID: "t42"}
	c.Set(target, "tok-1")

	assert.Equal(t, target, c.Target())
	assert.Equal(t, "tok-1", c.Token())
	assert.True(t, c.IsCurrent("tok-1"))
	assert.False(t, c.IsCurrent("tok-0"))

	attrs := c.LogAttrs()
	assert.Len(t, attrs, 3)
	assert.Equal(t, "s1", attrs[0].Value.String())
	assert.Equal(t, "t42", attrs[1].Value.String())
}
