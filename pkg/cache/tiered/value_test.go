package tiered

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapper(t *testing.T) {
	assert.False(t, Absent().Present)
	assert.False(t, Absent().IsNull())

	null := Of(nil)
	assert.True(t, null.Present)
	assert.True(t, null.IsNull())

	some := Of("value")
	assert.True(t, some.Present)
	assert.False(t, some.IsNull())
	assert.Equal(t, "value", some.Value)
}

func TestEntryFromValue(t *testing.T) {
	e := entryFromValue(nil)
	assert.True(t, e.isNull)
	assert.True(t, e.wrapper().IsNull())

	e = entryFromValue(42)
	assert.False(t, e.isNull)
	w := e.wrapper()
	assert.True(t, w.Present)
	assert.Equal(t, 42, w.Value)
}
