package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOverride_InheritShowsCurrentValue(t *testing.T) {
	o := Inherit[bool]()

	assert.False(t, o.IsPending())
	assert.True(t, o.Or(true))
	assert.False(t, o.Or(false))

	_, ok := o.Value()
	assert.False(t, ok)
}

func TestOverride_PendingWinsOverCurrent(t *testing.T) {
	o := Pending(false)

	assert.True(t, o.IsPending())
	// A staged false must override a current true, which a nullable bool
	// could not express.
	assert.False(t, o.Or(true))

	v, ok := o.Value()
	assert.True(t, ok)
	assert.False(t, v)
}
