package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestActionConstructors(t *testing.T) {
	e := enterAction("c/L")
	assert.Equal(t, actionEnterBlock, e.kind)
	assert.Equal(t, "c/L", e.prefix)

	l := leaveAction("c/L")
	assert.Equal(t, actionLeaveBlock, l.kind)
	assert.Equal(t, "c/L", l.prefix)

	m := messageAction("hi")
	assert.Equal(t, actionMessage, m.kind)
	assert.Equal(t, "hi", m.text)
}
