package forward

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCapture_AccumulatesChunks(t *testing.T) {
	c := newCapture(1024)

	c.append([]byte("hello "))
	c.append([]byte("world"))

	require.True(t, c.live())
	assert.Equal(t, []byte("hello world"), c.bytes())
}

func TestCapture_DiesPastCeiling(t *testing.T) {
	c := newCapture(8)

	c.append([]byte("1234"))
	require.True(t, c.live())

	c.append([]byte("56789"))
	assert.False(t, c.live())
	assert.Nil(t, c.bytes())
}

func TestCapture_DeadStaysDeadOnFurtherAppend(t *testing.T) {
	c := newCapture(4)

	c.append([]byte("12345"))
	require.False(t, c.live())

	c.append([]byte("more"))
	assert.False(t, c.live())
}
