package forward

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWriteBadRequest(t *testing.T) {
	var buf bytes.Buffer
	err := writeBadRequest(&buf)
	assert.NoError(t, err)
	assert.Equal(t, "HTTP/1.0 400 Bad Request\r\nContent-Length: 0\r\nConnection: close\r\n\r\n", buf.String())
}

func TestWriteBadGateway(t *testing.T) {
	var buf bytes.Buffer
	err := writeBadGateway(&buf)
	assert.NoError(t, err)
	assert.Equal(t, "HTTP/1.0 502 Bad Gateway\r\nContent-Length: 0\r\nConnection: close\r\n\r\n", buf.String())
}

func TestWriteNotImplemented(t *testing.T) {
	var buf bytes.Buffer
	err := writeNotImplemented(&buf)
	assert.NoError(t, err)
	assert.Equal(t, "HTTP/1.0 501 Not Implemented\r\nContent-Length: 0\r\nConnection: close\r\n\r\n", buf.String())
}

func TestWriteInternalError(t *testing.T) {
	var buf bytes.Buffer
	err := writeInternalError(&buf)
	assert.NoError(t, err)
	assert.Equal(t, "HTTP/1.0 500 Internal Server Error\r\nContent-Length: 0\r\nConnection: close\r\n\r\n", buf.String())
}
