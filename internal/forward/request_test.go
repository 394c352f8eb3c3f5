package forward

import (
	"net"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadRequest_ParsesHostAndPath(t *testing.T) {
	clientSide, serverSide := net.Pipe()
	go func() {
		clientSide.Write([]byte("GET /foo?x=1 HTTP/1.1\r\nHost: example.com:8080\r\nX-Custom: yes\r\n\r\n"))
	}()

	req, err := readRequest(serverSide)
	require.NoError(t, err)

	assert.Equal(t, "GET", req.method)
	assert.Equal(t, "example.com", req.host)
	assert.Equal(t, "8080", req.port)
	assert.Equal(t, "/foo?x=1", req.path)
	assert.Equal(t, "yes", req.headers.Get("X-Custom"))
}

func TestReadRequest_MissingHost(t *testing.T) {
	clientSide, serverSide := net.Pipe()
	go func() {
		clientSide.Write([]byte("GET / HTTP/1.0\r\n\r\n"))
	}()

	_, err := readRequest(serverSide)
	assert.ErrorIs(t, err, ErrMissingHost)
}

func TestHostPort_DefaultsPort80(t *testing.T) {
	clientSide, serverSide := net.Pipe()
	go func() {
		clientSide.Write([]byte("GET / HTTP/1.1\r\nHost: example.com\r\n\r\n"))
	}()

	req, err := readRequest(serverSide)
	require.NoError(t, err)
	assert.Equal(t, "example.com", req.host)
	assert.Equal(t, "80", req.port)
}

func TestRewriteAndSerialize(t *testing.T) {
	p := &parsedRequest{
		method: "GET",
		host:   "example.com",
		port:   "80",
		path:   "/foo",
		headers: map[string][]string{
			"Host":            {"someoldhost"},
			"Connection":      {"keep-alive"},
			"Accept-Encoding": {"gzip"},
		},
	}

	out := string(rewriteAndSerialize(p))

	require.True(t, strings.HasPrefix(out, "GET /foo HTTP/1.0\r\n"))
	assert.Contains(t, out, "Host: example.com\r\n")
	assert.Contains(t, out, "Connection: close\r\n")
	assert.Contains(t, out, "Accept-Encoding: gzip\r\n")
	assert.NotContains(t, out, "someoldhost")
	assert.NotContains(t, out, "keep-alive")
	assert.True(t, strings.HasSuffix(out, "\r\n\r\n"))
}

func TestRewriteAndSerialize_PathOnlyNeverAbsoluteURI(t *testing.T) {
	p := &parsedRequest{
		method:  "GET",
		host:    "example.com",
		port:    "80",
		path:    "/a/b?c=d",
		headers: map[string][]string{},
	}

	out := string(rewriteAndSerialize(p))
	line := out[:strings.Index(out, "\r\n")]
	assert.Equal(t, "GET /a/b?c=d HTTP/1.0", line)
}
