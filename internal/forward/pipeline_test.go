package forward

import (
	"bufio"
	"context"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/WillKirkmanM/proxy/internal/cache"
	"github.com/stretchr/testify/require"
)

// stubOrigin returns a dialer that always hands back one side of an
// in-memory pipe, running a goroutine on the other side that drains
// the forwarded request and writes back a fixed HTTP/1.0 response. It
// reports how many times it was dialed.
func stubOrigin(t *testing.T, response []byte) (dial func(network, address string) (net.Conn, error), calls *int32) {
	calls = new(int32)
	dial = func(network, address string) (net.Conn, error) {
		atomic.AddInt32(calls, 1)

		clientSide, serverSide := net.Pipe()
		go func() {
			defer serverSide.Close()
			br := bufio.NewReader(serverSide)
			for {
				line, err := br.ReadString('\n')
				if err != nil || line == "\r\n" {
					break
				}
			}
			serverSide.Write(response)
		}()
		return clientSide, nil
	}
	return dial, calls
}

func TestPipeline_MissThenHit(t *testing.T) {
	store, err := cache.New(1<<20, 1<<20)
	require.NoError(t, err)

	response := []byte("HTTP/1.0 200 OK\r\nContent-Length: 1\r\n\r\nB")
	dial, calls := stubOrigin(t, response)

	p := New(store, DefaultConfig(1<<20), WithDialer(dial))

	// Client 1: miss, dials the origin stub.
	clientSide1, serverSide1 := net.Pipe()
	go func() {
		clientSide1.Write([]byte("GET / HTTP/1.1\r\nHost: example.com\r\n\r\n"))
	}()
	done1 := make(chan struct{})
	go func() {
		p.Handle(context.Background(), serverSide1)
		close(done1)
	}()

	got1 := readAll(t, clientSide1, len(response))
	<-done1
	require.Equal(t, response, got1)
	require.EqualValues(t, 1, atomic.LoadInt32(calls))

	// Cache should now hold the fingerprint for this request.
	payload, hit := store.Lookup("http://example.com:80/")
	require.True(t, hit)
	require.Equal(t, response, payload)

	// Client 2: same URL, should be served from cache without dialing.
	clientSide2, serverSide2 := net.Pipe()
	go func() {
		clientSide2.Write([]byte("GET / HTTP/1.1\r\nHost: example.com\r\n\r\n"))
	}()
	done2 := make(chan struct{})
	go func() {
		p.Handle(context.Background(), serverSide2)
		close(done2)
	}()

	got2 := readAll(t, clientSide2, len(response))
	<-done2
	require.Equal(t, response, got2)
	require.EqualValues(t, 1, atomic.LoadInt32(calls), "second request must be served from cache")
}

func TestPipeline_ConnectUnsupported(t *testing.T) {
	store, err := cache.New(1<<20, 1<<20)
	require.NoError(t, err)

	p := New(store, DefaultConfig(1<<20))

	clientSide, serverSide := net.Pipe()
	go clientSide.Write([]byte("CONNECT example.com:443 HTTP/1.1\r\nHost: example.com:443\r\n\r\n"))

	done := make(chan struct{})
	go func() {
		p.Handle(context.Background(), serverSide)
		close(done)
	}()

	got := readAll(t, clientSide, len("HTTP/1.0 501 Not Implemented\r\nContent-Length: 0\r\nConnection: close\r\n\r\n"))
	<-done
	require.Contains(t, string(got), "501")
}

func readAll(t *testing.T, conn net.Conn, n int) []byte {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, n)
	total := 0
	for total < n {
		read, err := conn.Read(buf[total:])
		total += read
		if err != nil {
			break
		}
	}
	return buf[:total]
}
