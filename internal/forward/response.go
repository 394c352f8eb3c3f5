package forward

import (
	"fmt"
	"io"
)

// writeErrorEnvelope writes the exact synthetic error response:
// "HTTP/1.0 <code> <reason>\r\nContent-Length: 0\r\n
// Connection: close\r\n\r\n". The caller is responsible for only
// invoking this before any byte of a real response has been sent:
// once bytes have gone out, failures are abandoned silently.
func writeErrorEnvelope(w io.Writer, code int, reason string) error {
	_, err := fmt.Fprintf(w, "HTTP/1.0 %d %s\r\nContent-Length: 0\r\nConnection: close\r\n\r\n", code, reason)
	return err
}

func writeBadRequest(w io.Writer) error {
	return writeErrorEnvelope(w, 400, "Bad Request")
}

func writeInternalError(w io.Writer) error {
	return writeErrorEnvelope(w, 500, "Internal Server Error")
}

func writeBadGateway(w io.Writer) error {
	return writeErrorEnvelope(w, 502, "Bad Gateway")
}

func writeNotImplemented(w io.Writer) error {
	return writeErrorEnvelope(w, 501, "Not Implemented")
}
