package listener

import (
	"errors"
	"fmt"
	"io"
	"net/http"
)

// DefaultMaxBodyBytes caps request bodies read by FromHTTP.
const DefaultMaxBodyBytes int64 = 4 << 20

// ErrBodyTooLarge is returned by FromHTTP when the body exceeds the limit.
var ErrBodyTooLarge = errors.New("ingress body too large")

// Request is the transport request a message arrived on. It is read-only
// once built and is handed to middleware for downstream needs.
type Request struct {
	Method     string
	Path       string
	Header     http.Header
	Body       []byte
	RemoteAddr string
}

// FromHTTP reads r into a Request. Bodies larger than maxBytes are
// rejected; a non-positive maxBytes uses DefaultMaxBodyBytes.
func FromHTTP(r *http.Request, maxBytes int64) (*Request, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBodyBytes
	}
	var body []byte
	if r.Body != nil {
		data, err := io.ReadAll(io.LimitReader(r.Body, maxBytes+1))
		if err != nil {
			return nil, fmt.Errorf("read ingress body: %w", err)
		}
		if int64(len(data)) > maxBytes {
			return nil, fmt.Errorf("%w: limit is %d bytes", ErrBodyTooLarge, maxBytes)
		}
		body = data
	}
	return &Request{
		Method:     r.Method,
		Path:       r.URL.Path,
		Header:     r.Header.Clone(),
		Body:       body,
		RemoteAddr: r.RemoteAddr,
	}, nil
}
