// Package transport carries encoded requests to the registry server and
// returns raw reply bytes. The protocol engine never retries; whether a
// call is worth repeating is the caller's decision.
package transport

import (
	"context"
	"net/http"
)

// Reply is the raw outcome of one exchange. StatusCode and Headers are
// zero-valued on transports without an HTTP layer.
type Reply struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// Transport delivers one request document and blocks for its reply.
type Transport interface {
	Send(ctx context.Context, body []byte) (*Reply, error)
}
