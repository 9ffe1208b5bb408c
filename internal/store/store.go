// Package store receives the write intents the session engine emits after
// every command: the request, the reply and any queued server message.
// Implementations decide how (and whether) to persist them; the engine
// only requires that a failed write never fails the command.
package store

import (
	"context"
	"time"
)

// RequestRecord captures one outbound command. Request holds the document
// with credentials already masked.
type RequestRecord struct {
	ClTRID    string
	Command   string
	ObjectID  string
	Request   []byte
	CreatedAt time.Time
}

// ResponseRecord captures the raw reply paired with its request by clTRID.
type ResponseRecord struct {
	ClTRID     string
	SvTRID     string
	ResultCode string
	HTTPStatus int
	Headers    string
	Body       []byte
	ReasonCode string
	Reason     string
	CreatedAt  time.Time
}

// MessageRecord is one classified entry from the server message queue,
// tied to the poll exchange that retrieved it by clTRID/svTRID.
type MessageRecord struct {
	ID        string
	Type      string
	Domain    string
	Title     string
	Date      string
	Body      []byte
	ClTRID    string
	SvTRID    string
	CreatedAt time.Time
}

// Store persists command traffic for audit.
type Store interface {
	SaveRequest(ctx context.Context, rec RequestRecord) error
	SaveResponse(ctx context.Context, rec ResponseRecord) error
	SaveMessage(ctx context.Context, rec MessageRecord) error
}

// Publisher forwards classified queue messages to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, rec MessageRecord) error
}

// Dedupe remembers which queue message ids have already been processed,
// so a re-polled message is stored and published once.
type Dedupe interface {
	Seen(ctx context.Context, msgID string) (bool, error)
}
