package pdu

import (
	"context"
	"errors"
	"fmt"
)

// Request describes a single HTTP exchange with a controller's
// management API. Path is relative to the controller's base URL.
type Request struct {
	Method string
	Path   string
	Body   []byte
}

// Response is the raw result of a Request. The Executor owns all
// interpretation of the status code and body.
type Response struct {
	Status int
	Body   []byte
}

// Transport performs one request/response exchange against one PDU
// controller. Implementations carry credentials, timeouts, and TLS
// settings; no retry logic belongs here.
type Transport interface {
	Send(ctx context.Context, target Target, req Request) (Response, error)
}

// Codec maps Operations to controller requests and validates the
// responses. A decode error wrapping ErrUnknownName is fatal; any
// other decode error is treated as a retriable protocol error.
type Codec interface {
	Request(op Operation) (Request, error)
	// Decode returns the observed state for status operations and an
	// empty string for power acknowledgements.
	Decode(op Operation, res Response) (string, error)
}

// ErrUnknownName indicates a well-formed controller response that does
// not contain the requested outlet or group.
var ErrUnknownName = errors.New("unknown outlet or group name")

// FatalError wraps an attempt error that must not be retried.
type FatalError struct {
	Kind FailureKind
	Err  error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *FatalError) Unwrap() error {
	return e.Err
}
