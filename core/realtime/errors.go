package realtime

import "github.com/pkg/errors"

var (
	// ErrNoSession is returned by a SessionResolver when the request carries no authenticated session.
	ErrNoSession = errors.New("no authenticated session")

	ErrMalformedMessage = errors.New("malformed message")
	ErrUnknownKind      = errors.New("unknown message kind")
	ErrConnClosed       = errors.New("connection closed")
	ErrSendBufferFull   = errors.New("send buffer full")
)
