package robstride

import "errors"

var (
	// ErrTransportUnavailable is reported when no transport could be opened.
	ErrTransportUnavailable = errors.New("transport unavailable")
	// ErrRecvTimeout is returned by Transport.Receive when no frame arrived
	// within the timeout window.
	ErrRecvTimeout = errors.New("receive timeout")
	// ErrClosed is returned by operations on a closed transport.
	ErrClosed = errors.New("transport closed")
	// ErrDroppedFrame is reported when an incoming frame had to be discarded
	// because a buffer was full.
	ErrDroppedFrame = errors.New("incoming frame dropped")
	// ErrNoBackend is returned by backend operations while disconnected.
	ErrNoBackend = errors.New("no active backend")
)
