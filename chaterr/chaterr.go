// Package chaterr defines the sentinel error kinds shared by the client,
// server and node packages.
package chaterr

import "errors"

var (
	// ErrInvalidArgument means a message or name failed validation: empty
	// after trimming, or longer than the wire protocol's length cap.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrAlreadyConnected means Connect was called on a client that already
	// has an open transport.
	ErrAlreadyConnected = errors.New("already connected")

	// ErrNotConnected means an operation that requires a live transport was
	// attempted while none was open.
	ErrNotConnected = errors.New("not connected")

	// ErrNetwork wraps a transport failure (accept, connect, read, write).
	ErrNetwork = errors.New("network error")

	// ErrClosed means the operation was attempted after Close/Dispose.
	ErrClosed = errors.New("closed")
)
