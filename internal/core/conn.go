// Package core holds the room bookkeeping the realtime side runs on: the
// connection registry and the router that fans frames out over it. It never
// touches websockets or storage directly.
package core

// Frame is a marshaled wire envelope ready for delivery.
type Frame []byte

// SessionID distinguishes concurrent connections of the same user.
type SessionID string

// SignalConnection abstracts the messaging transport of one session.
// TrySend must not block; Close must be idempotent, since eviction and the
// adapter's own teardown may both call it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}
