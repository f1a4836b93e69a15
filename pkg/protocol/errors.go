package protocol

import "errors"

var errInvalidChangeCipherSpec = errors.New("invalid ChangeCipherSpec message")

// FatalError indicates that the connection is no longer usable. It is
// mainly caused by a misbehaving peer or a misconfigured endpoint.
type FatalError struct{ Err error }

func (e *FatalError) Error() string { return e.Err.Error() }
func (e *FatalError) Unwrap() error { return e.Err }

// TemporaryError indicates the connection is still usable but the request
// that produced it failed, such as a decode error on a buffer that is too
// short. DTLS records that fail AEAD open or replay checks are dropped
// silently and return no error at all.
type TemporaryError struct{ Err error }

func (e *TemporaryError) Error() string { return e.Err.Error() }
func (e *TemporaryError) Unwrap() error { return e.Err }

// InternalError indicates a bug in this implementation, or an attempt to
// use a feature that was never wired up (e.g. an unimplemented capability).
type InternalError struct{ Err error }

func (e *InternalError) Error() string { return e.Err.Error() }
func (e *InternalError) Unwrap() error { return e.Err }

// TimeoutError indicates a blocking operation exceeded its deadline.
type TimeoutError struct{ Err error }

func (e *TimeoutError) Error() string   { return e.Err.Error() }
func (e *TimeoutError) Unwrap() error   { return e.Err }
func (e *TimeoutError) Timeout() bool   { return true }
func (e *TimeoutError) Temporary() bool { return true }

// HandshakeError wraps any error that aborted an in-progress handshake.
type HandshakeError struct{ Err error }

func (e *HandshakeError) Error() string { return "handshake failed: " + e.Err.Error() }
func (e *HandshakeError) Unwrap() error { return e.Err }
