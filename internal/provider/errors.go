package provider

import "errors"

// Failure classes shared by all upstream providers. Every error returned by a
// provider wraps exactly one of these.
var (
	ErrTransport = errors.New("transport error")
	ErrStatus    = errors.New("unexpected status")
	ErrDecode    = errors.New("decode error")
	ErrNotFound  = errors.New("not found")
)
