package pppoe

import "errors"

// Sentinel errors for the discovery-path error taxonomy. Discovery-path
// errors never propagate above the frame handler: each is either
// silently dropped or answered with the matching error PADS.
var (
	ErrMalformedFrame  = errors.New("pppoe: malformed frame")
	ErrRateLimited     = errors.New("pppoe: rate limited")
	ErrBadCookie       = errors.New("pppoe: bad cookie")
	ErrServiceMismatch = errors.New("pppoe: service name mismatch")
	ErrNoFreeSID       = errors.New("pppoe: no free session id")
	ErrSocketError     = errors.New("pppoe: socket error")
	ErrAlreadyExists   = errors.New("pppoe: interface already started")
)
