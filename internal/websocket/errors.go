package websocket

import "errors"

var (
	ErrClientQueueFull = errors.New("client message queue is full")
	ErrClientClosed    = errors.New("client connection is closed")
	ErrInvalidEvent    = errors.New("invalid event format")
	ErrInvalidTarget   = errors.New("exactly one of receiver or group must be set")
	ErrUnauthorized    = errors.New("unauthorized")
)
