package errors

import (
	"errors"
)

var (
	ErrQueueFull    = errors.New("publish queue full")
	ErrUnauthorized = errors.New("unauthorized")
)
