package domain

import "errors"

var (
	ErrSerializationFailure = errors.New("serialization failure")
	ErrNotFound             = errors.New("not found")
	ErrValidation           = errors.New("invalid input")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrStateConflict        = errors.New("invalid state transition")
	ErrCapacityExceeded     = errors.New("capacity exceeded")
	ErrUpstream             = errors.New("upstream failure")
)
