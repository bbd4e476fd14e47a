package config

import (
	"errors"
	"fmt"
)

var (
	ErrMissingRedisURL    = errors.New("redis_url is required for the redis session backend")
	ErrMissingDatabaseURL = errors.New("database_url is required for the postgres session backend")
	ErrUnknownBackend     = errors.New("unknown session backend (use memory, redis or postgres)")
	ErrNegative           = errors.New("must not be negative")
	ErrEmpty              = errors.New("must not be empty")
)

// FieldError reports an invalid configuration value.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("config %s: %v", e.Field, e.Err)
}

func (e *FieldError) Unwrap() error { return e.Err }
