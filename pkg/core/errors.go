package core

import (
	"errors"
	"fmt"
)

// ConfigError is returned when a connection or directory setting cannot be used
type ConfigError struct {
	Key string
	msg string
}

func (e ConfigError) Error() string {
	if e.Key == "" {
		return e.msg
	}
	return fmt.Sprintf("invalid %s: %s", e.Key, e.msg)
}

// ErrInvalidConfig creates a new configuration error for key
func ErrInvalidConfig(key, msg string) error {
	return ConfigError{Key: key, msg: msg}
}

// ErrInvalidConfigf creates a new formatted configuration error for key
func ErrInvalidConfigf(key, format string, args ...interface{}) error {
	return ConfigError{Key: key, msg: fmt.Sprintf(format, args...)}
}

// IsConfigError reports whether err wraps a ConfigError
func IsConfigError(err error) bool {
	var ce ConfigError
	return errors.As(err, &ce)
}
