package domain

import (
	"errors"
	"fmt"
)

// FetchError reports a network, timeout or non-2xx failure.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ParseError reports a malformed feed, HTML or JSON payload.
type ParseError struct {
	Format string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Format, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ConflictError is returned on insert when another record already owns the link.
type ConflictError struct {
	Link string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("edital with link %s already exists", e.Link)
}

// ConfigError reports an unsupported source kind or malformed configuration.
type ConfigError struct {
	SourceID int64
	Reason   string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("source %d: %s", e.SourceID, e.Reason)
}

func IsFetch(err error) bool {
	var target *FetchError
	return errors.As(err, &target)
}

func IsParse(err error) bool {
	var target *ParseError
	return errors.As(err, &target)
}

func IsConflict(err error) bool {
	var target *ConflictError
	return errors.As(err, &target)
}

func IsConfig(err error) bool {
	var target *ConfigError
	return errors.As(err, &target)
}
