package domain

import "errors"

var (
	// ErrConfig reports missing or invalid process configuration.
	ErrConfig = errors.New("configuration error")
	// ErrTransport wraps network failures and non-2xx responses.
	ErrTransport = errors.New("transport error")
	// ErrMalformedResponse reports a payload that does not match the expected shape.
	ErrMalformedResponse = errors.New("malformed response")
	// ErrThinContent reports a scraped body below the usable length.
	ErrThinContent = errors.New("content too thin")
	// ErrStorage wraps persistence failures.
	ErrStorage = errors.New("storage error")
)
