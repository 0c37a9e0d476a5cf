package fetch

import "errors"

var (
	// ErrBrowserNotFound is returned when no Chrome or Chromium executable
	// could be located.
	ErrBrowserNotFound = errors.New("chrome or chromium executable not found")

	// ErrContentNotReady is returned when the wait class does not appear in
	// the fetched document.
	ErrContentNotReady = errors.New("page content did not load")

	// ErrUnexpectedStatus is returned for non-2xx HTTP responses.
	ErrUnexpectedStatus = errors.New("unexpected HTTP status")

	// ErrNotHTML is returned when the fetched document is not HTML.
	ErrNotHTML = errors.New("fetched document is not HTML")

	// ErrBodyTooLarge is returned when the document exceeds the size limit.
	ErrBodyTooLarge = errors.New("fetched document exceeds size limit")

	// ErrInvalidProxyAddress is returned when the proxy address is not "host:port".
	ErrInvalidProxyAddress = errors.New("invalid proxy address format: expected host:port")
)
