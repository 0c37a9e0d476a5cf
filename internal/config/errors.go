package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() so that callers can use
// errors.Is() while still getting a human-readable message.
var (
	// ErrNoURL is returned when no Notion page URL is configured.
	ErrNoURL = errors.New("no Notion page URL specified: pass it as an argument or set url in the config file")

	// ErrInvalidURL is returned when the page URL is not an absolute http(s) URL.
	ErrInvalidURL = errors.New("invalid Notion page URL: must be an absolute http or https URL")

	// ErrNoIndexFile is returned when the HTML file to patch is not specified.
	ErrNoIndexFile = errors.New("no index file specified")

	// ErrInvalidTimeout is returned when the timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrUnknownRenderer is returned when the renderer is neither chrome nor http.
	ErrUnknownRenderer = errors.New("unknown renderer: must be \"chrome\" or \"http\"")

	// ErrInvalidScrollSteps is returned when the scroll step count is negative.
	ErrInvalidScrollSteps = errors.New("invalid scroll steps: must be non-negative")

	// ErrInvalidScrollDelay is returned when the scroll delay is negative.
	ErrInvalidScrollDelay = errors.New("invalid scroll delay: must be non-negative")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrEmptyTargetID is returned when a section has no target element id.
	ErrEmptyTargetID = errors.New("empty target element id")

	// ErrDuplicateTargetID is returned when two sections share a target element id.
	ErrDuplicateTargetID = errors.New("duplicate target element id: each section needs its own element")

	// ErrUnknownLogFormat is returned when the log format is neither text nor json.
	ErrUnknownLogFormat = errors.New("unknown log format: must be \"text\" or \"json\"")
)
