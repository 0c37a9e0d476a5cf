// Package log provides slog-based logging that never writes credentials.
//
// cvsync may be configured with a Notion session cookie (token_v2), custom
// HTTP headers, or a proxy URL with a password. The SecureHandler masks those
// values before they reach the underlying text or JSON handler, even in
// verbose mode.
//
// # Usage
//
//	logger := log.NewLogger(os.Stderr, verbose, "text")
//	slog.SetDefault(logger)
//
//	logger.Debug("fetching page",
//	    "url", cfg.NotionURL,
//	    "cookie", cfg.Cookie, // logged as ***REDACTED***
//	)
package log
