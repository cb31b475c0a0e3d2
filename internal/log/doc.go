// Package log provides the application's slog loggers. Every logger masks
// credentials before a record is written.
//
// Sources may be configured with cookies, extra headers or an API client
// id, and the URLs logged at debug level can carry such keys in their query.
// The SecureHandler masks:
//   - Attributes whose key names a credential (cookie, authorization, client_id)
//   - Values that look like bearer, basic or JWT tokens or key material
//   - Credential query parameters inside logged URLs
//   - Credential headers inside a logged map[string]string
//
// Info hashes and session tokens are not masked; the session token is
// logged under the "search" key.
//
// # Usage
//
//	logger := log.NewSecureLogger(os.Stderr, verbose)
//	logger.Debug("fetching search page",
//	    "url", "https://api.example.com/search?q=x&client_id=abc", // client_id masked
//	    "cookie", "uid=42", // masked
//	)
//
// The same logger is passed to tornago when fedsearch starts its own Tor
// daemon.
package log
