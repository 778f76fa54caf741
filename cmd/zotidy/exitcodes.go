package main

// Exit codes
const (
	ExitSuccess     = 0 // Success
	ExitError       = 1 // General error (invalid arguments, runtime failure)
	ExitConfigError = 2 // Configuration missing or invalid
	ExitRemoteError = 3 // Zotero or Unpaywall could not be reached or answered badly
	ExitAuthError   = 4 // API key rejected (HTTP 401/403)
	ExitStale       = 5 // Library changed since the last load, or nothing loaded yet
)
