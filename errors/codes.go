package errors

// ErrorCode identifies an application error category
type ErrorCode int

const (
	ErrorCode_UNKNOWN ErrorCode = iota
	ErrorCode_INTERNAL
	ErrorCode_INVALID_ARGUMENT
	ErrorCode_NOT_FOUND
	ErrorCode_ALREADY_EXISTS
	ErrorCode_PERMISSION_DENIED
	ErrorCode_UNAUTHENTICATED
	ErrorCode_FORBIDDEN
	ErrorCode_HTTP_OK

	// Authentication
	ErrorCode_AUTH_INVALID_TOKEN
	ErrorCode_AUTH_TOKEN_EXPIRED
	ErrorCode_AUTH_OAUTH_FAILED

	// Sync engine
	ErrorCode_SYNC_AUTH_EXPIRED
	ErrorCode_SYNC_CURSOR_INVALID
	ErrorCode_SYNC_PROVIDER_UNAVAILABLE
	ErrorCode_SYNC_PERSISTENCE_FAILED
	ErrorCode_SYNC_NOT_CONNECTED
	ErrorCode_SYNC_IN_PROGRESS

	// Watch lifecycle
	ErrorCode_WATCH_SETUP_FAILED
	ErrorCode_WATCH_NOT_FOUND
	ErrorCode_WATCH_NOT_SUPPORTED

	// Bot gateway
	ErrorCode_BOT_SCHEDULE_FAILED

	// Database
	ErrorCode_DB_CONNECTION_FAILED
	ErrorCode_DB_QUERY_FAILED

	// Generic payload handling
	ErrorCode_INVALID_PAYLOAD
)

var errorCodeNames = map[ErrorCode]string{
	ErrorCode_UNKNOWN:                   "UNKNOWN",
	ErrorCode_INTERNAL:                  "INTERNAL",
	ErrorCode_INVALID_ARGUMENT:          "INVALID_ARGUMENT",
	ErrorCode_NOT_FOUND:                 "NOT_FOUND",
	ErrorCode_ALREADY_EXISTS:            "ALREADY_EXISTS",
	ErrorCode_PERMISSION_DENIED:         "PERMISSION_DENIED",
	ErrorCode_UNAUTHENTICATED:           "UNAUTHENTICATED",
	ErrorCode_FORBIDDEN:                 "FORBIDDEN",
	ErrorCode_HTTP_OK:                   "OK",
	ErrorCode_AUTH_INVALID_TOKEN:        "AUTH_INVALID_TOKEN",
	ErrorCode_AUTH_TOKEN_EXPIRED:        "AUTH_TOKEN_EXPIRED",
	ErrorCode_AUTH_OAUTH_FAILED:         "AUTH_OAUTH_FAILED",
	ErrorCode_SYNC_AUTH_EXPIRED:         "SYNC_AUTH_EXPIRED",
	ErrorCode_SYNC_CURSOR_INVALID:       "SYNC_CURSOR_INVALID",
	ErrorCode_SYNC_PROVIDER_UNAVAILABLE: "SYNC_PROVIDER_UNAVAILABLE",
	ErrorCode_SYNC_PERSISTENCE_FAILED:   "SYNC_PERSISTENCE_FAILED",
	ErrorCode_SYNC_NOT_CONNECTED:        "SYNC_NOT_CONNECTED",
	ErrorCode_SYNC_IN_PROGRESS:          "SYNC_IN_PROGRESS",
	ErrorCode_WATCH_SETUP_FAILED:        "WATCH_SETUP_FAILED",
	ErrorCode_WATCH_NOT_FOUND:           "WATCH_NOT_FOUND",
	ErrorCode_WATCH_NOT_SUPPORTED:       "WATCH_NOT_SUPPORTED",
	ErrorCode_BOT_SCHEDULE_FAILED:       "BOT_SCHEDULE_FAILED",
	ErrorCode_DB_CONNECTION_FAILED:      "DB_CONNECTION_FAILED",
	ErrorCode_DB_QUERY_FAILED:           "DB_QUERY_FAILED",
	ErrorCode_INVALID_PAYLOAD:           "INVALID_PAYLOAD",
}

// String returns the symbolic name of the error code
func (c ErrorCode) String() string {
	if name, ok := errorCodeNames[c]; ok {
		return name
	}
	return "UNKNOWN"
}
