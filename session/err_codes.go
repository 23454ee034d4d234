package session

// Error codes for session operations.
const (
	// CodeAuthFailed is returned when the login exchange failed.
	CodeAuthFailed = "AUTH_FAILED"

	// CodeNoToken is returned when a login response carried no token, or when
	// a renewal is requested while no token is held.
	CodeNoToken = "AUTH_NO_TOKEN"

	// CodeRenewInvalid is returned when a refresh response is unusable.
	CodeRenewInvalid = "RENEW_INVALID"
)
