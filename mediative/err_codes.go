package mediative

// Error codes for Mediative API calls.
const (
	// CodeRequestFailed is returned when the HTTP exchange itself failed.
	CodeRequestFailed = "REQUEST_FAILED"

	// CodeUnexpectedStatus is returned for any response status other than 200.
	CodeUnexpectedStatus = "UNEXPECTED_STATUS"

	// CodeInvalidResponse is returned when a response body cannot be decoded.
	CodeInvalidResponse = "INVALID_RESPONSE"

	// CodeNoToken is returned when a login response carries no token.
	CodeNoToken = "NO_TOKEN"
)
