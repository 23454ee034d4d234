package watch

// Error codes for watch operations.
const (
	// CodeFileUnreadable is returned when a file never settled within the allowed poll attempts.
	CodeFileUnreadable = "FILE_UNREADABLE"
)
