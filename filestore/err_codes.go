package filestore

// Error codes for filestore operations.
const (
	// CodeFileNotFound is returned when nothing exists at the requested path.
	CodeFileNotFound = "FILE_NOT_FOUND"
)
