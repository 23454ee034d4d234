package transfer

// Error codes for chunked transfers.
const (
	// CodeChunkFailed is returned when a chunk could not be read or was not accepted.
	CodeChunkFailed = "CHUNK_FAILED"
)
