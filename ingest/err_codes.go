package ingest

// Error codes for the ingest pipeline.
const (
	// CodeRegisterFailed is returned when the media record could not be created.
	CodeRegisterFailed = "REGISTER_FAILED"

	// CodeNothingUploaded marks a transfer that produced no upload reference.
	CodeNothingUploaded = "NOTHING_UPLOADED"
)
