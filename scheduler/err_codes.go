package scheduler

// Error codes for scheduler operations.
const (
	// CodeJobTimeout is returned when a job exceeds the job timeout and is abandoned.
	CodeJobTimeout = "JOB_TIMEOUT"

	// CodeJobPanicked is returned when a job handler panics.
	CodeJobPanicked = "JOB_PANICKED"

	// CodeJobRejected is logged when a submission is refused because the queue is full.
	CodeJobRejected = "JOB_REJECTED"
)
