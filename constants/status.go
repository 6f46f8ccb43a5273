package constants

// JobStatus is the canonical status for rows in processing_job.
type JobStatus string

// Stable values (store these exact strings in DB).
const (
	JobStatusQueued    JobStatus = "QUEUED"    // queued for processing
	JobStatusRunning   JobStatus = "RUNNING"   // in progress
	JobStatusSplitOK   JobStatus = "SPLIT_OK"  // segmentation completed
	JobStatusOCROK     JobStatus = "OCR_OK"    // text recognized and validated
	JobStatusExtracted JobStatus = "EXTRACTED" // fields extracted
	JobStatusSubmitted JobStatus = "SUBMITTED" // payload accepted downstream
	JobStatusFailed    JobStatus = "FAILED"    // terminal failure
)

// ValidationStatus tags the outcome of the confidence-gated OCR correction pass.
type ValidationStatus string

const (
	ValidationCompleted         ValidationStatus = "completed"
	ValidationSkippedShortText  ValidationStatus = "skipped_insufficient_text"
	ValidationSkippedHighConf   ValidationStatus = "skipped_high_confidence"
	ValidationSkippedUnreadable ValidationStatus = "skipped_unreadable_text"
	ValidationSkippedDisabled   ValidationStatus = "skipped_disabled"
)

// FailedValidation builds the failure tag for a correction pass that errored.
func FailedValidation(reason string) ValidationStatus {
	return ValidationStatus("failed_" + reason)
}

// SplitMethod records how a logical document was carved out of its source file.
type SplitMethod string

const (
	SplitMethodNone        SplitMethod = "no_split"
	SplitMethodLLMBoundary SplitMethod = "llm_boundary"
	SplitMethodSingleImage SplitMethod = "single_image"
)

// SubmissionOutcome classifies a downstream submission attempt.
type SubmissionOutcome string

const (
	SubmissionSuccess     SubmissionOutcome = "success"
	SubmissionClientError SubmissionOutcome = "client_error"
	SubmissionServerError SubmissionOutcome = "server_error"
	SubmissionTimeout     SubmissionOutcome = "timeout"
	SubmissionConnError   SubmissionOutcome = "connection_error"
)
