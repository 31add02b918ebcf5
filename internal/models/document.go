package models

import "time"

// Document is the Firestore record the hosted processor keeps for every uploaded file.
// It tracks the overall status and the outputs produced for it.
type Document struct {
	FileHash            string    `firestore:"fileHash,omitempty"`
	OriginalFilename    string    `firestore:"originalFilename,omitempty"`
	Mode                string    `firestore:"mode,omitempty"`
	Status              string    `firestore:"status,omitempty"`
	ErrorDetails        string    `firestore:"errorDetails,omitempty"`
	PageCount           int       `firestore:"pageCount,omitempty"`
	OutputCount         int       `firestore:"outputCount,omitempty"`
	JobID               string    `firestore:"jobId,omitempty"`
	WorkflowExecutionID string    `firestore:"workflowExecutionId,omitempty"` // For traceability
	CreatedAt           time.Time `firestore:"createdAt,omitempty"`
}

// Document statuses.
const (
	StatusValidating = "VALIDATING"
	StatusProcessing = "PROCESSING"
	StatusDone       = "DONE"
	StatusFailed     = "FAILED"
)
