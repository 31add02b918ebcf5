package models

// ObjectEvent is the data payload of a Cloud Storage "object finalized" event.
type ObjectEvent struct {
	Bucket      string `json:"bucket"`
	Name        string `json:"name"`
	ContentType string `json:"contentType,omitempty"`
	Size        string `json:"size,omitempty"`
}

// WorkflowHandoff is the argument passed to the downstream workflow once outputs are stored.
type WorkflowHandoff struct {
	DocumentID  string `json:"documentId"`
	OutputCount int    `json:"outputCount"`
	PageCount   int    `json:"pageCount"`
	Mode        string `json:"mode"`
}
