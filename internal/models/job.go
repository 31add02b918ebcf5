package models

// Progress is a single progress event emitted while a job runs.
type Progress struct {
	Fraction float64 `json:"fraction"`
	Phase    string  `json:"phase"`
}

// Output is one produced file.
type Output struct {
	Name string
	Data []byte
}

// Warning reports a requested feature that could not be honoured. The job still succeeded,
// but without the feature.
type Warning struct {
	Feature string `json:"feature"`
	Message string `json:"message"`
}
