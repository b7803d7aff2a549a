// Package api contains API contract definitions for the REM report service.
// Version v1 represents the current stable API version.
package api

// Extraction API Requests

// ExtractionRunRequest is the body of POST /api/extraction/run. All fields
// are optional; omitted ones fall back to the server's configured defaults.
type ExtractionRunRequest struct {
	SourceDir   string `json:"source_dir,omitempty"`
	TestType    string `json:"test_type,omitempty" validate:"omitempty,testtype"`
	Frequencies []int  `json:"freqs,omitempty" validate:"omitempty,max=128,dive,frequency"`
	Workers     int    `json:"workers,omitempty" validate:"omitempty,min=1,max=64"`
}

// ExtractionRunResponse acknowledges an accepted run.
type ExtractionRunResponse struct {
	Status      string `json:"status"`
	OperationID string `json:"operation_id"`
}

// Data API Requests

// TableRequest identifies one report table.
type TableRequest struct {
	Kind string `json:"kind" param:"kind" validate:"required,oneof=measured targets aided-sii diffs"`
}
