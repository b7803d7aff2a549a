// Package events contains the event contract pushed to WebSocket clients
// while an extraction run is in flight.
package events

import (
	"time"
)

// MessageType defines the type of WebSocket message.
type MessageType string

const (
	// Extraction lifecycle messages.
	MessageTypeExtractionStarted   MessageType = "extraction:started"
	MessageTypeExtractionFileDone  MessageType = "extraction:file_done"
	MessageTypeExtractionCompleted MessageType = "extraction:completed"
	MessageTypeExtractionFailed    MessageType = "extraction:failed"
)

// Envelope is the wire shape of every pushed event.
type Envelope struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload,omitempty"`
}

// NewEnvelope stamps a payload with its type and the current UTC time.
func NewEnvelope(t MessageType, payload interface{}) Envelope {
	return Envelope{
		Type:      t,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// ExtractionStarted announces a new run.
type ExtractionStarted struct {
	OperationID string `json:"operation_id"`
	SourceDir   string `json:"source_dir"`
	TestType    string `json:"test_type"`
}

// ExtractionFileDone reports one session file finishing, successfully or not.
type ExtractionFileDone struct {
	OperationID string  `json:"operation_id"`
	Filename    string  `json:"filename"`
	Success     bool    `json:"success"`
	Curves      int     `json:"curves"`
	Notices     int     `json:"notices"`
	Error       string  `json:"error,omitempty"`
	DurationMS  float64 `json:"duration_ms"`
}

// ExtractionCompleted reports a finished run and the reports it wrote.
type ExtractionCompleted struct {
	OperationID string   `json:"operation_id"`
	Processed   int      `json:"processed"`
	Failed      int      `json:"failed"`
	Reports     []string `json:"reports,omitempty"`
	DurationMS  float64  `json:"duration_ms"`
}

// ExtractionFailed reports a run that produced no usable result.
type ExtractionFailed struct {
	OperationID string  `json:"operation_id"`
	Error       string  `json:"error"`
	DurationMS  float64 `json:"duration_ms"`
}
