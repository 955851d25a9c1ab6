package pacs

import (
	"errors"
	"fmt"
)

// ErrStudyNotFound is returned by a single-study query that matched nothing.
var ErrStudyNotFound = errors.New("pacs: study not found")

// ServerError is a non-success HTTP status from the archive.
type ServerError struct {
	Op         string
	StatusCode int
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("pacs: %s: archive returned HTTP %d", e.Op, e.StatusCode)
}

// TransportError means the request never completed.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("pacs: %s: archive unreachable: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ParseError means the archive's body is not usable DICOM JSON.
type ParseError struct {
	Op  string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("pacs: %s: unable to parse response: %v", e.Op, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// SubmissionError wraps the cause of a failed STOW-RS submission.
type SubmissionError struct {
	SOPInstanceUID string
	Err            error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("pacs: report %s not stored: %v", e.SOPInstanceUID, e.Err)
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}

// StatusCode returns the archive's HTTP status, or 0 when none was received.
func (e *SubmissionError) StatusCode() int {
	var se *ServerError
	if errors.As(e.Err, &se) {
		return se.StatusCode
	}
	return 0
}
