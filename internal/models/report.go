package models

import "time"

// ReportDraft is the free text being written for one study in one session.
type ReportDraft struct {
	SessionID        string    `json:"session_id"`
	StudyInstanceUID string    `json:"study_instance_uid"`
	Text             string    `json:"text"`
	UpdatedAt        time.Time `json:"updated_at"`
}

const (
	SubmissionSucceeded = "submitted"
	SubmissionFailed    = "failed"
)

// Submission records one STOW-RS attempt for a report.
type Submission struct {
	ID                int64     `json:"id"`
	StudyInstanceUID  string    `json:"study_instance_uid"`
	SOPInstanceUID    string    `json:"sop_instance_uid"`
	SeriesInstanceUID string    `json:"series_instance_uid"`
	Username          string    `json:"username"`
	Modalities        []string  `json:"modalities"`
	Status            string    `json:"status"`
	HTTPStatus        int       `json:"http_status"`
	Error             string    `json:"error"`
	SubmittedAt       time.Time `json:"submitted_at"`
}
