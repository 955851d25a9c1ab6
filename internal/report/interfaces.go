package report

import (
	"context"

	"radiology-worklist/internal/dicomjson"
	"radiology-worklist/internal/models"
)

// Archive defines the PACS operations the reporting workflow needs
type Archive interface {
	QueryStudyByUID(ctx context.Context, uid string) (*models.StudyDetail, error)
	SubmitReport(ctx context.Context, doc dicomjson.Dataset) error
}

// DraftStore keeps report text between autosaves. GetDraft returns nil, nil
// when no draft exists.
type DraftStore interface {
	GetDraft(ctx context.Context, sessionID, studyUID string) (*models.ReportDraft, error)
	SaveDraft(ctx context.Context, draft *models.ReportDraft) error
	DeleteDraft(ctx context.Context, sessionID, studyUID string) error
}

// SubmissionLog records every STOW-RS attempt
type SubmissionLog interface {
	RecordSubmission(ctx context.Context, s *models.Submission) error
	ListSubmissions(ctx context.Context, studyUID string) ([]models.Submission, error)
}
