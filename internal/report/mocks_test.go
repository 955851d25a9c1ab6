package report

import (
	"context"

	"radiology-worklist/internal/dicomjson"
	"radiology-worklist/internal/models"
)

type MockArchive struct {
	QueryStudyByUIDFunc func(ctx context.Context, uid string) (*models.StudyDetail, error)
	SubmitReportFunc    func(ctx context.Context, doc dicomjson.Dataset) error
}

func (m *MockArchive) QueryStudyByUID(ctx context.Context, uid string) (*models.StudyDetail, error) {
	return m.QueryStudyByUIDFunc(ctx, uid)
}

func (m *MockArchive) SubmitReport(ctx context.Context, doc dicomjson.Dataset) error {
	return m.SubmitReportFunc(ctx, doc)
}

// MockDraftStore keeps drafts in a map unless a func overrides it.
type MockDraftStore struct {
	Drafts         map[string]*models.ReportDraft
	GetDraftFunc   func(ctx context.Context, sessionID, studyUID string) (*models.ReportDraft, error)
	SaveDraftFunc  func(ctx context.Context, draft *models.ReportDraft) error
	DeleteDraftErr error
}

func (m *MockDraftStore) key(sessionID, studyUID string) string { return sessionID + "|" + studyUID }

func (m *MockDraftStore) GetDraft(ctx context.Context, sessionID, studyUID string) (*models.ReportDraft, error) {
	if m.GetDraftFunc != nil {
		return m.GetDraftFunc(ctx, sessionID, studyUID)
	}
	return m.Drafts[m.key(sessionID, studyUID)], nil
}

func (m *MockDraftStore) SaveDraft(ctx context.Context, draft *models.ReportDraft) error {
	if m.SaveDraftFunc != nil {
		return m.SaveDraftFunc(ctx, draft)
	}
	if m.Drafts == nil {
		m.Drafts = make(map[string]*models.ReportDraft)
	}
	m.Drafts[m.key(draft.SessionID, draft.StudyInstanceUID)] = draft
	return nil
}

func (m *MockDraftStore) DeleteDraft(ctx context.Context, sessionID, studyUID string) error {
	if m.DeleteDraftErr != nil {
		return m.DeleteDraftErr
	}
	delete(m.Drafts, m.key(sessionID, studyUID))
	return nil
}

type MockSubmissionLog struct {
	Recorded            []models.Submission
	RecordErr           error
	ListSubmissionsFunc func(ctx context.Context, studyUID string) ([]models.Submission, error)
}

func (m *MockSubmissionLog) RecordSubmission(ctx context.Context, s *models.Submission) error {
	if m.RecordErr != nil {
		return m.RecordErr
	}
	m.Recorded = append(m.Recorded, *s)
	return nil
}

func (m *MockSubmissionLog) ListSubmissions(ctx context.Context, studyUID string) ([]models.Submission, error) {
	if m.ListSubmissionsFunc != nil {
		return m.ListSubmissionsFunc(ctx, studyUID)
	}
	var out []models.Submission
	for _, s := range m.Recorded {
		if s.StudyInstanceUID == studyUID {
			out = append(out, s)
		}
	}
	return out, nil
}
