package store

import (
	"context"
	"slices"
	"sync"

	"radiology-worklist/internal/models"
)

// MemorySubmissionLog is the submission log used when no database is
// configured. History is lost on restart.
type MemorySubmissionLog struct {
	mu     sync.RWMutex
	nextID int64
	items  []models.Submission
}

func NewMemorySubmissionLog() *MemorySubmissionLog {
	return &MemorySubmissionLog{}
}

func (m *MemorySubmissionLog) RecordSubmission(ctx context.Context, s *models.Submission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	s.ID = m.nextID
	cp := *s
	cp.Modalities = slices.Clone(s.Modalities)
	m.items = append(m.items, cp)
	return nil
}

// ListSubmissions returns the study's submissions, newest first.
func (m *MemorySubmissionLog) ListSubmissions(ctx context.Context, studyUID string) ([]models.Submission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.Submission
	for i := len(m.items) - 1; i >= 0; i-- {
		if m.items[i].StudyInstanceUID == studyUID {
			out = append(out, m.items[i])
		}
	}
	return out, nil
}

// MemoryDraftStore keeps drafts in process memory.
type MemoryDraftStore struct {
	mu     sync.RWMutex
	drafts map[string]models.ReportDraft
}

func NewMemoryDraftStore() *MemoryDraftStore {
	return &MemoryDraftStore{drafts: make(map[string]models.ReportDraft)}
}

func (m *MemoryDraftStore) GetDraft(ctx context.Context, sessionID, studyUID string) (*models.ReportDraft, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.drafts[draftKey(sessionID, studyUID)]
	if !ok {
		return nil, nil
	}
	return &d, nil
}

func (m *MemoryDraftStore) SaveDraft(ctx context.Context, d *models.ReportDraft) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drafts[draftKey(d.SessionID, d.StudyInstanceUID)] = *d
	return nil
}

func (m *MemoryDraftStore) DeleteDraft(ctx context.Context, sessionID, studyUID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.drafts, draftKey(sessionID, studyUID))
	return nil
}
