package report

import (
	"context"
	"errors"
	"fmt"
	"time"

	"radiology-worklist/internal/models"
	"radiology-worklist/internal/pacs"

	"go.uber.org/zap"
)

// Session is the caller's identity as far as reporting is concerned.
type Session struct {
	ID       string
	Username string
}

// Screen is what the reporting page shows for one study.
type Screen struct {
	Study   *models.StudyDetail
	Draft   string
	History []models.Submission
}

// Outcome describes one submission attempt.
type Outcome struct {
	Submission models.Submission
	Err        error
}

type Service struct {
	archive  Archive
	drafts   DraftStore
	log      SubmissionLog
	composer *Composer
	logger   *zap.Logger
	now      func() time.Time
}

func NewService(archive Archive, drafts DraftStore, log SubmissionLog, composer *Composer, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		archive:  archive,
		drafts:   drafts,
		log:      log,
		composer: composer,
		logger:   logger,
		now:      time.Now,
	}
}

// Open fetches the study with its draft and earlier submissions. Failing to
// read the draft or history is logged, not fatal.
func (s *Service) Open(ctx context.Context, sess Session, uid string) (*Screen, error) {
	study, err := s.archive.QueryStudyByUID(ctx, uid)
	if err != nil {
		return nil, err
	}
	screen := &Screen{Study: study}

	if d, err := s.drafts.GetDraft(ctx, sess.ID, uid); err != nil {
		s.logger.Warn("failed to load draft", zap.String("study_uid", uid), zap.Error(err))
	} else if d != nil {
		screen.Draft = d.Text
	}

	if h, err := s.log.ListSubmissions(ctx, uid); err != nil {
		s.logger.Warn("failed to load submission history", zap.String("study_uid", uid), zap.Error(err))
	} else {
		screen.History = h
	}
	return screen, nil
}

// SaveDraft stores the current report text.
func (s *Service) SaveDraft(ctx context.Context, sess Session, uid, text string) error {
	return s.drafts.SaveDraft(ctx, &models.ReportDraft{
		SessionID:        sess.ID,
		StudyInstanceUID: uid,
		Text:             text,
		UpdatedAt:        s.now(),
	})
}

// Discard drops the draft, e.g. when the user cancels.
func (s *Service) Discard(ctx context.Context, sess Session, uid string) error {
	return s.drafts.DeleteDraft(ctx, sess.ID, uid)
}

// History lists submissions for a study, newest first.
func (s *Service) History(ctx context.Context, uid string) ([]models.Submission, error) {
	return s.log.ListSubmissions(ctx, uid)
}

// Submit composes and stores a report. The draft is saved first and only
// cleared once the archive accepted the report, so a failure can be retried.
func (s *Service) Submit(ctx context.Context, sess Session, uid, text string) (*Outcome, error) {
	if err := (Request{StudyInstanceUID: uid, Text: text}).Validate(); err != nil {
		return nil, err
	}
	if err := s.SaveDraft(ctx, sess, uid, text); err != nil {
		s.logger.Warn("failed to save draft before submit", zap.String("study_uid", uid), zap.Error(err))
	}

	study, err := s.archive.QueryStudyByUID(ctx, uid)
	if err != nil {
		return nil, err
	}
	doc, err := s.composer.Compose(study, text)
	if err != nil {
		return nil, err
	}
	sop, series := UIDs(doc)

	sub := models.Submission{
		StudyInstanceUID:  uid,
		SOPInstanceUID:    sop,
		SeriesInstanceUID: series,
		Username:          sess.Username,
		Modalities:        study.ModalitiesInStudy,
		Status:            models.SubmissionSucceeded,
		SubmittedAt:       s.now(),
	}

	submitErr := s.archive.SubmitReport(ctx, doc)
	if submitErr != nil {
		sub.Status = models.SubmissionFailed
		sub.Error = submitErr.Error()
		var se *pacs.SubmissionError
		if errors.As(submitErr, &se) {
			sub.HTTPStatus = se.StatusCode()
		}
		s.logger.Error("report submission failed",
			zap.String("study_uid", uid),
			zap.String("sop_instance_uid", sop),
			zap.Error(submitErr),
		)
	} else {
		s.logger.Info("report submitted",
			zap.String("study_uid", uid),
			zap.String("sop_instance_uid", sop),
			zap.String("username", sess.Username),
		)
	}

	if err := s.log.RecordSubmission(ctx, &sub); err != nil {
		s.logger.Warn("failed to record submission", zap.String("sop_instance_uid", sop), zap.Error(err))
	}

	if submitErr != nil {
		return &Outcome{Submission: sub, Err: submitErr}, fmt.Errorf("submit report for %s: %w", uid, submitErr)
	}
	if err := s.drafts.DeleteDraft(ctx, sess.ID, uid); err != nil {
		s.logger.Warn("failed to clear draft", zap.String("study_uid", uid), zap.Error(err))
	}
	return &Outcome{Submission: sub}, nil
}
