package store

import (
	"context"
	"database/sql"
	"fmt"

	"radiology-worklist/internal/db"
	"radiology-worklist/internal/models"
)

// PostgresSubmissionLog keeps the report submission history in Postgres.
type PostgresSubmissionLog struct {
	q *db.Queries
}

func NewPostgresSubmissionLog(conn *sql.DB) *PostgresSubmissionLog {
	return &PostgresSubmissionLog{q: db.New(conn)}
}

// OpenPostgres connects, pings and creates the schema. The "postgres"
// driver is registered by the lib/pq import in package db.
func OpenPostgres(ctx context.Context, url string) (*sql.DB, error) {
	conn, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := db.New(conn).EnsureSchema(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return conn, nil
}

func (s *PostgresSubmissionLog) RecordSubmission(ctx context.Context, sub *models.Submission) error {
	id, err := s.q.InsertSubmission(ctx, db.ReportSubmission{
		StudyInstanceUID:  sub.StudyInstanceUID,
		SOPInstanceUID:    sub.SOPInstanceUID,
		SeriesInstanceUID: sub.SeriesInstanceUID,
		Username:          sub.Username,
		Modalities:        sub.Modalities,
		Status:            sub.Status,
		HTTPStatus:        int32(sub.HTTPStatus),
		Error:             sub.Error,
		SubmittedAt:       sub.SubmittedAt,
	})
	if err != nil {
		return fmt.Errorf("record submission %s: %w", sub.SOPInstanceUID, err)
	}
	sub.ID = id
	return nil
}

func (s *PostgresSubmissionLog) ListSubmissions(ctx context.Context, studyUID string) ([]models.Submission, error) {
	rows, err := s.q.ListSubmissionsByStudy(ctx, studyUID)
	if err != nil {
		return nil, fmt.Errorf("list submissions for %s: %w", studyUID, err)
	}
	out := make([]models.Submission, 0, len(rows))
	for _, r := range rows {
		out = append(out, models.Submission{
			ID:                r.ID,
			StudyInstanceUID:  r.StudyInstanceUID,
			SOPInstanceUID:    r.SOPInstanceUID,
			SeriesInstanceUID: r.SeriesInstanceUID,
			Username:          r.Username,
			Modalities:        r.Modalities,
			Status:            r.Status,
			HTTPStatus:        int(r.HTTPStatus),
			Error:             r.Error,
			SubmittedAt:       r.SubmittedAt,
		})
	}
	return out, nil
}
