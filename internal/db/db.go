package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"
)

const Schema = `CREATE TABLE IF NOT EXISTS report_submissions (
	id                  BIGSERIAL PRIMARY KEY,
	study_instance_uid  TEXT        NOT NULL,
	sop_instance_uid    TEXT        NOT NULL,
	series_instance_uid TEXT        NOT NULL,
	username            TEXT        NOT NULL,
	modalities          TEXT[]      NOT NULL DEFAULT '{}',
	status              TEXT        NOT NULL,
	http_status         INTEGER     NOT NULL DEFAULT 0,
	error               TEXT        NOT NULL DEFAULT '',
	submitted_at        TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS report_submissions_study_idx ON report_submissions (study_instance_uid, submitted_at DESC);`

type ReportSubmission struct {
	ID                int64
	StudyInstanceUID  string
	SOPInstanceUID    string
	SeriesInstanceUID string
	Username          string
	Modalities        []string
	Status            string
	HTTPStatus        int32
	Error             string
	SubmittedAt       time.Time
}

// Queries interface mimicking sqlc generated code
type Queries struct {
	db *sql.DB
}

func New(db *sql.DB) *Queries {
	return &Queries{db: db}
}

func (q *Queries) EnsureSchema(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, Schema)
	return err
}

const insertSubmission = `INSERT INTO report_submissions
	(study_instance_uid, sop_instance_uid, series_instance_uid, username, modalities, status, http_status, error, submitted_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	RETURNING id`

// InsertSubmission stores one attempt. A nil Modalities is written as '{}':
// pq.Array encodes nil as NULL, which the NOT NULL column rejects.
func (q *Queries) InsertSubmission(ctx context.Context, arg ReportSubmission) (int64, error) {
	if arg.Modalities == nil {
		arg.Modalities = []string{}
	}
	var id int64
	err := q.db.QueryRowContext(ctx, insertSubmission,
		arg.StudyInstanceUID, arg.SOPInstanceUID, arg.SeriesInstanceUID, arg.Username,
		pq.Array(arg.Modalities), arg.Status, arg.HTTPStatus, arg.Error, arg.SubmittedAt,
	).Scan(&id)
	return id, err
}

const listSubmissionsByStudy = `SELECT id, study_instance_uid, sop_instance_uid, series_instance_uid, username, modalities, status, http_status, error, submitted_at
	FROM report_submissions
	WHERE study_instance_uid = $1
	ORDER BY submitted_at DESC, id DESC`

func (q *Queries) ListSubmissionsByStudy(ctx context.Context, studyUID string) ([]ReportSubmission, error) {
	rows, err := q.db.QueryContext(ctx, listSubmissionsByStudy, studyUID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ReportSubmission
	for rows.Next() {
		var i ReportSubmission
		if err := rows.Scan(&i.ID, &i.StudyInstanceUID, &i.SOPInstanceUID, &i.SeriesInstanceUID, &i.Username,
			pq.Array(&i.Modalities), &i.Status, &i.HTTPStatus, &i.Error, &i.SubmittedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}
