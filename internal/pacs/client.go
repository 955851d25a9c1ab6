// Package pacs talks DICOMweb to the image archive: QIDO-RS study searches
// and STOW-RS storage of structured reports.
package pacs

import (
	"bytes"
	"context"
	"net/url"
	"strings"
	"time"

	"radiology-worklist/internal/models"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const (
	mediaDicomJSON = "application/dicom+json"
	studiesPath    = "/studies"
)

// ResultStatus distinguishes a successful search with matches from one
// without.
type ResultStatus int

const (
	StatusMatches ResultStatus = iota
	StatusNoResults
)

// StudyResult is the outcome of a successful QIDO-RS search.
type StudyResult struct {
	Studies []models.Study
	Status  ResultStatus
}

type Config struct {
	ArchiveRoot string        // e.g. https://pacs.example/dcm4chee-arc/aets/AE/rs
	ViewerRoot  string        // e.g. https://viewer.example
	Timeout     time.Duration // per request
}

// Client issues QIDO-RS and STOW-RS requests. It never retries and never
// caches.
type Client struct {
	http       *resty.Client
	viewerRoot string
	logger     *zap.Logger
}

func NewClient(cfg Config, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(cfg.ArchiveRoot, "/")).
		SetTimeout(timeout).
		SetRetryCount(0)

	return &Client{
		http:       httpClient,
		viewerRoot: strings.TrimRight(cfg.ViewerRoot, "/"),
		logger:     logger,
	}
}

// ViewerURL links a study into the external image viewer.
func (c *Client) ViewerURL(uid string) string {
	if c.viewerRoot == "" {
		return ""
	}
	return c.viewerRoot + "/Viewer/" + url.PathEscape(uid)
}

// QueryWorklist searches a date range, optionally restricted to modalities,
// requesting the worklist's optional columns.
func (c *Client) QueryWorklist(ctx context.Context, start, end time.Time, modalities []string) (*StudyResult, error) {
	return c.QueryStudies(ctx, StudyQuery{
		StartDate:     start,
		EndDate:       end,
		Modalities:    modalities,
		IncludeFields: WorklistIncludeFields,
	})
}

// QueryStudies runs a QIDO-RS study search. HTTP 204 and an empty array are
// both StatusNoResults; any other non-200 status is a *ServerError.
func (c *Client) QueryStudies(ctx context.Context, q StudyQuery) (*StudyResult, error) {
	const op = "query studies"

	body, err := c.get(ctx, op, q)
	if err != nil {
		return nil, err
	}
	if body == nil {
		return &StudyResult{Status: StatusNoResults}, nil
	}

	datasets, err := decodeResults(body)
	if err != nil {
		return nil, &ParseError{Op: op, Err: err}
	}
	studies := make([]models.Study, 0, len(datasets))
	for _, ds := range datasets {
		s, err := studyFromDataset(ds)
		if err != nil {
			return nil, &ParseError{Op: op, Err: err}
		}
		studies = append(studies, s)
	}
	if len(studies) == 0 {
		return &StudyResult{Status: StatusNoResults}, nil
	}
	return &StudyResult{Studies: studies, Status: StatusMatches}, nil
}

// QueryStudyByUID fetches one study with the extra attributes needed to
// write a report. Archives should return at most one match; the first wins.
func (c *Client) QueryStudyByUID(ctx context.Context, uid string) (*models.StudyDetail, error) {
	const op = "query study"

	body, err := c.get(ctx, op, StudyQuery{UID: uid, IncludeFields: DetailIncludeFields})
	if err != nil {
		return nil, err
	}
	if body == nil {
		return nil, ErrStudyNotFound
	}
	datasets, err := decodeResults(body)
	if err != nil {
		return nil, &ParseError{Op: op, Err: err}
	}
	if len(datasets) == 0 {
		return nil, ErrStudyNotFound
	}
	if len(datasets) > 1 {
		c.logger.Warn("archive returned several studies for one UID",
			zap.String("study_uid", uid),
			zap.Int("count", len(datasets)),
		)
	}
	s, err := studyFromDataset(datasets[0])
	if err != nil {
		return nil, &ParseError{Op: op, Err: err}
	}
	return &models.StudyDetail{Study: s, Attributes: datasets[0]}, nil
}

// get returns the body of a 200 response, nil for 204.
func (c *Client) get(ctx context.Context, op string, q StudyQuery) ([]byte, error) {
	path := studiesPath + "?" + q.Encode()
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Accept", mediaDicomJSON+", application/json").
		Get(path)
	if err != nil {
		c.logger.Error("QIDO-RS request failed",
			zap.String("op", op),
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, &TransportError{Op: op, Err: err}
	}

	c.logger.Info("QIDO-RS request",
		zap.String("op", op),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode()),
		zap.Duration("duration", resp.Time()),
	)

	switch resp.StatusCode() {
	case 200:
		if len(bytes.TrimSpace(resp.Body())) == 0 {
			return nil, nil
		}
		return resp.Body(), nil
	case 204:
		return nil, nil
	default:
		return nil, &ServerError{Op: op, StatusCode: resp.StatusCode()}
	}
}
