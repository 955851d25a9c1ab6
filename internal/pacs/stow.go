package pacs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/textproto"

	"radiology-worklist/internal/dicomjson"

	"github.com/suyashkumar/dicom/pkg/tag"
	"go.uber.org/zap"
)

// Boundary is the fixed multipart boundary of STOW-RS submissions.
const Boundary = "myboundary"

// StowContentType is the request Content-Type of a JSON STOW-RS submission.
const StowContentType = `multipart/related; type="application/dicom+json"; boundary=` + Boundary

// EncodeStowBody wraps docs in a single-part multipart/related payload whose
// part is a DICOM JSON array.
func EncodeStowBody(docs ...dicomjson.Dataset) ([]byte, error) {
	payload, err := json.Marshal(docs)
	if err != nil {
		return nil, fmt.Errorf("encode dicom json: %w", err)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.SetBoundary(Boundary); err != nil {
		return nil, err
	}
	part, err := mw.CreatePart(textproto.MIMEHeader{"Content-Type": {mediaDicomJSON}})
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(payload); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// SubmitReport stores one report with STOW-RS. Any non-2xx status is a
// failure; nothing is retried.
func (c *Client) SubmitReport(ctx context.Context, doc dicomjson.Dataset) error {
	const op = "store report"
	sopUID, _ := doc.String(tag.SOPInstanceUID)

	body, err := EncodeStowBody(doc)
	if err != nil {
		return &SubmissionError{SOPInstanceUID: sopUID, Err: err}
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", StowContentType).
		SetHeader("Accept", mediaDicomJSON+", application/json").
		SetBody(body).
		Post(studiesPath)
	if err != nil {
		c.logger.Error("STOW-RS request failed",
			zap.String("sop_instance_uid", sopUID),
			zap.Error(err),
		)
		return &SubmissionError{SOPInstanceUID: sopUID, Err: &TransportError{Op: op, Err: err}}
	}

	c.logger.Info("STOW-RS request",
		zap.String("sop_instance_uid", sopUID),
		zap.Int("status", resp.StatusCode()),
		zap.Duration("duration", resp.Time()),
	)

	if resp.StatusCode() < 200 || resp.StatusCode() > 299 {
		return &SubmissionError{SOPInstanceUID: sopUID, Err: &ServerError{Op: op, StatusCode: resp.StatusCode()}}
	}
	return nil
}
