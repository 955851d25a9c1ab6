package pacs

import (
	"encoding/json"
	"errors"
	"fmt"

	"radiology-worklist/internal/dicomjson"
	"radiology-worklist/internal/models"

	"github.com/suyashkumar/dicom/pkg/tag"
)

var errMissingUID = errors.New("result without StudyInstanceUID")

// decodeResults parses a QIDO-RS JSON body into datasets.
func decodeResults(body []byte) ([]dicomjson.Dataset, error) {
	var results []dicomjson.Dataset
	if err := json.Unmarshal(body, &results); err != nil {
		return nil, err
	}
	return results, nil
}

// studyFromDataset maps one result to a worklist row. Only the
// StudyInstanceUID is mandatory; optional attributes stay nil when absent
// and a malformed date or time is a parse failure.
func studyFromDataset(ds dicomjson.Dataset) (models.Study, error) {
	var s models.Study

	uid, _ := ds.String(tag.StudyInstanceUID)
	if uid == "" {
		return s, errMissingUID
	}
	s.StudyInstanceUID = uid
	s.PatientID, _ = ds.String(tag.PatientID)
	s.PatientName, _ = ds.String(tag.PatientName)
	s.AccessionNumber, _ = ds.String(tag.AccessionNumber)
	s.ModalitiesInStudy = ds.Strings(tag.ModalitiesInStudy)

	if v, ok := ds.String(tag.StudyDescription); ok {
		s.StudyDescription = &v
	}
	if v, ok := ds.String(tag.SourceApplicationEntityTitle); ok {
		s.SourceAETitle = &v
	}

	if v, _ := ds.String(tag.StudyDate); v != "" {
		d, err := dicomjson.ParseDA(v)
		if err != nil {
			return s, fmt.Errorf("study %s: %w", uid, err)
		}
		s.StudyDate = d
	}
	if v, _ := ds.String(tag.StudyTime); v != "" {
		d, err := dicomjson.ParseTM(v)
		if err != nil {
			return s, fmt.Errorf("study %s: %w", uid, err)
		}
		s.StudyTime = d
	}
	return s, nil
}
