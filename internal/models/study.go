package models

import (
	"slices"
	"strings"
	"time"

	"radiology-worklist/internal/dicomjson"

	"github.com/suyashkumar/dicom/pkg/tag"
)

// Study is one worklist row, parsed from a QIDO-RS study result.
type Study struct {
	StudyInstanceUID  string        `json:"study_instance_uid"`
	PatientID         string        `json:"patient_id"`
	PatientName       string        `json:"patient_name"` // caret separated, e.g. SMITH^JOHN
	AccessionNumber   string        `json:"accession_number"`
	ModalitiesInStudy []string      `json:"modalities_in_study"`
	StudyDescription  *string       `json:"study_description"`
	SourceAETitle     *string       `json:"source_ae_title"`
	StudyDate         time.Time     `json:"study_date"`
	StudyTime         time.Duration `json:"study_time"`
}

// DisplayName returns the patient name with carets replaced by spaces.
func (s *Study) DisplayName() string {
	return strings.TrimSpace(strings.ReplaceAll(s.PatientName, "^", " "))
}

// HasModality reports exact membership of code in the modality set.
func (s *Study) HasModality(code string) bool {
	return slices.Contains(s.ModalitiesInStudy, code)
}

// IsStructuredReport is true for studies that already hold an SR.
func (s *Study) IsStructuredReport() bool {
	return s.HasModality("SR")
}

func (s *Study) Modalities() string {
	return strings.Join(s.ModalitiesInStudy, ", ")
}

func (s *Study) Description() string {
	if s.StudyDescription == nil {
		return ""
	}
	return *s.StudyDescription
}

func (s *Study) SourceAE() string {
	if s.SourceAETitle == nil {
		return ""
	}
	return *s.SourceAETitle
}

// DisplayDateTime renders "2006-01-02 15:04:05", or "" for a study without
// a date.
func (s *Study) DisplayDateTime() string {
	if s.StudyDate.IsZero() {
		return ""
	}
	return s.StudyDate.Add(s.StudyTime.Truncate(time.Second)).Format("2006-01-02 15:04:05")
}

// StudyDetail is a study fetched for reporting. Attributes keeps the
// archive's elements so they can be copied into a report verbatim.
type StudyDetail struct {
	Study
	Attributes dicomjson.Dataset `json:"-"`
}

func (d *StudyDetail) lookup(t tag.Tag) (string, bool) {
	if d.Attributes == nil {
		return "", false
	}
	return d.Attributes.String(t)
}

func (d *StudyDetail) StudyID() (string, bool)          { return d.lookup(tag.StudyID) }
func (d *StudyDetail) PatientBirthDate() (string, bool) { return d.lookup(tag.PatientBirthDate) }
func (d *StudyDetail) PatientSex() (string, bool)       { return d.lookup(tag.PatientSex) }
func (d *StudyDetail) Manufacturer() (string, bool)     { return d.lookup(tag.Manufacturer) }
func (d *StudyDetail) ReferringPhysicianName() (string, bool) {
	return d.lookup(tag.ReferringPhysicianName)
}
