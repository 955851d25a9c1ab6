// Package report builds Basic Text SR documents for a study and runs the
// reporting workflow around them.
package report

import (
	"strings"
	"time"

	"radiology-worklist/internal/dicomjson"
	"radiology-worklist/internal/models"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/suyashkumar/dicom/pkg/tag"
)

// BasicTextSRStorage is the SOP Class UID of every composed report.
const BasicTextSRStorage = "1.2.840.10008.5.1.4.1.1.88.11"

// attrType is the DICOM attribute type of a copied element.
type attrType int

const (
	type1 attrType = iota + 1 // present, non-empty
	type2                     // present, may be empty
)

type attribute struct {
	tag  tag.Tag
	vr   string
	kind attrType
}

// copied lists the source study attributes carried into the report.
var copied = []attribute{
	{tag.PatientName, dicomjson.VR_PN, type2},
	{tag.PatientID, dicomjson.VR_LO, type2},
	{tag.PatientBirthDate, dicomjson.VR_DA, type2},
	{tag.PatientSex, dicomjson.VR_CS, type2},
	{tag.StudyInstanceUID, dicomjson.VR_UI, type1},
	{tag.StudyDate, dicomjson.VR_DA, type2},
	{tag.StudyTime, dicomjson.VR_TM, type2},
	{tag.AccessionNumber, dicomjson.VR_SH, type2},
	{tag.ReferringPhysicianName, dicomjson.VR_PN, type2},
	{tag.StudyID, dicomjson.VR_SH, type2},
	{tag.Manufacturer, dicomjson.VR_LO, type2},
}

// Observer identifies who verifies reports in this deployment.
type Observer struct {
	Organization string
	Name         string
}

// Request is what the composer needs from the reporting screen.
type Request struct {
	StudyInstanceUID string
	Text             string
}

func (r Request) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.StudyInstanceUID, validation.Required, validation.Length(1, 64)),
		validation.Field(&r.Text, validation.Required, validation.By(notBlank)),
	)
}

func notBlank(v interface{}) error {
	if s, _ := v.(string); strings.TrimSpace(s) == "" {
		return validation.ErrRequired
	}
	return nil
}

// Composer builds report documents. UIDs are fresh for every call.
type Composer struct {
	observer Observer
	now      func() time.Time
	newUID   func() string
}

func NewComposer(observer Observer) *Composer {
	return &Composer{observer: observer, now: time.Now, newUID: dicomjson.NewUID}
}

// Compose builds a Basic Text SR for study holding text. Missing Type 2
// attributes of the source become empty elements.
func (c *Composer) Compose(study *models.StudyDetail, text string) (dicomjson.Dataset, error) {
	var uid string
	if study != nil {
		uid = study.StudyInstanceUID
	}
	if err := (Request{StudyInstanceUID: uid, Text: text}).Validate(); err != nil {
		return nil, err
	}

	src := sourceOf(study)
	now := c.now()

	doc := dicomjson.Dataset{}
	doc.Put(tag.SOPClassUID, dicomjson.VR_UI, BasicTextSRStorage)
	doc.Put(tag.SOPInstanceUID, dicomjson.VR_UI, c.newUID())
	doc.Put(tag.SeriesInstanceUID, dicomjson.VR_UI, c.newUID())
	doc.Put(tag.Modality, dicomjson.VR_CS, "SR")
	doc.Put(tag.SeriesNumber, dicomjson.VR_IS, "1")
	doc.Put(tag.InstanceNumber, dicomjson.VR_IS, "1")

	for _, a := range copied {
		if el, ok := src.Get(a.tag); ok {
			doc.PutElement(a.tag, el)
			continue
		}
		doc.PutEmpty(a.tag, a.vr)
	}
	// The report must link to exactly the requested study.
	doc.Put(tag.StudyInstanceUID, dicomjson.VR_UI, uid)

	doc.Put(tag.ContentDate, dicomjson.VR_DA, dicomjson.FormatDA(now))
	doc.Put(tag.ContentTime, dicomjson.VR_TM, dicomjson.ClockTM(now))

	observer := dicomjson.Dataset{}
	observer.Put(tag.VerifyingOrganization, dicomjson.VR_LO, c.observer.Organization)
	observer.Put(tag.VerificationDateTime, dicomjson.VR_DT, dicomjson.FormatDT(now))
	observer.Put(tag.VerifyingObserverName, dicomjson.VR_PN, c.observer.Name)
	observer.PutSequence(tag.VerifyingObserverIdentificationCodeSequence)
	doc.PutSequence(tag.VerifyingObserverSequence, observer)

	doc.Put(tag.CompletionFlag, dicomjson.VR_CS, "COMPLETE")
	doc.Put(tag.VerificationFlag, dicomjson.VR_CS, "VERIFIED")

	title := dicomjson.Dataset{}
	title.Put(tag.CodeValue, dicomjson.VR_SH, "18748-4")
	title.Put(tag.CodingSchemeDesignator, dicomjson.VR_SH, "LN")
	title.Put(tag.CodeMeaning, dicomjson.VR_LO, "Diagnostic Imaging Report")
	doc.Put(tag.ValueType, dicomjson.VR_CS, "CONTAINER")
	doc.PutSequence(tag.ConceptNameCodeSequence, title)
	doc.Put(tag.ContinuityOfContent, dicomjson.VR_CS, "SEPARATE")

	body := dicomjson.Dataset{}
	body.Put(tag.RelationshipType, dicomjson.VR_CS, "CONTAINS")
	body.Put(tag.ValueType, dicomjson.VR_CS, "TEXT")
	body.Put(tag.TextValue, dicomjson.VR_UT, text)
	body.Put(tag.ContinuityOfContent, dicomjson.VR_CS, "SEPARATE")
	doc.PutSequence(tag.ContentSequence, body)

	return doc, nil
}

// sourceOf returns the archive's elements for study, or rebuilds the core
// ones from the parsed fields when the study did not come from a QIDO fetch.
func sourceOf(study *models.StudyDetail) dicomjson.Dataset {
	if study.Attributes != nil {
		return study.Attributes
	}
	ds := dicomjson.Dataset{}
	if study.PatientName != "" {
		ds.Put(tag.PatientName, dicomjson.VR_PN, study.PatientName)
	}
	if study.PatientID != "" {
		ds.Put(tag.PatientID, dicomjson.VR_LO, study.PatientID)
	}
	if study.AccessionNumber != "" {
		ds.Put(tag.AccessionNumber, dicomjson.VR_SH, study.AccessionNumber)
	}
	if !study.StudyDate.IsZero() {
		ds.Put(tag.StudyDate, dicomjson.VR_DA, dicomjson.FormatDA(study.StudyDate))
		ds.Put(tag.StudyTime, dicomjson.VR_TM, dicomjson.FormatTM(study.StudyTime))
	}
	return ds
}

// UIDs returns the SOP and series instance UIDs of a composed document.
func UIDs(doc dicomjson.Dataset) (sop, series string) {
	sop, _ = doc.String(tag.SOPInstanceUID)
	series, _ = doc.String(tag.SeriesInstanceUID)
	return sop, series
}
