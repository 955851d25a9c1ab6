package report

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"radiology-worklist/internal/dicomjson"
	"radiology-worklist/internal/models"
	"radiology-worklist/internal/pacs"

	"github.com/suyashkumar/dicom/pkg/tag"
)

func sampleDetail(uid string) *models.StudyDetail {
	attrs := dicomjson.Dataset{}
	attrs.Put(tag.StudyInstanceUID, dicomjson.VR_UI, uid)
	attrs.Put(tag.PatientName, dicomjson.VR_PN, "SMITH^JOHN")
	attrs.Put(tag.PatientID, dicomjson.VR_LO, "P001")
	attrs.Put(tag.AccessionNumber, dicomjson.VR_SH, "ACC1")
	attrs.Put(tag.StudyDate, dicomjson.VR_DA, "20240601")
	attrs.Put(tag.StudyTime, dicomjson.VR_TM, "101500")
	attrs.Put(tag.PatientSex, dicomjson.VR_CS, "M")
	attrs.Put(tag.StudyID, dicomjson.VR_SH, "42")

	return &models.StudyDetail{
		Study: models.Study{
			StudyInstanceUID:  uid,
			PatientID:         "P001",
			PatientName:       "SMITH^JOHN",
			AccessionNumber:   "ACC1",
			ModalitiesInStudy: []string{"CT"},
		},
		Attributes: attrs,
	}
}

func testComposer() *Composer {
	c := NewComposer(Observer{Organization: "General Hospital", Name: "DR^REPORTER"})
	c.now = func() time.Time { return time.Date(2024, 6, 10, 14, 30, 5, 0, time.UTC) }
	return c
}

func TestCompose_PreservesStudyInstanceUID(t *testing.T) {
	doc, err := testComposer().Compose(sampleDetail("1.2.840.X"), "Normal study.")
	if err != nil {
		t.Fatalf("Compose() error = %v", err)
	}
	if got, _ := doc.String(tag.StudyInstanceUID); got != "1.2.840.X" {
		t.Errorf("StudyInstanceUID = %q", got)
	}
	if got, _ := doc.String(tag.Modality); got != "SR" {
		t.Errorf("Modality = %q", got)
	}
	if got, _ := doc.String(tag.SOPClassUID); got != BasicTextSRStorage {
		t.Errorf("SOPClassUID = %q", got)
	}
	if got, _ := doc.String(tag.PatientName); got != "SMITH^JOHN" {
		t.Errorf("PatientName = %q", got)
	}
}

func TestCompose_FreshValidUIDs(t *testing.T) {
	c := testComposer()
	study := sampleDetail("1.2.3.4")

	a, err := c.Compose(study, "one")
	if err != nil {
		t.Fatal(err)
	}
	b, err := c.Compose(study, "one")
	if err != nil {
		t.Fatal(err)
	}

	sopA, seriesA := UIDs(a)
	sopB, seriesB := UIDs(b)
	for _, uid := range []string{sopA, seriesA, sopB, seriesB} {
		if !strings.HasPrefix(uid, "2.25.") || !dicomjson.ValidUID(uid) {
			t.Errorf("invalid UID %q", uid)
		}
	}
	if sopA == sopB || seriesA == seriesB || sopA == seriesA {
		t.Errorf("UIDs not distinct: %s %s %s %s", sopA, seriesA, sopB, seriesB)
	}
}

func TestCompose_MissingOptionalAttributes(t *testing.T) {
	doc, err := testComposer().Compose(sampleDetail("1.2.3.4"), "text")
	if err != nil {
		t.Fatalf("Compose() error = %v", err)
	}

	for _, tc := range []struct {
		tag tag.Tag
		vr  string
	}{
		{tag.Manufacturer, dicomjson.VR_LO},
		{tag.PatientBirthDate, dicomjson.VR_DA},
		{tag.ReferringPhysicianName, dicomjson.VR_PN},
	} {
		el, ok := doc.Get(tc.tag)
		if !ok {
			t.Errorf("%s omitted, want empty element", dicomjson.Keyword(tc.tag))
			continue
		}
		if el.VR != tc.vr || !el.IsEmpty() {
			t.Errorf("%s = %+v, want empty %s", dicomjson.Keyword(tc.tag), el, tc.vr)
		}
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(raw), `"00080070":{"vr":"LO"}`) {
		t.Errorf("Manufacturer not encoded as empty element: %s", raw)
	}
}

func TestCompose_WithoutArchiveAttributes(t *testing.T) {
	study := sampleDetail("1.2.3.4")
	study.Attributes = nil
	study.StudyDate = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	doc, err := testComposer().Compose(study, "text")
	if err != nil {
		t.Fatal(err)
	}
	if got, _ := doc.String(tag.PatientID); got != "P001" {
		t.Errorf("PatientID = %q", got)
	}
	if got, _ := doc.String(tag.StudyDate); got != "20240601" {
		t.Errorf("StudyDate = %q", got)
	}
	if _, ok := doc.Get(tag.PatientSex); !ok {
		t.Error("PatientSex omitted")
	}
}

func TestCompose_ContentAndVerification(t *testing.T) {
	doc, err := testComposer().Compose(sampleDetail("1.2.3.4"), "Normal study.")
	if err != nil {
		t.Fatal(err)
	}

	want := map[tag.Tag]string{
		tag.ContentDate:      "20240610",
		tag.ContentTime:      "143005",
		tag.CompletionFlag:   "COMPLETE",
		tag.VerificationFlag: "VERIFIED",
		tag.SeriesNumber:     "1",
		tag.InstanceNumber:   "1",
	}
	for tg, v := range want {
		if got, _ := doc.String(tg); got != v {
			t.Errorf("%s = %q, want %q", dicomjson.Keyword(tg), got, v)
		}
	}

	observers := doc.Items(tag.VerifyingObserverSequence)
	if len(observers) != 1 {
		t.Fatalf("VerifyingObserverSequence has %d items", len(observers))
	}
	obs := observers[0]
	if got, _ := obs.String(tag.VerifyingOrganization); got != "General Hospital" {
		t.Errorf("VerifyingOrganization = %q", got)
	}
	if got, _ := obs.String(tag.VerifyingObserverName); got != "DR^REPORTER" {
		t.Errorf("VerifyingObserverName = %q", got)
	}
	if got, _ := obs.String(tag.VerificationDateTime); got != "20240610143005" {
		t.Errorf("VerificationDateTime = %q", got)
	}
	if !obs.Has(tag.VerifyingObserverIdentificationCodeSequence) {
		t.Error("VerifyingObserverIdentificationCodeSequence missing")
	}

	items := doc.Items(tag.ContentSequence)
	if len(items) != 1 {
		t.Fatalf("ContentSequence has %d items", len(items))
	}
	for tg, v := range map[tag.Tag]string{
		tag.RelationshipType:    "CONTAINS",
		tag.ValueType:           "TEXT",
		tag.TextValue:           "Normal study.",
		tag.ContinuityOfContent: "SEPARATE",
	} {
		if got, _ := items[0].String(tg); got != v {
			t.Errorf("content %s = %q, want %q", dicomjson.Keyword(tg), got, v)
		}
	}
}

func TestCompose_Validation(t *testing.T) {
	c := testComposer()
	if _, err := c.Compose(sampleDetail("1.2.3"), "   "); err == nil {
		t.Error("blank report text accepted")
	}
	if _, err := c.Compose(sampleDetail(""), "text"); err == nil {
		t.Error("empty StudyInstanceUID accepted")
	}
	if _, err := c.Compose(sampleDetail(strings.Repeat("1", 65)), "text"); err == nil {
		t.Error("overlong StudyInstanceUID accepted")
	}
	if _, err := c.Compose(nil, "text"); err == nil {
		t.Error("nil study accepted")
	}
}

func newService(archive *MockArchive, drafts *MockDraftStore, log *MockSubmissionLog) *Service {
	s := NewService(archive, drafts, log, testComposer(), nil)
	s.now = func() time.Time { return time.Date(2024, 6, 10, 14, 30, 5, 0, time.UTC) }
	return s
}

func TestService_SubmitSuccess(t *testing.T) {
	var submitted dicomjson.Dataset
	archive := &MockArchive{
		QueryStudyByUIDFunc: func(ctx context.Context, uid string) (*models.StudyDetail, error) {
			return sampleDetail(uid), nil
		},
		SubmitReportFunc: func(ctx context.Context, doc dicomjson.Dataset) error {
			submitted = doc
			return nil
		},
	}
	drafts := &MockDraftStore{}
	log := &MockSubmissionLog{}
	svc := newService(archive, drafts, log)
	sess := Session{ID: "s1", Username: "rad"}

	out, err := svc.Submit(context.Background(), sess, "1.2.840.X", "Normal study.")
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if submitted == nil {
		t.Fatal("nothing submitted")
	}
	if out.Submission.Status != models.SubmissionSucceeded || out.Submission.Username != "rad" {
		t.Errorf("submission = %+v", out.Submission)
	}
	if len(log.Recorded) != 1 {
		t.Fatalf("recorded %d submissions", len(log.Recorded))
	}
	sop, _ := UIDs(submitted)
	if log.Recorded[0].SOPInstanceUID != sop {
		t.Errorf("logged SOP UID %q, submitted %q", log.Recorded[0].SOPInstanceUID, sop)
	}
	if d, _ := drafts.GetDraft(context.Background(), "s1", "1.2.840.X"); d != nil {
		t.Error("draft kept after successful submit")
	}
}

func TestService_SubmitFailureKeepsDraft(t *testing.T) {
	archive := &MockArchive{
		QueryStudyByUIDFunc: func(ctx context.Context, uid string) (*models.StudyDetail, error) {
			return sampleDetail(uid), nil
		},
		SubmitReportFunc: func(ctx context.Context, doc dicomjson.Dataset) error {
			sop, _ := UIDs(doc)
			return &pacs.SubmissionError{SOPInstanceUID: sop, Err: &pacs.ServerError{Op: "store report", StatusCode: 409}}
		},
	}
	drafts := &MockDraftStore{}
	log := &MockSubmissionLog{}
	svc := newService(archive, drafts, log)
	sess := Session{ID: "s1", Username: "rad"}

	out, err := svc.Submit(context.Background(), sess, "1.2.3", "Findings.")
	var se *pacs.SubmissionError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want SubmissionError", err)
	}
	if out == nil || out.Submission.Status != models.SubmissionFailed || out.Submission.HTTPStatus != 409 {
		t.Errorf("outcome = %+v", out)
	}
	d, _ := drafts.GetDraft(context.Background(), "s1", "1.2.3")
	if d == nil || d.Text != "Findings." {
		t.Errorf("draft = %+v, want kept", d)
	}
	if len(log.Recorded) != 1 || log.Recorded[0].Status != models.SubmissionFailed {
		t.Errorf("recorded = %+v", log.Recorded)
	}
}

func TestService_SubmitStudyLookupFails(t *testing.T) {
	archive := &MockArchive{
		QueryStudyByUIDFunc: func(ctx context.Context, uid string) (*models.StudyDetail, error) {
			return nil, pacs.ErrStudyNotFound
		},
		SubmitReportFunc: func(ctx context.Context, doc dicomjson.Dataset) error {
			t.Fatal("submit must not be called")
			return nil
		},
	}
	svc := newService(archive, &MockDraftStore{}, &MockSubmissionLog{})
	_, err := svc.Submit(context.Background(), Session{ID: "s1"}, "1.2.3", "x")
	if !errors.Is(err, pacs.ErrStudyNotFound) {
		t.Errorf("err = %v", err)
	}
}

func TestService_SubmitRejectsEmptyText(t *testing.T) {
	archive := &MockArchive{}
	svc := newService(archive, &MockDraftStore{}, &MockSubmissionLog{})
	if _, err := svc.Submit(context.Background(), Session{ID: "s1"}, "1.2.3", ""); err == nil {
		t.Error("empty report accepted")
	}
}

func TestService_OpenAndDrafts(t *testing.T) {
	archive := &MockArchive{
		QueryStudyByUIDFunc: func(ctx context.Context, uid string) (*models.StudyDetail, error) {
			return sampleDetail(uid), nil
		},
	}
	drafts := &MockDraftStore{}
	log := &MockSubmissionLog{Recorded: []models.Submission{
		{StudyInstanceUID: "1.2.3", Status: models.SubmissionFailed},
		{StudyInstanceUID: "9.9", Status: models.SubmissionSucceeded},
	}}
	svc := newService(archive, drafts, log)
	sess := Session{ID: "s1"}
	ctx := context.Background()

	if err := svc.SaveDraft(ctx, sess, "1.2.3", "partial"); err != nil {
		t.Fatal(err)
	}
	screen, err := svc.Open(ctx, sess, "1.2.3")
	if err != nil {
		t.Fatal(err)
	}
	if screen.Draft != "partial" || len(screen.History) != 1 || screen.Study.StudyInstanceUID != "1.2.3" {
		t.Errorf("screen = %+v", screen)
	}

	other, _ := svc.Open(ctx, Session{ID: "s2"}, "1.2.3")
	if other.Draft != "" {
		t.Error("draft leaked across sessions")
	}

	if err := svc.Discard(ctx, sess, "1.2.3"); err != nil {
		t.Fatal(err)
	}
	screen, _ = svc.Open(ctx, sess, "1.2.3")
	if screen.Draft != "" {
		t.Error("draft survived Discard")
	}
}

func TestService_OpenToleratesDraftStoreFailure(t *testing.T) {
	archive := &MockArchive{
		QueryStudyByUIDFunc: func(ctx context.Context, uid string) (*models.StudyDetail, error) {
			return sampleDetail(uid), nil
		},
	}
	drafts := &MockDraftStore{GetDraftFunc: func(ctx context.Context, sessionID, studyUID string) (*models.ReportDraft, error) {
		return nil, errors.New("redis down")
	}}
	svc := newService(archive, drafts, &MockSubmissionLog{})
	screen, err := svc.Open(context.Background(), Session{ID: "s1"}, "1.2.3")
	if err != nil || screen == nil {
		t.Fatalf("Open() = %v, %v", screen, err)
	}
}
