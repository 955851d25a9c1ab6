package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"radiology-worklist/internal/models"
	"radiology-worklist/internal/pacs"
	"radiology-worklist/internal/report"
	"radiology-worklist/internal/session"
	"radiology-worklist/internal/store"
	"radiology-worklist/internal/worklist"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	testSecret = "0123456789abcdef0123456789abcdef"

	doctorUser      = "doctor"
	doctorPass      = "doctor-pass"
	radiologistUser = "radiologist"
	radiologistPass = "radiologist-pass"
)

// worklistResults holds one already-reported CT study and one MR study.
const worklistResults = `[
  {
    "0020000D": {"vr": "UI", "Value": ["1.2.3.1"]},
    "00100020": {"vr": "LO", "Value": ["P001"]},
    "00100010": {"vr": "PN", "Value": [{"Alphabetic": "SMITH^JOHN"}]},
    "00080050": {"vr": "SH", "Value": ["ACC1"]},
    "00080061": {"vr": "CS", "Value": ["CT", "SR"]},
    "00081030": {"vr": "LO", "Value": ["CT HEAD"]},
    "00020016": {"vr": "AE", "Value": ["SCANNER1"]},
    "00080020": {"vr": "DA", "Value": ["20240610"]},
    "00080030": {"vr": "TM", "Value": ["101500"]}
  },
  {
    "0020000D": {"vr": "UI", "Value": ["1.2.3.2"]},
    "00100020": {"vr": "LO", "Value": ["P002"]},
    "00100010": {"vr": "PN", "Value": [{"Alphabetic": "DOE^JANE"}]},
    "00080050": {"vr": "SH", "Value": ["ACC2"]},
    "00080061": {"vr": "CS", "Value": ["MR"]},
    "00080020": {"vr": "DA", "Value": ["20240610"]},
    "00080030": {"vr": "TM", "Value": ["083000"]}
  }
]`

const studyDetail = `[
  {
    "0020000D": {"vr": "UI", "Value": ["1.2.3.2"]},
    "00100020": {"vr": "LO", "Value": ["P002"]},
    "00100010": {"vr": "PN", "Value": [{"Alphabetic": "DOE^JANE"}]},
    "00080050": {"vr": "SH", "Value": ["ACC2"]},
    "00080061": {"vr": "CS", "Value": ["MR"]},
    "00080020": {"vr": "DA", "Value": ["20240610"]},
    "00080030": {"vr": "TM", "Value": ["083000"]},
    "00100030": {"vr": "DA", "Value": ["19700101"]},
    "00100040": {"vr": "CS", "Value": ["F"]}
  }
]`

// fakeArchive answers QIDO-RS searches from fixed JSON and records STOW-RS
// bodies.
type fakeArchive struct {
	mu          sync.Mutex
	results     string
	searchCode  int
	storeCode   int
	searches    []string
	stored      [][]byte
	contentType string
}

func newFakeArchive() *fakeArchive {
	return &fakeArchive{results: worklistResults, searchCode: http.StatusOK, storeCode: http.StatusOK}
}

func (f *fakeArchive) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if r.URL.Path != "/rs/studies" {
		http.NotFound(w, r)
		return
	}
	switch r.Method {
	case http.MethodGet:
		if uid := r.URL.Query().Get("StudyInstanceUID"); uid != "" {
			if uid != "1.2.3.2" {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			w.Header().Set("Content-Type", "application/dicom+json")
			io.WriteString(w, studyDetail)
			return
		}
		f.searches = append(f.searches, r.URL.RawQuery)
		if f.searchCode != http.StatusOK {
			w.WriteHeader(f.searchCode)
			return
		}
		w.Header().Set("Content-Type", "application/dicom+json")
		io.WriteString(w, f.results)
	case http.MethodPost:
		body, _ := io.ReadAll(r.Body)
		f.stored = append(f.stored, body)
		f.contentType = r.Header.Get("Content-Type")
		w.WriteHeader(f.storeCode)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (f *fakeArchive) set(fn func(f *fakeArchive)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func (f *fakeArchive) lastSearch() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.searches) == 0 {
		return ""
	}
	return f.searches[len(f.searches)-1]
}

func (f *fakeArchive) searchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.searches)
}

func (f *fakeArchive) storedBodies() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.stored...)
}

func (f *fakeArchive) storedContentType() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.contentType
}

type testEnv struct {
	ts      *httptest.Server
	archive *fakeArchive
}

func testAccounts(t *testing.T) []session.Account {
	t.Helper()
	hash := func(p string) []byte {
		b, err := bcrypt.GenerateFromPassword([]byte(p), bcrypt.MinCost)
		if err != nil {
			t.Fatal(err)
		}
		return b
	}
	return []session.Account{
		{Username: doctorUser, Role: session.RoleDoctor, Hash: hash(doctorPass)},
		{Username: radiologistUser, Role: session.RoleRadiologist, Hash: hash(radiologistPass)},
	}
}

// testToday is the fixed "now" of every worklist view under test.
var testToday = time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	fa := newFakeArchive()
	archiveSrv := httptest.NewServer(fa)
	t.Cleanup(archiveSrv.Close)

	logger := zap.NewNop()
	archive := pacs.NewClient(pacs.Config{
		ArchiveRoot: archiveSrv.URL + "/rs",
		ViewerRoot:  "https://viewer.test",
		Timeout:     5 * time.Second,
	}, logger)
	mods := models.DefaultModalities

	srv := &server{
		logger:  logger,
		render:  newRenderer("ui/templates", logger),
		archive: archive,
		views: worklist.NewRegistry(func() *worklist.View {
			return worklist.NewView(archive, worklist.ViewConfig{
				Modalities: mods,
				Location:   time.UTC,
				Now:        func() time.Time { return testToday },
			}, logger)
		}, time.Hour, logger),
		reports: report.NewService(archive, store.NewMemoryDraftStore(), store.NewMemorySubmissionLog(),
			report.NewComposer(report.Observer{Organization: "Test Hospital", Name: "TEST^OBSERVER"}), logger),
		gate:       session.NewGate(session.NewStaticAuthenticator(testAccounts(t))),
		sessions:   session.NewManager(session.NewTokens(testSecret, time.Hour), false),
		modalities: mods,
		loc:        time.UTC,
	}
	ts := httptest.NewServer(srv.routes())
	t.Cleanup(ts.Close)
	return &testEnv{ts: ts, archive: fa}
}

// client keeps cookies and does not follow redirects.
func (e *testEnv) client(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatal(err)
	}
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// csrf fetches the login page once so that the jar holds a token.
func (e *testEnv) csrf(t *testing.T, c *http.Client) string {
	t.Helper()
	u, _ := url.Parse(e.ts.URL)
	for _, ck := range c.Jar.Cookies(u) {
		if ck.Name == "csrf_token" {
			return ck.Value
		}
	}
	resp, err := c.Get(e.ts.URL + "/login")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	for _, ck := range c.Jar.Cookies(u) {
		if ck.Name == "csrf_token" {
			return ck.Value
		}
	}
	t.Fatal("no csrf cookie issued")
	return ""
}

func (e *testEnv) postForm(t *testing.T, c *http.Client, path string, form url.Values) (*http.Response, string) {
	t.Helper()
	form.Set("csrf_token", e.csrf(t, c))
	resp, err := c.PostForm(e.ts.URL+path, form)
	if err != nil {
		t.Fatal(err)
	}
	return resp, readBody(t, resp)
}

func (e *testEnv) get(t *testing.T, c *http.Client, path string) (*http.Response, string) {
	t.Helper()
	resp, err := c.Get(e.ts.URL + path)
	if err != nil {
		t.Fatal(err)
	}
	return resp, readBody(t, resp)
}

// login signs in and checks the redirect to the worklist.
func (e *testEnv) login(t *testing.T, user, pass string) *http.Client {
	t.Helper()
	c := e.client(t)
	resp, _ := e.postForm(t, c, "/login", url.Values{"username": {user}, "password": {pass}})
	if resp.StatusCode != http.StatusSeeOther || resp.Header.Get("Location") != "/search" {
		t.Fatalf("login as %s: status %d location %q", user, resp.StatusCode, resp.Header.Get("Location"))
	}
	return c
}

// datastar sends signals the way the browser library does: as a query
// parameter for GET and as a JSON body otherwise.
func (e *testEnv) datastar(t *testing.T, c *http.Client, method, path string, signals interface{}) (*http.Response, string) {
	t.Helper()
	raw, err := json.Marshal(signals)
	if err != nil {
		t.Fatal(err)
	}
	var req *http.Request
	if method == http.MethodGet {
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		req, err = http.NewRequest(method, e.ts.URL+path+sep+"datastar="+url.QueryEscape(string(raw)), nil)
	} else {
		req, err = http.NewRequest(method, e.ts.URL+path, bytes.NewReader(raw))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-CSRF-Token", e.csrf(t, c))
	}
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Datastar-Request", "true")
	resp, err := c.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	return resp, readBody(t, resp)
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}
