package httpapi

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/lead-scorer/internal/scoring"
	"github.com/spigell/lead-scorer/internal/service"
	"github.com/spigell/lead-scorer/internal/worker"
)

const (
	offerJSON = `{"name":"Acme CRM","value_props":["automation"],"ideal_use_cases":["sales teams"]}`
	leadsCSV  = "name,role,company,industry,location,linkedin_bio\n" +
		"Tom,Intern,Shop,Retail,LA,Bio\n" +
		"Jane,VP of Sales,Acme,SaaS,NY,...\n" +
		",CEO,,,,\n"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(t *testing.T, opts Options) (*gin.Engine, *observer.ObservedLogs) {
	t.Helper()

	core, logs := observer.New(zapcore.DebugLevel)
	log := zap.New(core)

	combiner := scoring.NewCombiner(scoring.NewRuleScorer(), scoring.NewIntentScorer(nil, scoring.IntentConfig{}, log))
	svc := service.New(scoring.NewPipeline(combiner, worker.Options{Workers: 2}, log), log)

	return NewRouter(svc, opts, log), logs
}

func do(r http.Handler, method, path, contentType string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func multipartCSV(t *testing.T, field, content string) (string, []byte) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, "leads.csv")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fw.Write([]byte(content)); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	return mw.FormDataContentType(), buf.Bytes()
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error body %q: %v", w.Body.String(), err)
	}
	return resp
}

func TestScoringFlow(t *testing.T) {
	r, logs := newTestRouter(t, Options{})

	if w := do(r, http.MethodPost, "/offer", "application/json", []byte(offerJSON)); w.Code != http.StatusOK {
		t.Fatalf("offer: %d %s", w.Code, w.Body.String())
	}

	ct, body := multipartCSV(t, "file", leadsCSV)
	w := do(r, http.MethodPost, "/leads/upload", ct, body)
	if w.Code != http.StatusOK {
		t.Fatalf("upload: %d %s", w.Code, w.Body.String())
	}
	var summary service.UploadSummary
	if err := json.Unmarshal(w.Body.Bytes(), &summary); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if summary.Validated != 2 || summary.Defective != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}

	if w := do(r, http.MethodPost, "/score", "", nil); w.Code != http.StatusOK {
		t.Fatalf("score: %d %s", w.Code, w.Body.String())
	}

	for _, method := range []string{http.MethodGet, http.MethodPost} {
		w := do(r, method, "/results", "", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("results: %d %s", w.Code, w.Body.String())
		}

		var run struct {
			Count   int              `json:"count"`
			RunID   string           `json:"run_id"`
			Results []map[string]any `json:"results"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &run); err != nil {
			t.Fatalf("decode results: %v", err)
		}
		if run.Count != 3 || run.RunID == "" || len(run.Results) != 3 {
			t.Fatalf("unexpected run %+v", run)
		}

		first := run.Results[0]
		if first["name"] != "Jane" || first["score"] != float64(75) || first["intent"] != "High" {
			t.Fatalf("unexpected first result %v", first)
		}

		defective := run.Results[1]
		if defective["name"] != "Unknown" || defective["company"] != nil || defective["data_completeness"] != "Incomplete" {
			t.Fatalf("unexpected defective result %v", defective)
		}
	}

	w = do(r, http.MethodGet, "/csvresults", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("csv results: %d %s", w.Code, w.Body.String())
	}
	if !strings.HasPrefix(w.Header().Get("Content-Type"), "text/csv") {
		t.Fatalf("unexpected content type %q", w.Header().Get("Content-Type"))
	}
	if !strings.Contains(w.Header().Get("Content-Disposition"), resultsFilename) {
		t.Fatalf("unexpected disposition %q", w.Header().Get("Content-Disposition"))
	}
	if !strings.HasPrefix(w.Body.String(), "name,role,company,industry,intent,score,reasoning,data_completeness\nJane,") {
		t.Fatalf("unexpected csv body:\n%s", w.Body.String())
	}

	if logs.FilterMessage("http request").Len() == 0 {
		t.Fatal("expected access log entries")
	}
}

func TestPreconditionErrors(t *testing.T) {
	r, _ := newTestRouter(t, Options{})

	w := do(r, http.MethodPost, "/score", "", nil)
	if w.Code != http.StatusBadRequest || decodeError(t, w).Kind != "no_offer_configured" {
		t.Fatalf("expected no offer error, got %d %s", w.Code, w.Body.String())
	}

	if w := do(r, http.MethodGet, "/offer", "", nil); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing offer, got %d", w.Code)
	}

	do(r, http.MethodPost, "/offer", "application/json", []byte(offerJSON))

	w = do(r, http.MethodPost, "/score", "", nil)
	if w.Code != http.StatusBadRequest || decodeError(t, w).Kind != "no_leads_uploaded" {
		t.Fatalf("expected no leads error, got %d %s", w.Code, w.Body.String())
	}

	for _, path := range []string{"/results", "/csvresults"} {
		w := do(r, http.MethodGet, path, "", nil)
		if w.Code != http.StatusNotFound || decodeError(t, w).Kind != "no_results_available" {
			t.Fatalf("%s: expected no results error, got %d %s", path, w.Code, w.Body.String())
		}
	}
}

func TestInvalidPayloads(t *testing.T) {
	r, _ := newTestRouter(t, Options{})

	tests := []struct {
		name string
		path string
		ct   string
		body []byte
	}{
		{name: "offer not json", path: "/offer", ct: "application/json", body: []byte("{")},
		{name: "offer missing lists", path: "/offer", ct: "application/json", body: []byte(`{"name":"x"}`)},
		{name: "leads not an array", path: "/leads", ct: "application/json", body: []byte(`{"name":"x"}`)},
		{name: "leads empty", path: "/leads", ct: "application/json", body: []byte(`[]`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(r, http.MethodPost, tt.path, tt.ct, tt.body)
			if w.Code != http.StatusBadRequest || decodeError(t, w).Kind != "invalid_input" {
				t.Fatalf("expected invalid input, got %d %s", w.Code, w.Body.String())
			}
		})
	}

	ct, body := multipartCSV(t, "other", leadsCSV)
	if w := do(r, http.MethodPost, "/leads/upload", ct, body); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing file field, got %d %s", w.Code, w.Body.String())
	}
}

func TestReplaceLeadsJSON(t *testing.T) {
	r, _ := newTestRouter(t, Options{})

	body := []byte(`[
		{"name":"Jane","role":"CEO","company":"Acme","industry":"SaaS","location":"NY","linkedin_bio":""},
		{"name":"Bob","role":42}
	]`)
	w := do(r, http.MethodPost, "/leads", "application/json", body)
	if w.Code != http.StatusOK {
		t.Fatalf("leads: %d %s", w.Code, w.Body.String())
	}

	var summary service.UploadSummary
	if err := json.Unmarshal(w.Body.Bytes(), &summary); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if summary.Validated != 1 || summary.Defective != 1 || summary.Defects[0].MissingValueCount != 5 {
		t.Fatalf("unexpected summary %+v", summary)
	}
}

func TestUploadTooLarge(t *testing.T) {
	r, _ := newTestRouter(t, Options{MaxUploadBytes: 64})

	ct, body := multipartCSV(t, "file", leadsCSV+strings.Repeat("x,y,z,a,b,c\n", 20))
	w := do(r, http.MethodPost, "/leads/upload", ct, body)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d %s", w.Code, w.Body.String())
	}
}

func TestScoreRateLimit(t *testing.T) {
	r, _ := newTestRouter(t, Options{ScoreRateLimit: 0.001})

	if w := do(r, http.MethodPost, "/score", "", nil); w.Code == http.StatusTooManyRequests {
		t.Fatal("first request must not be limited")
	}
	if w := do(r, http.MethodPost, "/score", "", nil); w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w.Code)
	}
}

func TestCORS(t *testing.T) {
	r, _ := newTestRouter(t, Options{CORSOrigins: []string{"https://app.example.com"}})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://app.example.com")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Header().Get("Access-Control-Allow-Origin") != "https://app.example.com" {
		t.Fatalf("unexpected cors headers: %v", w.Header())
	}
}
