package dashboard

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mwiater/geoassist/internal/district"
	"github.com/mwiater/geoassist/internal/geo"
	"github.com/mwiater/geoassist/internal/query"
	"github.com/mwiater/geoassist/internal/rag"
)

const boundaries = `{"type":"FeatureCollection","features":[
 {"type":"Feature","properties":{"dtname":"Alpha"},
  "geometry":{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,1],[0,0]]]}},
 {"type":"Feature","properties":{"dtname":"Beta"},
  "geometry":{"type":"Polygon","coordinates":[[[2,2],[3,2],[3,3],[2,3],[2,2]]]}},
 {"type":"Feature","properties":{"dtname":"Gamma, North"},
  "geometry":{"type":"Polygon","coordinates":[[[4,4],[5,4],[5,5],[4,5],[4,4]]]}}
]}`

type stubSearcher struct{}

func (stubSearcher) Search(ctx context.Context, q string, k int) ([]rag.RetrievedChunk, error) {
	return []rag.RetrievedChunk{{
		Entry: rag.IndexEntry{ChunkID: "slope.txt:0", Doc: "slope.txt", Text: "Slope is derived from the DEM.", Embedding: []float64{1, 0}},
		Score: 0.9,
	}}, nil
}

func ptr(v float64) *float64 { return &v }

func newTestServer(t *testing.T, withBoundaries bool) *Server {
	t.Helper()
	records := []district.Record{
		{Name: "Alpha", AverageElevation: ptr(700), LULCClasses: []district.ClassShare{{ClassName: "Wasteland", Percentage: 15}}},
		{Name: "Beta", AverageElevation: ptr(900), LULCClasses: []district.ClassShare{{ClassName: "Wasteland", Percentage: 50}}},
	}
	engine := query.NewEngine(records, query.Options{Searcher: stubSearcher{}, Frontend: "dashboard"})
	var b *geo.Boundaries
	if withBoundaries {
		var err error
		b, err = geo.ParseBoundaries("test", []byte(boundaries), []string{"dtname"})
		if err != nil {
			t.Fatalf("ParseBoundaries error: %v", err)
		}
	}
	return NewServer(":0", engine, b)
}

func do(t *testing.T, s *Server, req *http.Request) (int, []byte) {
	t.Helper()
	resp, err := s.App().Test(req, -1)
	if err != nil {
		t.Fatalf("request %s %s: %v", req.Method, req.URL, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, body
}

func postQuery(t *testing.T, s *Server, body string) (int, []byte) {
	req := httptest.NewRequest(http.MethodPost, "/api/query", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return do(t, s, req)
}

func TestHealthyAndIndex(t *testing.T) {
	s := newTestServer(t, true)
	code, body := do(t, s, httptest.NewRequest(http.MethodGet, "/check/healthy", nil))
	if code != http.StatusOK || !strings.Contains(string(body), `"result":"ok"`) {
		t.Fatalf("unexpected health response %d %s", code, body)
	}
	code, body = do(t, s, httptest.NewRequest(http.MethodGet, "/", nil))
	if code != http.StatusOK || !strings.Contains(string(body), "leaflet") {
		t.Fatalf("unexpected index response %d", code)
	}
}

func TestQuerySuitability(t *testing.T) {
	s := newTestServer(t, true)
	code, body := postQuery(t, s, `{"query":"Which districts are suitable for solar?"}`)
	if code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", code, body)
	}
	var ans query.Answer
	if err := json.Unmarshal(body, &ans); err != nil {
		t.Fatalf("decode answer: %v", err)
	}
	if ans.Intent != "suitability:solar" || len(ans.Suitable) != 1 || ans.Suitable[0] != "Alpha" {
		t.Fatalf("unexpected answer %+v", ans)
	}
}

func TestQuerySemanticOmitsVectors(t *testing.T) {
	s := newTestServer(t, true)
	code, body := postQuery(t, s, `{"query":"how is slope computed"}`)
	if code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", code, body)
	}
	var ans query.Answer
	if err := json.Unmarshal(body, &ans); err != nil {
		t.Fatalf("decode answer: %v", err)
	}
	if ans.Intent != "semantic" || len(ans.Snippets) != 1 || ans.Snippets[0].Entry.Embedding != nil {
		t.Fatalf("unexpected answer %+v", ans)
	}
}

func TestQueryRejectsBadRequests(t *testing.T) {
	s := newTestServer(t, true)
	tests := []struct {
		name string
		body string
		code int
	}{
		{name: "malformed", body: `{"query":`, code: http.StatusBadRequest},
		{name: "missing query", body: `{}`, code: http.StatusUnprocessableEntity},
		{name: "blank query", body: `{"query":"   "}`, code: http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := postQuery(t, s, tt.body)
			if code != tt.code {
				t.Fatalf("expected %d, got %d: %s", tt.code, code, body)
			}
		})
	}
}

func TestDistricts(t *testing.T) {
	s := newTestServer(t, true)
	code, body := do(t, s, httptest.NewRequest(http.MethodGet, "/api/districts", nil))
	if code != http.StatusOK {
		t.Fatalf("unexpected status %d", code)
	}
	var records []district.Record
	if err := json.Unmarshal(body, &records); err != nil || len(records) != 2 {
		t.Fatalf("unexpected records %s (%v)", body, err)
	}

	code, body = do(t, s, httptest.NewRequest(http.MethodGet, "/api/districts?name=beta", nil))
	if code != http.StatusOK || !strings.Contains(string(body), `"district":"Beta"`) {
		t.Fatalf("unexpected lookup %d %s", code, body)
	}

	code, body = do(t, s, httptest.NewRequest(http.MethodGet, "/api/districts?name=Gamma", nil))
	var apiErr Error
	if code != http.StatusNotFound || json.Unmarshal(body, &apiErr) != nil || apiErr.Code != http.StatusNotFound {
		t.Fatalf("expected not found, got %d %s", code, body)
	}
}

func TestBoundaries(t *testing.T) {
	s := newTestServer(t, true)
	code, body := do(t, s, httptest.NewRequest(http.MethodGet, "/api/boundaries?highlight=alpha&highlight=%20&highlight=gamma%2C%20north", nil))
	if code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", code, body)
	}
	var fc struct {
		Features []struct {
			Properties map[string]any `json:"properties"`
		} `json:"features"`
	}
	if err := json.Unmarshal(body, &fc); err != nil || len(fc.Features) != 3 {
		t.Fatalf("unexpected collection %s (%v)", body, err)
	}
	want := map[string]bool{"Alpha": true, "Beta": false, "Gamma, North": true}
	for _, f := range fc.Features {
		name, _ := f.Properties["district"].(string)
		if f.Properties["suitable"] != want[name] {
			t.Fatalf("unexpected highlight for %q: %v", name, f.Properties)
		}
	}

	bare := newTestServer(t, false)
	if code, _ := do(t, bare, httptest.NewRequest(http.MethodGet, "/api/boundaries", nil)); code != http.StatusNotFound {
		t.Fatalf("expected 404 without boundaries, got %d", code)
	}
}

func TestMetricsAndUnknownRoute(t *testing.T) {
	s := newTestServer(t, true)
	postQuery(t, s, `{"query":"suitable for solar"}`)
	code, body := do(t, s, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if code != http.StatusOK || !strings.Contains(string(body), "geoassist_queries_total") {
		t.Fatalf("unexpected metrics response %d", code)
	}
	code, body = do(t, s, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if code != http.StatusNotFound || !strings.Contains(string(body), `"code":404`) {
		t.Fatalf("expected JSON 404, got %d %s", code, body)
	}
}
