package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dgallion1/sectionrank/internal/config"
	"github.com/dgallion1/sectionrank/internal/embed"
	"github.com/dgallion1/sectionrank/internal/pipeline"
)

const testKey = "test-key"

const guideMarkdown = `# Vegetarian Curry

Simmer chickpeas in coconut milk. Add spinach at the end. Serve with rice.

# Lentil Soup

Sweat the onions. Add red lentils and stock. Blend until smooth.

# Berry Dessert

Macerate the berries with sugar. Spoon over yogurt. Top with mint.
`

type testEnv struct {
	srv  *httptest.Server
	orch *pipeline.Orchestrator
}

func newTestEnv(t *testing.T, start bool) *testEnv {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := config.Config{
		APIKey:         testKey,
		TopKSections:   2,
		MMRLambda:      0.5,
		TopSentences:   20,
		TopSnippets:    5,
		WorkerCount:    1,
		MaxQueueSize:   4,
		MaxUploadBytes: 1 << 20,
		JobTTL:         time.Hour,
	}
	e := embed.NewHashing(128)
	orch := pipeline.NewOrchestrator(cfg, pipeline.NewAnalyzer(e, log), log)
	if start {
		orch.Start(context.Background())
		t.Cleanup(orch.Stop)
	}
	srv := httptest.NewServer(NewServer(orch, e, embed.NewStats(time.Minute), log, cfg))
	t.Cleanup(srv.Close)
	return &testEnv{srv: srv, orch: orch}
}

type upload struct {
	name string
	body string
}

func multipartBody(t *testing.T, fields map[string]string, files ...upload) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	for _, f := range files {
		fw, err := mw.CreateFormFile("files", f.name)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		fw.Write([]byte(f.body))
	}
	mw.Close()
	return &buf, mw.FormDataContentType()
}

func (e *testEnv) do(t *testing.T, method, path string, body io.Reader, contentType string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, e.srv.URL+path, body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+testKey)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	var decoded map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func (e *testEnv) submit(t *testing.T, fields map[string]string, files ...upload) (*http.Response, map[string]any) {
	t.Helper()
	body, ct := multipartBody(t, fields, files...)
	return e.do(t, http.MethodPost, "/api/analyze", body, ct)
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, false)
	resp, err := http.Get(env.srv.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
}

func TestAuth(t *testing.T) {
	env := newTestEnv(t, false)

	tests := []struct {
		name   string
		header string
	}{
		{"missing", ""},
		{"wrong scheme", "Basic " + testKey},
		{"wrong key", "Bearer nope"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _ := http.NewRequest(http.MethodGet, env.srv.URL+"/api/stats/embedding", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatalf("request: %v", err)
			}
			resp.Body.Close()
			if resp.StatusCode != http.StatusUnauthorized {
				t.Errorf("expected 401, got %d", resp.StatusCode)
			}
		})
	}
}

func TestAnalyze_Validation(t *testing.T) {
	env := newTestEnv(t, false)
	md := upload{name: "guide.md", body: guideMarkdown}

	tests := []struct {
		name   string
		fields map[string]string
		files  []upload
		want   int
	}{
		{"missing query", map[string]string{}, []upload{md}, http.StatusBadRequest},
		{"missing files", map[string]string{"query": "soup"}, nil, http.StatusBadRequest},
		{"unsupported type", map[string]string{"query": "soup"}, []upload{{name: "data.xlsx", body: "x"}}, http.StatusBadRequest},
		{"duplicate filename", map[string]string{"query": "soup"}, []upload{md, md}, http.StatusBadRequest},
		{"bad top_k", map[string]string{"query": "soup", "top_k": "0"}, []upload{md}, http.StatusBadRequest},
		{"bad lambda", map[string]string{"query": "soup", "lambda": "1.5"}, []upload{md}, http.StatusBadRequest},
		{"too large", map[string]string{"query": "soup"}, []upload{{name: "big.txt", body: string(bytes.Repeat([]byte("a"), 1<<20+1))}}, http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := env.submit(t, tt.fields, tt.files...)
			if resp.StatusCode != tt.want {
				t.Errorf("expected %d, got %d (%v)", tt.want, resp.StatusCode, body)
			}
		})
	}
}

func TestAnalyze_EndToEnd(t *testing.T) {
	env := newTestEnv(t, true)

	resp, body := env.submit(t, map[string]string{"query": "vegetarian dinner", "persona": "Chef", "top_k": "2"},
		upload{name: "guide.md", body: guideMarkdown})
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202, got %d (%v)", resp.StatusCode, body)
	}
	jobID, _ := body["job_id"].(string)
	if jobID == "" {
		t.Fatalf("missing job_id in %v", body)
	}

	deadline := time.Now().Add(5 * time.Second)
	var status map[string]any
	for time.Now().Before(deadline) {
		_, status = env.do(t, http.MethodGet, "/api/analyze/"+jobID+"/status", nil, "")
		if s := status["status"]; s == string(pipeline.StatusCompleted) || s == string(pipeline.StatusFailed) {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if status["status"] != string(pipeline.StatusCompleted) {
		t.Fatalf("expected completed job, got %v", status)
	}

	resp, result := env.do(t, http.MethodGet, "/api/analyze/"+jobID+"/result", nil, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	sections, _ := result["extracted_sections"].([]any)
	if len(sections) != 2 {
		t.Errorf("expected 2 extracted sections, got %d", len(sections))
	}
	snippets, _ := result["subsection_analysis"].([]any)
	if len(snippets) != 1 {
		t.Errorf("expected 1 snippet from the unselected page, got %d", len(snippets))
	}
	meta, _ := result["metadata"].(map[string]any)
	if meta["persona"] != "Chef" || meta["job_to_be_done"] != "vegetarian dinner" {
		t.Errorf("unexpected metadata: %v", meta)
	}
}

func TestAnalyzeResult_ConflictUntilComplete(t *testing.T) {
	// Workers are not started, so the job stays queued.
	env := newTestEnv(t, false)

	resp, body := env.submit(t, map[string]string{"query": "soup"}, upload{name: "guide.md", body: guideMarkdown})
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.StatusCode)
	}
	jobID := body["job_id"].(string)

	resp, _ = env.do(t, http.MethodGet, "/api/analyze/"+jobID+"/result", nil, "")
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("expected 409, got %d", resp.StatusCode)
	}
	resp, status := env.do(t, http.MethodGet, "/api/analyze/"+jobID+"/status", nil, "")
	if resp.StatusCode != http.StatusOK || status["status"] != string(pipeline.StatusQueued) {
		t.Errorf("expected queued status, got %d %v", resp.StatusCode, status)
	}
}

func TestAnalyze_UnknownJob(t *testing.T) {
	env := newTestEnv(t, false)
	for _, path := range []string{"/api/analyze/nope/status", "/api/analyze/nope/result"} {
		resp, _ := env.do(t, http.MethodGet, path, nil, "")
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("%s: expected 404, got %d", path, resp.StatusCode)
		}
	}
}

func TestEmbeddingStats(t *testing.T) {
	env := newTestEnv(t, false)
	resp, body := env.do(t, http.MethodGet, "/api/stats/embedding", nil, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if body["model"] != "hashing" {
		t.Errorf("expected hashing model, got %v", body["model"])
	}
	if _, ok := body["stats"]; !ok {
		t.Error("expected stats in response")
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"report.pdf", "report.pdf"},
		{"../../etc/passwd.txt", "passwd.txt"},
		{"dir/sub/file.md", "file.md"},
		{"", "unnamed"},
	}
	for _, tt := range tests {
		if got := sanitizeFilename(tt.in); got != tt.want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
