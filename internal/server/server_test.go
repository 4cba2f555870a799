package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/lacquerai/blocksmith/internal/block"
	"github.com/lacquerai/blocksmith/internal/store"
	"github.com/lacquerai/blocksmith/internal/testhelper"
	"github.com/lacquerai/blocksmith/internal/tutorial"
	"github.com/lacquerai/blocksmith/pkg/events"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pageSnapshot = `{"blocks": {"languageVersion": 0, "blocks": [
	{"type": "html_element", "id": "main", "fields": {"TAG": "div"}, "inputs": {
		"CONTENT": {"block": {"type": "html_text", "id": "greeting", "fields": {"TEXT": "Welcome"}}}
	}}
]}}`

const styledSnapshot = `{"blocks": {"languageVersion": 0, "blocks": [
	{"type": "css_rule", "id": "rule", "fields": {"SELECTOR": "body"}, "inputs": {
		"DECLARATIONS": {"block": {"type": "css_width", "id": "w", "fields": {"WIDTH": 640}}}
	}},
	{"type": "html_text", "id": "t", "fields": {"TEXT": "Hi"}}
]}}`

type testSuite struct {
	server  *Server
	store   *store.SQLStore
	http    *httptest.Server
	metrics *prometheus.Registry
}

func setupTestSuite(t *testing.T) *testSuite {
	t.Helper()
	ctx := context.Background()

	st, err := store.OpenSQL(ctx, store.DriverSQLite, ":memory:")
	require.NoError(t, err)
	require.NoError(t, st.Migrate(ctx))
	t.Cleanup(func() { st.Close() })

	for i, rec := range testhelper.Records() {
		require.NoError(t, st.SaveBlock(ctx, rec, i))
	}
	require.NoError(t, st.SaveTutorial(ctx, &tutorial.Tutorial{
		ID:    "first-page",
		Title: "Your first page",
		Steps: []tutorial.Step{
			{Title: "Add a container", ExpectedBlocks: map[string]int{"html_element": 1}},
			{Title: "Greet", ExpectedCodePatterns: []tutorial.Pattern{tutorial.Literal("Welcome")}},
		},
	}, 0))

	registry := prometheus.NewRegistry()
	srv, err := NewWithRegistry(DefaultConfig(), NewLibrary(st), registry, registry)
	require.NoError(t, err)

	_, err = srv.Load(ctx)
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)

	return &testSuite{server: srv, store: st, http: ts, metrics: registry}
}

func (suite *testSuite) get(t *testing.T, path string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Get(suite.http.URL + path)
	require.NoError(t, err)
	return resp, decodeBody(t, resp)
}

func (suite *testSuite) post(t *testing.T, path, body string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Post(suite.http.URL+path, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	return resp, decodeBody(t, resp)
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var body map[string]any
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(data, &body))
	} else {
		body = map[string]any{"text": string(data)}
	}
	return body
}

func TestNew_RequiresLibrary(t *testing.T) {
	_, err := New(nil, nil)
	assert.Error(t, err)
}

func TestServer_Health(t *testing.T) {
	suite := setupTestSuite(t)

	resp, body := suite.get(t, "/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, float64(9), body["blocks_loaded"])
	assert.Equal(t, float64(1), body["tutorials"])
}

func TestServer_ListBlocks(t *testing.T) {
	suite := setupTestSuite(t)

	resp, body := suite.get(t, "/api/v1/blocks")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.Equal(t, float64(0), body["skipped"])

	blocks := body["blocks"].([]any)
	require.Len(t, blocks, 9)

	first := blocks[0].(map[string]any)
	assert.Equal(t, "html_text", first["name"])
	assert.Equal(t, "html", first["kind"])
	assert.Equal(t, false, first["output"])

	for _, b := range blocks {
		summary := b.(map[string]any)
		switch summary["name"] {
		case "html_url":
			assert.Equal(t, true, summary["output"])
		case "html_link":
			assert.Equal(t, []any{"TEXT"}, summary["fields"])
			assert.Equal(t, []any{"HREF"}, summary["slots"])
		}
	}
}

func TestServer_Toolbox(t *testing.T) {
	suite := setupTestSuite(t)

	resp, body := suite.get(t, "/api/v1/toolbox")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	tree := body["toolbox"].(map[string]any)
	assert.Equal(t, "categoryToolbox", tree["kind"])
	sections := tree["contents"].([]any)
	require.Len(t, sections, 2)
	assert.Equal(t, "html", sections[0].(map[string]any)["block_kind"])
	assert.Equal(t, "css", sections[1].(map[string]any)["block_kind"])

	styles := body["theme"].(map[string]any)["categoryStyles"].(map[string]any)
	assert.Equal(t, map[string]any{"colour": "#5b67a5"}, styles["html_text"])
}

func TestServer_Compile(t *testing.T) {
	suite := setupTestSuite(t)

	resp, body := suite.post(t, "/api/v1/compile", pageSnapshot)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "<div>\nWelcome\n</div>\n", body["code"])
	assert.Equal(t, []any{}, body["diagnostics"])

	assert.Equal(t, float64(1), testutil.ToFloat64(suite.server.metrics.compilations.WithLabelValues("compile")))
}

func TestServer_CompileByKind(t *testing.T) {
	suite := setupTestSuite(t)

	resp, body := suite.post(t, "/api/v1/compile?split=kind", styledSnapshot)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	code := body["code"].(map[string]any)
	assert.Equal(t, "Hi\n", code["html"])
	assert.Equal(t, "body {\n  width: 640px;\n}\n", code["css"])
}

func TestServer_CompileErrors(t *testing.T) {
	suite := setupTestSuite(t)

	tests := []struct {
		name     string
		body     string
		wantPath string
		wantText string
	}{
		{"unknown type", `{"blocks": {"blocks": [{"type": "html_marquee", "id": "m"}]}}`, "blocks[0]", "unknown block type"},
		{"nested unknown type", `{"blocks": {"blocks": [{"type": "html_element", "id": "e", "inputs": {"CONTENT": {"block": {"type": "nope"}}}}]}}`, "blocks[0].inputs.CONTENT", "unknown block type"},
		{"malformed json", `{"blocks": `, "", "Invalid JSON"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := suite.post(t, "/api/v1/compile", tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

			if tt.wantPath != "" {
				assert.Equal(t, tt.wantPath, body["path"])
				assert.Contains(t, body["error"], tt.wantText)
			} else {
				assert.Contains(t, body["text"], tt.wantText)
			}
		})
	}
}

func TestServer_Document(t *testing.T) {
	suite := setupTestSuite(t)

	resp, body := suite.post(t, "/api/v1/document", fmt.Sprintf(`{"title": "Hi & bye", "workspace": %s}`, styledSnapshot))
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	doc := body["document"].(string)
	assert.Contains(t, doc, "<title>Hi &amp; bye</title>")
	assert.Contains(t, doc, "<style>\nbody {\n  width: 640px;\n}\n</style>")
	assert.Contains(t, doc, "<body>\nHi\n</body>")

	resp, _ = suite.post(t, "/api/v1/document", `{"title": "x"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_Tutorials(t *testing.T) {
	suite := setupTestSuite(t)

	resp, body := suite.get(t, "/api/v1/tutorials")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	list := body["tutorials"].([]any)
	require.Len(t, list, 1)
	assert.Equal(t, "first-page", list[0].(map[string]any)["id"])
	assert.Equal(t, float64(2), list[0].(map[string]any)["steps"])

	resp, body = suite.get(t, "/api/v1/tutorials/first-page")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Your first page", body["title"])

	resp, _ = suite.get(t, "/api/v1/tutorials/missing")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_ValidateStep(t *testing.T) {
	suite := setupTestSuite(t)

	tests := []struct {
		name       string
		path       string
		body       string
		wantStatus int
		wantPassed bool
	}{
		{
			name:       "blocks present",
			path:       "/api/v1/tutorials/first-page/steps/0/validate",
			body:       fmt.Sprintf(`{"snapshot": %s}`, pageSnapshot),
			wantStatus: http.StatusOK,
			wantPassed: true,
		},
		{
			name:       "blocks missing",
			path:       "/api/v1/tutorials/first-page/steps/0/validate",
			body:       `{"snapshot": {"blocks": {"blocks": [{"type": "html_text", "id": "t"}]}}}`,
			wantStatus: http.StatusOK,
			wantPassed: false,
		},
		{
			name:       "code compiled from snapshot",
			path:       "/api/v1/tutorials/first-page/steps/1/validate",
			body:       fmt.Sprintf(`{"snapshot": %s}`, pageSnapshot),
			wantStatus: http.StatusOK,
			wantPassed: true,
		},
		{
			name:       "supplied code wins",
			path:       "/api/v1/tutorials/first-page/steps/1/validate",
			body:       fmt.Sprintf(`{"snapshot": %s, "code": "<p>bye</p>"}`, pageSnapshot),
			wantStatus: http.StatusOK,
			wantPassed: false,
		},
		{
			name:       "step out of range",
			path:       "/api/v1/tutorials/first-page/steps/7/validate",
			body:       `{}`,
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "unknown tutorial",
			path:       "/api/v1/tutorials/missing/steps/0/validate",
			body:       `{}`,
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "unknown type without code",
			path:       "/api/v1/tutorials/first-page/steps/1/validate",
			body:       `{"snapshot": {"blocks": {"blocks": [{"type": "nope"}]}}}`,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := suite.post(t, tt.path, tt.body)
			require.Equal(t, tt.wantStatus, resp.StatusCode)
			if tt.wantStatus != http.StatusOK {
				return
			}

			assert.Equal(t, tt.wantPassed, body["passed"])
			assert.NotEmpty(t, body["checks"])
		})
	}
}

func TestServer_Reload(t *testing.T) {
	suite := setupTestSuite(t)
	ctx := context.Background()

	extra := testhelper.Records()[0]
	extra.BlockName = "html_heading"
	extra.Category = "Headings"
	require.NoError(t, suite.store.SaveBlock(ctx, extra, 20))

	broken := block.Record{BlockName: "html_broken", BlockType: block.KindHTML, Definition: json.RawMessage(`{"type": "html_broken", "message0": "%1 %2", "args0": []}`)}
	require.NoError(t, suite.store.SaveBlock(ctx, broken, 21))

	resp, body := suite.post(t, "/api/v1/reload", `{}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "reloaded", body["status"])
	assert.Equal(t, float64(10), body["blocks"])
	assert.Equal(t, float64(1), body["skipped"])

	_, body = suite.get(t, "/api/v1/blocks")
	assert.Len(t, body["blocks"], 10)
	assert.Equal(t, float64(10), testutil.ToFloat64(suite.server.metrics.registeredTypes))
}

func TestServer_Metrics(t *testing.T) {
	suite := setupTestSuite(t)
	suite.post(t, "/api/v1/compile", pageSnapshot)

	resp, err := http.Get(suite.http.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(data), `blocksmith_compilations_total{endpoint="compile"} 1`)
	assert.Contains(t, string(data), "blocksmith_registered_types 9")
}

func TestServer_CORSPreflight(t *testing.T) {
	suite := setupTestSuite(t)

	req, err := http.NewRequest(http.MethodOptions, suite.http.URL+"/api/v1/compile", nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestServer_Preview(t *testing.T) {
	suite := setupTestSuite(t)

	url := "ws" + strings.TrimPrefix(suite.http.URL, "http") + "/api/v1/preview"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	exchange := func(req any) events.PreviewEvent {
		t.Helper()
		require.NoError(t, conn.WriteJSON(req))
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

		var event events.PreviewEvent
		require.NoError(t, conn.ReadJSON(&event))
		assert.NotEmpty(t, event.ID)
		return event
	}

	rec := testhelper.Records()[0]
	event := exchange(events.PreviewRequest{
		BlockType:    string(rec.BlockType),
		Category:     rec.Category,
		Definition:   rec.Definition,
		CodeTemplate: rec.CodeTemplate,
	})
	assert.Equal(t, events.EventPreviewRendered, event.Type)
	assert.Equal(t, "html_text", event.BlockName)
	assert.Equal(t, "Hello World\n", event.Code)

	event = exchange(map[string]any{"block_type": "html", "definition": 5, "code_template": "x"})
	assert.Equal(t, events.EventPreviewFailed, event.Type)
	assert.Equal(t, "html_text", event.BlockName, "the previous preview stays registered")
	assert.NotEmpty(t, event.Error)

	event = exchange(events.PreviewRequest{Discard: true})
	assert.Equal(t, events.EventPreviewDiscarded, event.Type)
	assert.Equal(t, "html_text", event.BlockName)

	assert.Equal(t, 9, suite.server.library.Count(), "previews never touch the served library")
	assert.Equal(t, float64(1), testutil.ToFloat64(suite.server.metrics.previews.WithLabelValues("preview_rendered")))
}

func TestServer_StartAndStop(t *testing.T) {
	suite := setupTestSuite(t)

	config := DefaultConfig()
	config.Host = "127.0.0.1"
	config.Port = 0
	config.EnableMetrics = false

	registry := prometheus.NewRegistry()
	srv, err := NewWithRegistry(config, suite.server.library, registry, registry)
	require.NoError(t, err)
	require.NoError(t, srv.Start())

	addr := srv.GetAddr()
	assert.True(t, strings.HasPrefix(addr, "127.0.0.1:"))

	resp, err := http.Get(fmt.Sprintf("http://%s/health", addr))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(fmt.Sprintf("http://%s/metrics", addr))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode, "metrics disabled")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, srv.Stop(ctx))
}
