package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/T3thr/Vertex-webapp-001-sub006/application/commands"
	"github.com/T3thr/Vertex-webapp-001-sub006/application/queries"
	"github.com/T3thr/Vertex-webapp-001-sub006/domain/storymap"
	"github.com/T3thr/Vertex-webapp-001-sub006/infrastructure/persistence/memory"
	"github.com/T3thr/Vertex-webapp-001-sub006/pkg/auth"
)

func newTestHandler(t *testing.T) (*StoryMapHandler, *memory.DocumentRepository) {
	t.Helper()

	repo := memory.NewDocumentRepository()
	logger := zap.NewNop()

	return NewStoryMapHandler(
		commands.NewApplyCommandHandler(repo, nil, 100, logger),
		commands.NewCreateDocumentHandler(repo, nil, logger),
		queries.NewGetStoryMapHandler(repo, logger),
		queries.NewGetDocumentHandler(repo, logger),
		queries.NewValidateGraphHandler(storymap.DefaultLimits(), logger),
		1<<20,
		logger,
	), repo
}

func seedNovel(t *testing.T, repo *memory.DocumentRepository, novelID string) *storymap.GraphDocument {
	t.Helper()
	doc := storymap.NewGraphDocument(novelID, "author-1")
	require.NoError(t, repo.CreateActive(context.Background(), doc))
	return doc
}

func authedRequest(method, target string, body []byte, user *auth.UserContext, params map[string]string) *http.Request {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	ctx := auth.SetUserInContext(req.Context(), user)

	routeCtx := chi.NewRouteContext()
	for k, v := range params {
		routeCtx.URLParams.Add(k, v)
	}
	ctx = context.WithValue(ctx, chi.RouteCtxKey, routeCtx)

	return req.WithContext(ctx)
}

func author() *auth.UserContext {
	return &auth.UserContext{UserID: "author-1", Roles: []string{"authenticated"}}
}

func systemCaller() *auth.UserContext {
	return &auth.UserContext{UserID: "svc-repair", Roles: []string{auth.RoleSystem}}
}

func commandBody(t *testing.T, commandID, etag string) []byte {
	t.Helper()
	payload := map[string]interface{}{
		"command": map[string]interface{}{
			"commandId": commandID,
			"changes": map[string]interface{}{
				"nodes": []map[string]interface{}{
					{"nodeId": "n1", "title": "Opening", "nodeType": "start_node"},
				},
			},
		},
	}
	if etag != "" {
		payload["etag"] = etag
	}
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	return body
}

func TestApplyCommand_Success(t *testing.T) {
	handler, repo := newTestHandler(t)
	seedNovel(t, repo, "novel-1")

	req := authedRequest(http.MethodPost, "/api/v1/novels/novel-1/storymap/commands",
		commandBody(t, "cmd-1", "1"), author(), map[string]string{"novelID": "novel-1"})
	rec := httptest.NewRecorder()

	handler.ApplyCommand(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, float64(2), resp["version"])
	assert.Equal(t, commands.FormatVersionETag(2), resp["etag"])
	assert.NotContains(t, resp, "alreadyProcessed")
	assert.Equal(t, commands.FormatVersionETag(2), rec.Header().Get("ETag"))
}

func TestApplyCommand_RetryReportsAlreadyProcessed(t *testing.T) {
	handler, repo := newTestHandler(t)
	seedNovel(t, repo, "novel-1")

	first := authedRequest(http.MethodPost, "/api/v1/novels/novel-1/storymap/commands",
		commandBody(t, "cmd-1", "1"), author(), map[string]string{"novelID": "novel-1"})
	rec := httptest.NewRecorder()
	handler.ApplyCommand(rec, first)
	require.Equal(t, http.StatusOK, rec.Code)

	retry := authedRequest(http.MethodPost, "/api/v1/novels/novel-1/storymap/commands",
		commandBody(t, "cmd-1", "1"), author(), map[string]string{"novelID": "novel-1"})
	rec = httptest.NewRecorder()
	handler.ApplyCommand(rec, retry)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["alreadyProcessed"])
	assert.Equal(t, float64(2), resp["version"])
}

func TestApplyCommand_VersionConflictShape(t *testing.T) {
	handler, repo := newTestHandler(t)
	seedNovel(t, repo, "novel-1")

	first := authedRequest(http.MethodPost, "/api/v1/novels/novel-1/storymap/commands",
		commandBody(t, "cmd-1", "1"), author(), map[string]string{"novelID": "novel-1"})
	rec := httptest.NewRecorder()
	handler.ApplyCommand(rec, first)
	require.Equal(t, http.StatusOK, rec.Code)

	stale := authedRequest(http.MethodPost, "/api/v1/novels/novel-1/storymap/commands",
		commandBody(t, "cmd-2", "1"), author(), map[string]string{"novelID": "novel-1"})
	rec = httptest.NewRecorder()
	handler.ApplyCommand(rec, stale)

	require.Equal(t, http.StatusConflict, rec.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Version conflict", resp["error"])
	assert.Equal(t, float64(2), resp["currentVersion"])
}

func TestApplyCommand_MissingETagRejectedForRegularUsers(t *testing.T) {
	handler, repo := newTestHandler(t)
	seedNovel(t, repo, "novel-1")

	req := authedRequest(http.MethodPost, "/api/v1/novels/novel-1/storymap/commands",
		commandBody(t, "cmd-1", ""), author(), map[string]string{"novelID": "novel-1"})
	rec := httptest.NewRecorder()
	handler.ApplyCommand(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestApplyCommand_SystemCallerMayWriteUnconditionally(t *testing.T) {
	handler, repo := newTestHandler(t)
	seedNovel(t, repo, "novel-1")

	req := authedRequest(http.MethodPost, "/api/v1/novels/novel-1/storymap/commands",
		commandBody(t, "cmd-1", ""), systemCaller(), map[string]string{"novelID": "novel-1"})
	rec := httptest.NewRecorder()
	handler.ApplyCommand(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, float64(2), resp["version"])
}

func TestApplyCommand_MalformedBody(t *testing.T) {
	handler, repo := newTestHandler(t)
	seedNovel(t, repo, "novel-1")

	req := authedRequest(http.MethodPost, "/api/v1/novels/novel-1/storymap/commands",
		[]byte(`{"command": {"commandId": "cmd-1"`), author(), map[string]string{"novelID": "novel-1"})
	rec := httptest.NewRecorder()
	handler.ApplyCommand(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestApplyCommand_Unauthenticated(t *testing.T) {
	handler, repo := newTestHandler(t)
	seedNovel(t, repo, "novel-1")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/novels/novel-1/storymap/commands",
		bytes.NewReader(commandBody(t, "cmd-1", "1")))
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("novelID", "novel-1")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))

	rec := httptest.NewRecorder()
	handler.ApplyCommand(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestValidateGraph_ReportShape(t *testing.T) {
	handler, _ := newTestHandler(t)

	body, err := json.Marshal(map[string]interface{}{
		"nodes": []map[string]interface{}{
			{"nodeId": "a", "nodeType": "start_node", "title": "A", "position": map[string]float64{"x": 0, "y": 0}},
			{"nodeId": "island", "nodeType": "scene_node", "title": "B", "position": map[string]float64{"x": 1, "y": 1}},
		},
		"edges":       []map[string]interface{}{},
		"startNodeId": "a",
	})
	require.NoError(t, err)

	req := authedRequest(http.MethodPost, "/api/v1/storymap/validate", body, author(), nil)
	rec := httptest.NewRecorder()
	handler.ValidateGraph(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Success  bool               `json:"success"`
		Summary  storymap.Summary   `json:"summary"`
		Problems []storymap.Problem `json:"problems"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 2, resp.Summary.TotalNodes)
	assert.Equal(t, 1, resp.Summary.UnreachableNodes)
	require.Len(t, resp.Problems, 1)
	assert.Equal(t, storymap.CodeNodeUnreachable, resp.Problems[0].Code)
}

func TestValidateGraph_OversizeRejected(t *testing.T) {
	handler, _ := newTestHandler(t)

	nodes := make([]map[string]interface{}, 0, 5001)
	for i := 0; i < 5001; i++ {
		nodes = append(nodes, map[string]interface{}{
			"nodeId": fmt.Sprintf("n%d", i), "nodeType": "scene_node", "title": "x",
			"position": map[string]float64{"x": 0, "y": 0},
		})
	}
	body, err := json.Marshal(map[string]interface{}{"nodes": nodes, "edges": []map[string]interface{}{}})
	require.NoError(t, err)

	req := authedRequest(http.MethodPost, "/api/v1/storymap/validate", body, author(), nil)
	rec := httptest.NewRecorder()
	handler.ValidateGraph(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetStoryMap_ReturnsDocumentWithETag(t *testing.T) {
	handler, repo := newTestHandler(t)
	seeded := seedNovel(t, repo, "novel-1")

	req := authedRequest(http.MethodGet, "/api/v1/novels/novel-1/storymap", nil, author(),
		map[string]string{"novelID": "novel-1"})
	rec := httptest.NewRecorder()
	handler.GetStoryMap(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, commands.FormatVersionETag(1), rec.Header().Get("ETag"))

	var doc storymap.GraphDocument
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Equal(t, seeded.DocumentID, doc.DocumentID)
	assert.Equal(t, 1, doc.Version)
}

func TestGetDocumentByID(t *testing.T) {
	handler, repo := newTestHandler(t)
	seeded := seedNovel(t, repo, "novel-1")

	req := authedRequest(http.MethodGet, "/api/v1/storymap/documents/"+seeded.DocumentID, nil, author(),
		map[string]string{"documentID": seeded.DocumentID})
	rec := httptest.NewRecorder()
	handler.GetDocumentByID(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, commands.FormatVersionETag(1), rec.Header().Get("ETag"))

	var doc storymap.GraphDocument
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Equal(t, "novel-1", doc.NovelID)
	assert.Equal(t, seeded.DocumentID, doc.DocumentID)
}

func TestGetDocumentByID_NotFound(t *testing.T) {
	handler, _ := newTestHandler(t)

	req := authedRequest(http.MethodGet, "/api/v1/storymap/documents/no-such-document", nil, author(),
		map[string]string{"documentID": "no-such-document"})
	rec := httptest.NewRecorder()
	handler.GetDocumentByID(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetStoryMap_ProvisionsOnFirstFetch(t *testing.T) {
	handler, repo := newTestHandler(t)

	req := authedRequest(http.MethodGet, "/api/v1/novels/fresh-novel/storymap", nil, author(),
		map[string]string{"novelID": "fresh-novel"})
	rec := httptest.NewRecorder()
	handler.GetStoryMap(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var doc storymap.GraphDocument
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Equal(t, "fresh-novel", doc.NovelID)
	assert.Equal(t, 1, doc.Version)

	// The provisioned document is persisted, not synthesized per request.
	stored, err := repo.FindActiveByNovelID(context.Background(), "fresh-novel")
	require.NoError(t, err)
	assert.Equal(t, doc.DocumentID, stored.DocumentID)
}
