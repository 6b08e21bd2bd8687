package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timmy/quill/internal/api/handler"
	"github.com/timmy/quill/internal/config"
	"github.com/timmy/quill/internal/domain"
	"github.com/timmy/quill/internal/llm"
	"github.com/timmy/quill/internal/logger"
	"github.com/timmy/quill/internal/repository"
	"github.com/timmy/quill/internal/service"
)

type testServer struct {
	engine *gin.Engine
	mock   *llm.MockClient
	orch   *service.Orchestrator
}

func newTestServer(t *testing.T, families ...string) *testServer {
	t.Helper()
	db, err := repository.InitDB(&config.DatabaseConfig{
		Driver:      "sqlite",
		Path:        filepath.Join(t.TempDir(), "quill.db"),
		AutoMigrate: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	router := llm.NewRouter(nil)
	ts := &testServer{}
	for _, fam := range families {
		m := llm.NewMockClient(fam)
		if ts.mock == nil {
			ts.mock = m
		}
		router.Register(m)
	}
	registry := service.NewTaskRegistry(2)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = registry.Shutdown(ctx)
	})

	ts.orch = service.NewOrchestrator(repository.NewArticleRepository(db), router, nil, nil, registry, &service.OrchestratorConfig{
		DefaultModel: "gpt-4o-mini",
		Preflight:    true,
	})
	ts.engine = SetupRouter(ts.orch, &config.ServerConfig{Mode: "test"}, logger.New(&logger.Config{Level: "error", Format: "json", Output: io.Discard}))
	return ts
}

func (ts *testServer) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	ts.engine.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v))
}

func (ts *testServer) waitStatus(t *testing.T, id string, want domain.JobStatus) {
	t.Helper()
	require.Eventually(t, func() bool {
		var view service.StatusView
		w := ts.do(t, http.MethodGet, "/api/v1/articles/"+id+"/status", nil)
		if w.Code != http.StatusOK {
			return false
		}
		_ = json.Unmarshal(w.Body.Bytes(), &view)
		return view.Status == want && !view.Running
	}, 5*time.Second, 10*time.Millisecond)
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, config.FamilyOpenAI)
	w := ts.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Status    string          `json:"status"`
		Providers map[string]bool `json:"providers"`
	}
	decode(t, w, &body)
	assert.Equal(t, "ok", body.Status)
	assert.True(t, body.Providers[config.FamilyOpenAI])
	assert.False(t, body.Providers[config.FamilyAnthropic])
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestHealthDegradedWithoutProviders(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(t, http.MethodGet, "/health", nil)
	assert.Contains(t, w.Body.String(), `"degraded"`)

	w = ts.do(t, http.MethodGet, "/api/v1/models", nil)
	assert.Contains(t, w.Body.String(), `"total":0`)
}

func TestModelsMarksSubstitutes(t *testing.T) {
	ts := newTestServer(t, config.FamilyOpenAI)
	w := ts.do(t, http.MethodGet, "/api/v1/models", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Models []domain.ModelDescriptor `json:"models"`
	}
	decode(t, w, &body)
	require.NotEmpty(t, body.Models)
	for _, m := range body.Models {
		assert.Equal(t, config.FamilyOpenAI, m.Family)
		if m.Substituted {
			assert.True(t, strings.HasSuffix(m.Name, "(via openai)"), m.Name)
		}
	}
}

func TestRequestIDIsPropagated(t *testing.T) {
	ts := newTestServer(t, config.FamilyOpenAI)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "req-123")
	w := httptest.NewRecorder()
	ts.engine.ServeHTTP(w, req)
	assert.Equal(t, "req-123", w.Header().Get("X-Request-ID"))
}

func TestArticleLifecycle(t *testing.T) {
	ts := newTestServer(t, config.FamilyOpenAI)
	ts.mock.ArticleFunc = func(ctx context.Context, req llm.ArticleRequest) (*llm.Completion, error) {
		return &llm.Completion{Text: "# T\n\n" + strings.Repeat("word ", 1000), Model: req.Model, Usage: domain.NewUsage(100, 900)}, nil
	}

	w := ts.do(t, http.MethodPost, "/api/v1/articles", gin.H{
		"topic":  "Photosynthesis",
		"thesis": "Plants convert light to energy",
	})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	var created struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	decode(t, w, &created)
	require.NotEmpty(t, created.ID)
	assert.Equal(t, "pending", created.Status)

	ts.waitStatus(t, created.ID, domain.JobStatusCompleted)

	w = ts.do(t, http.MethodGet, "/api/v1/articles/"+created.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var res service.ResultView
	decode(t, w, &res)
	assert.Equal(t, domain.JobStatusCompleted, res.Article.Status)
	require.NotNil(t, res.Article.Score)
	require.Len(t, res.Usage, 1)
	assert.Equal(t, res.Usage[0].PromptTokens+res.Usage[0].CompletionTokens, res.Usage[0].TotalTokens)

	w = ts.do(t, http.MethodGet, "/api/v1/articles/"+created.ID+"/recommendations", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodGet, "/api/v1/articles?status=completed", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), created.ID)

	w = ts.do(t, http.MethodPost, "/api/v1/articles/"+created.ID+"/complete", gin.H{"content": "late"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = ts.do(t, http.MethodDelete, "/api/v1/articles/"+created.ID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = ts.do(t, http.MethodGet, "/api/v1/articles/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = ts.do(t, http.MethodDelete, "/api/v1/articles/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateRejections(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/api/v1/articles", gin.H{"topic": "only topic"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodPost, "/api/v1/articles", gin.H{"topic": "t", "thesis": "x", "model": "claude-3-opus-20240229"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	var body handler.ErrorResponse
	decode(t, w, &body)
	assert.Equal(t, "model_unavailable", body.Code)

	w = ts.do(t, http.MethodGet, "/api/v1/articles", nil)
	assert.Contains(t, w.Body.String(), `"count":0`)
}

func TestCancelRunningArticle(t *testing.T) {
	ts := newTestServer(t, config.FamilyOpenAI)
	ts.mock.OutlineFunc = func(ctx context.Context, req llm.OutlineRequest) (*llm.Completion, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	w := ts.do(t, http.MethodPost, "/api/v1/articles", gin.H{"topic": "t", "thesis": "x"})
	require.Equal(t, http.StatusAccepted, w.Code)
	var created struct{ ID string }
	decode(t, w, &created)
	require.Eventually(t, func() bool { return ts.mock.CountOp("outline") == 1 }, 2*time.Second, 5*time.Millisecond)

	w = ts.do(t, http.MethodPost, "/api/v1/articles/"+created.ID+"/cancel", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"cancelled":true`)

	ts.waitStatus(t, created.ID, domain.JobStatusFailed)
	w = ts.do(t, http.MethodGet, "/api/v1/articles/"+created.ID+"/status", nil)
	var view service.StatusView
	decode(t, w, &view)
	assert.True(t, domain.IsCancelledMessage(view.Error))
}

func TestCompleteExternallyEndpoint(t *testing.T) {
	ts := newTestServer(t, config.FamilyOpenAI)
	a, err := ts.orch.Submit(context.Background(), service.SubmitRequest{Topic: "t", Thesis: "x"})
	require.NoError(t, err)

	w := ts.do(t, http.MethodPost, "/api/v1/articles/"+a.ID+"/complete", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodPost, "/api/v1/articles/"+a.ID+"/complete", gin.H{
		"content": "# External\n\nWritten elsewhere.",
		"usage":   gin.H{"prompt_tokens": 10, "completion_tokens": 20, "total_tokens": 30},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var got domain.Article
	decode(t, w, &got)
	assert.Equal(t, domain.JobStatusCompleted, got.Status)
	assert.Equal(t, service.ExternalProvider, got.Provider)

	w = ts.do(t, http.MethodPost, "/api/v1/articles/missing/complete", gin.H{"content": "x"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}
