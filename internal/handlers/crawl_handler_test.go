package handlers

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/censeo/internal/common"
	"github.com/ternarybob/censeo/internal/models"
)

// mockPipeline implements interfaces.PipelineService for handler tests.
type mockPipeline struct {
	submitFunc func(ctx context.Context, req *models.CrawlRequest) (*models.CrawlResponse, error)
	cancelFunc func(ctx context.Context, jobID string) error
}

func (m *mockPipeline) SubmitCrawl(ctx context.Context, req *models.CrawlRequest) (*models.CrawlResponse, error) {
	if m.submitFunc != nil {
		return m.submitFunc(ctx, req)
	}
	return &models.CrawlResponse{
		JobID:   "job-1",
		SiteID:  "site-1",
		Status:  string(models.JobStatusPending),
		Message: "Crawl job created and queued",
		Domain:  "example.com",
	}, nil
}

func (m *mockPipeline) CancelJob(ctx context.Context, jobID string) error {
	if m.cancelFunc != nil {
		return m.cancelFunc(ctx, jobID)
	}
	return nil
}

func (m *mockPipeline) Start() error                  { return nil }
func (m *mockPipeline) Stop(ctx context.Context) error { return nil }

func newCrawlHandler(t *testing.T, pipeline *mockPipeline) *CrawlHandler {
	t.Helper()
	store := newTestStorage(t)
	return NewCrawlHandler(pipeline, store.CrawlJobStorage(), common.GetLogger())
}

func TestSubmitHandler_Accepted(t *testing.T) {
	var captured *models.CrawlRequest
	pipeline := &mockPipeline{
		submitFunc: func(ctx context.Context, req *models.CrawlRequest) (*models.CrawlResponse, error) {
			captured = req
			return &models.CrawlResponse{
				JobID:  "job-42",
				SiteID: "site-7",
				Status: string(models.JobStatusPending),
				Domain: "example.com",
			}, nil
		},
	}
	handler := newCrawlHandler(t, pipeline)

	body := `{"url":"https://example.com","max_depth":3,"max_pages":50}`
	req := httptest.NewRequest("POST", "/api/v1/crawl", strings.NewReader(body))
	rec := httptest.NewRecorder()

	handler.SubmitHandler(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	require.NotNil(t, captured)
	assert.Equal(t, "https://example.com", captured.URL)
	assert.Equal(t, 3, captured.MaxDepth)

	resp := decodeBody(t, rec)
	assert.Equal(t, "job-42", resp["job_id"])
	assert.Equal(t, "pending", resp["status"])
	assert.Equal(t, "example.com", resp["domain"])
}

func TestSubmitHandler_InvalidBody(t *testing.T) {
	handler := newCrawlHandler(t, &mockPipeline{})

	req := httptest.NewRequest("POST", "/api/v1/crawl", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()

	handler.SubmitHandler(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeBody(t, rec)
	assert.Equal(t, "error", resp["status"])
	assert.Equal(t, "Invalid request body", resp["error"])
}

func TestSubmitHandler_MissingURL(t *testing.T) {
	handler := newCrawlHandler(t, &mockPipeline{})

	req := httptest.NewRequest("POST", "/api/v1/crawl", strings.NewReader(`{"max_depth":2}`))
	rec := httptest.NewRecorder()

	handler.SubmitHandler(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeBody(t, rec)
	assert.Contains(t, resp["error"], "URL")
}

func TestSubmitHandler_DepthOutOfRange(t *testing.T) {
	handler := newCrawlHandler(t, &mockPipeline{})

	req := httptest.NewRequest("POST", "/api/v1/crawl", strings.NewReader(`{"url":"https://example.com","max_depth":99}`))
	rec := httptest.NewRecorder()

	handler.SubmitHandler(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmitHandler_Conflict(t *testing.T) {
	pipeline := &mockPipeline{
		submitFunc: func(ctx context.Context, req *models.CrawlRequest) (*models.CrawlResponse, error) {
			return nil, &models.JobConflictError{Domain: "example.com", JobID: "job-9"}
		},
	}
	handler := newCrawlHandler(t, pipeline)

	req := httptest.NewRequest("POST", "/api/v1/crawl", strings.NewReader(`{"url":"https://example.com"}`))
	rec := httptest.NewRecorder()

	handler.SubmitHandler(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
	resp := decodeBody(t, rec)
	assert.Equal(t, "A crawl is already running for example.com. Job ID: job-9", resp["error"])
}

func TestSubmitHandler_UnparseableURL(t *testing.T) {
	pipeline := &mockPipeline{
		submitFunc: func(ctx context.Context, req *models.CrawlRequest) (*models.CrawlResponse, error) {
			parseErr := &url.Error{Op: "parse", URL: req.URL, Err: fmt.Errorf("invalid control character in URL")}
			return nil, fmt.Errorf("invalid crawl URL %q: %w", req.URL, parseErr)
		},
	}
	handler := newCrawlHandler(t, pipeline)

	req := httptest.NewRequest("POST", "/api/v1/crawl", strings.NewReader(`{"url":"https://bad domain"}`))
	rec := httptest.NewRecorder()

	handler.SubmitHandler(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmitHandler_MethodNotAllowed(t *testing.T) {
	handler := newCrawlHandler(t, &mockPipeline{})

	req := httptest.NewRequest("GET", "/api/v1/crawl", nil)
	rec := httptest.NewRecorder()

	handler.SubmitHandler(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestJobStatusHandler(t *testing.T) {
	store := newTestStorage(t)
	handler := NewCrawlHandler(&mockPipeline{}, store.CrawlJobStorage(), common.GetLogger())

	job := &models.CrawlJob{
		ID:       "job-abc",
		SiteID:   "site-1",
		Status:   models.JobStatusRunning,
		StartURL: "https://example.com",
	}
	require.NoError(t, store.CrawlJobStorage().Create(context.Background(), job))

	req := httptest.NewRequest("GET", "/api/v1/crawl/job/job-abc", nil)
	rec := httptest.NewRecorder()

	handler.JobStatusHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody(t, rec)
	assert.Equal(t, "job-abc", resp["id"])
	assert.Equal(t, "running", resp["status"])
}

func TestJobStatusHandler_NotFound(t *testing.T) {
	handler := newCrawlHandler(t, &mockPipeline{})

	req := httptest.NewRequest("GET", "/api/v1/crawl/job/missing", nil)
	rec := httptest.NewRecorder()

	handler.JobStatusHandler(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	resp := decodeBody(t, rec)
	assert.Equal(t, "Crawl job missing not found", resp["error"])
}

func TestCancelJobHandler(t *testing.T) {
	var cancelled string
	pipeline := &mockPipeline{
		cancelFunc: func(ctx context.Context, jobID string) error {
			cancelled = jobID
			return nil
		},
	}
	handler := newCrawlHandler(t, pipeline)

	req := httptest.NewRequest("POST", "/api/v1/crawl/job/job-abc/cancel", nil)
	rec := httptest.NewRecorder()

	handler.CancelJobHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "job-abc", cancelled)

	resp := decodeBody(t, rec)
	assert.Equal(t, "cancelling", resp["status"])
	assert.Equal(t, "job-abc", resp["job_id"])
}

func TestCancelJobHandler_NotFound(t *testing.T) {
	pipeline := &mockPipeline{
		cancelFunc: func(ctx context.Context, jobID string) error {
			return models.ErrJobNotFound
		},
	}
	handler := newCrawlHandler(t, pipeline)

	req := httptest.NewRequest("POST", "/api/v1/crawl/job/missing/cancel", nil)
	rec := httptest.NewRecorder()

	handler.CancelJobHandler(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCancelJobHandler_AlreadyTerminal(t *testing.T) {
	pipeline := &mockPipeline{
		cancelFunc: func(ctx context.Context, jobID string) error {
			return fmt.Errorf("job already completed: %w", models.ErrInvalidTransition)
		},
	}
	handler := newCrawlHandler(t, pipeline)

	req := httptest.NewRequest("POST", "/api/v1/crawl/job/job-done/cancel", nil)
	rec := httptest.NewRecorder()

	handler.CancelJobHandler(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}
