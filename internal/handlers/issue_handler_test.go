package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/censeo/internal/common"
	"github.com/ternarybob/censeo/internal/interfaces"
	"github.com/ternarybob/censeo/internal/models"
)

func seedIssues(t *testing.T, store interfaces.StorageManager, siteID string) {
	t.Helper()

	issues := []*models.Issue{
		{SiteID: siteID, PageID: "page-1", IssueType: "missing_title", Severity: models.SeverityCritical, Title: "Missing title tag"},
		{SiteID: siteID, PageID: "page-1", IssueType: "thin_content", Severity: models.SeverityMedium, Title: "Thin content"},
		{SiteID: siteID, PageID: "page-1", IssueType: "missing_alt", Severity: models.SeverityMedium, Title: "Images missing alt text"},
	}
	require.NoError(t, store.IssueStorage().ReplaceForPage(context.Background(), siteID, "page-1", issues))
}

func TestGetIssuesHandler(t *testing.T) {
	store := newTestStorage(t)
	site := seedSite(t, store, "example.com")
	seedIssues(t, store, site.ID)

	handler := NewIssueHandler(store.SiteStorage(), store.IssueStorage(), common.GetLogger())

	req := httptest.NewRequest("GET", "/api/v1/issues/example.com", nil)
	rec := httptest.NewRecorder()

	handler.GetIssuesHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody(t, rec)
	assert.Equal(t, "example.com", resp["domain"])
	assert.Equal(t, float64(3), resp["total_issues"])

	counts := resp["counts_by_severity"].(map[string]interface{})
	assert.Equal(t, float64(1), counts["critical"])
	assert.Equal(t, float64(0), counts["high"])
	assert.Equal(t, float64(2), counts["medium"])

	issues := resp["issues"].([]interface{})
	require.Len(t, issues, 3)

	// Most severe first
	first := issues[0].(map[string]interface{})
	assert.Equal(t, "critical", first["severity"])
}

func TestGetIssuesHandler_SeverityFilter(t *testing.T) {
	store := newTestStorage(t)
	site := seedSite(t, store, "example.com")
	seedIssues(t, store, site.ID)

	handler := NewIssueHandler(store.SiteStorage(), store.IssueStorage(), common.GetLogger())

	req := httptest.NewRequest("GET", "/api/v1/issues/example.com?severity=medium", nil)
	rec := httptest.NewRecorder()

	handler.GetIssuesHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody(t, rec)

	issues := resp["issues"].([]interface{})
	require.Len(t, issues, 2)
	for _, raw := range issues {
		issue := raw.(map[string]interface{})
		assert.Equal(t, "medium", issue["severity"])
	}
}

func TestGetIssuesHandler_InvalidSeverity(t *testing.T) {
	store := newTestStorage(t)
	seedSite(t, store, "example.com")

	handler := NewIssueHandler(store.SiteStorage(), store.IssueStorage(), common.GetLogger())

	req := httptest.NewRequest("GET", "/api/v1/issues/example.com?severity=urgent", nil)
	rec := httptest.NewRecorder()

	handler.GetIssuesHandler(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeBody(t, rec)
	assert.Equal(t, "Invalid severity 'urgent'. Use: critical, high, medium, low, info", resp["error"])
}

func TestGetIssuesHandler_UnknownDomain(t *testing.T) {
	store := newTestStorage(t)
	handler := NewIssueHandler(store.SiteStorage(), store.IssueStorage(), common.GetLogger())

	req := httptest.NewRequest("GET", "/api/v1/issues/unknown.com", nil)
	rec := httptest.NewRecorder()

	handler.GetIssuesHandler(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	resp := decodeBody(t, rec)
	assert.Equal(t, "Domain 'unknown.com' not found", resp["error"])
}
