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

func seedKeywords(t *testing.T, store interfaces.StorageManager, siteID string) {
	t.Helper()

	kws := []*models.Keyword{
		{SiteID: siteID, Keyword: "garden widgets", Frequency: 40, OpportunityScore: 62.5, IsOpportunity: true},
		{SiteID: siteID, Keyword: "widget care", Frequency: 22, OpportunityScore: 31.0, IsOpportunity: true},
		{SiteID: siteID, Keyword: "the", Frequency: 300, OpportunityScore: 2.0, IsOpportunity: false},
	}
	require.NoError(t, store.KeywordStorage().BulkUpsert(context.Background(), siteID, kws))
}

func TestGetOpportunitiesHandler(t *testing.T) {
	store := newTestStorage(t)
	site := seedSite(t, store, "example.com")
	seedKeywords(t, store, site.ID)

	handler := NewOpportunityHandler(store.SiteStorage(), store.KeywordStorage(), common.GetLogger())

	req := httptest.NewRequest("GET", "/api/v1/opportunities/example.com", nil)
	rec := httptest.NewRecorder()

	handler.GetOpportunitiesHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody(t, rec)
	assert.Equal(t, "example.com", resp["domain"])
	assert.Equal(t, float64(3), resp["total_keywords"])

	opportunities := resp["opportunities"].([]interface{})
	require.Len(t, opportunities, 2)

	// Highest opportunity score first
	first := opportunities[0].(map[string]interface{})
	assert.Equal(t, "garden widgets", first["keyword"])
}

func TestGetOpportunitiesHandler_MinScore(t *testing.T) {
	store := newTestStorage(t)
	site := seedSite(t, store, "example.com")
	seedKeywords(t, store, site.ID)

	handler := NewOpportunityHandler(store.SiteStorage(), store.KeywordStorage(), common.GetLogger())

	req := httptest.NewRequest("GET", "/api/v1/opportunities/example.com?min_score=50", nil)
	rec := httptest.NewRecorder()

	handler.GetOpportunitiesHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody(t, rec)

	opportunities := resp["opportunities"].([]interface{})
	require.Len(t, opportunities, 1)
	first := opportunities[0].(map[string]interface{})
	assert.Equal(t, "garden widgets", first["keyword"])
}

func TestGetOpportunitiesHandler_Limit(t *testing.T) {
	store := newTestStorage(t)
	site := seedSite(t, store, "example.com")
	seedKeywords(t, store, site.ID)

	handler := NewOpportunityHandler(store.SiteStorage(), store.KeywordStorage(), common.GetLogger())

	req := httptest.NewRequest("GET", "/api/v1/opportunities/example.com?limit=1", nil)
	rec := httptest.NewRecorder()

	handler.GetOpportunitiesHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody(t, rec)
	assert.Len(t, resp["opportunities"], 1)
}

func TestGetOpportunitiesHandler_UnknownDomain(t *testing.T) {
	store := newTestStorage(t)
	handler := NewOpportunityHandler(store.SiteStorage(), store.KeywordStorage(), common.GetLogger())

	req := httptest.NewRequest("GET", "/api/v1/opportunities/unknown.com", nil)
	rec := httptest.NewRecorder()

	handler.GetOpportunitiesHandler(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	resp := decodeBody(t, rec)
	assert.Equal(t, "Domain 'unknown.com' not found", resp["error"])
}
