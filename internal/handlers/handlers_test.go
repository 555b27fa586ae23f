package handlers

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/censeo/internal/common"
	"github.com/ternarybob/censeo/internal/interfaces"
	"github.com/ternarybob/censeo/internal/models"
	"github.com/ternarybob/censeo/internal/storage/badger"
)

// newTestStorage opens a throwaway badger store for handler tests.
func newTestStorage(t *testing.T) interfaces.StorageManager {
	t.Helper()

	cfg := common.NewDefaultConfig()
	cfg.Storage.Dir = t.TempDir()

	store, err := badger.NewManager(common.GetLogger(), &cfg.Storage)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func seedSite(t *testing.T, store interfaces.StorageManager, domain string) *models.Site {
	t.Helper()

	site := &models.Site{
		ID:             uuid.New().String(),
		Domain:         domain,
		Name:           domain,
		RootURL:        "https://" + domain,
		IsActive:       true,
		CrawlFrequency: models.CrawlFrequencyManual,
		MaxPages:       models.DefaultSiteMaxPages,
	}
	require.NoError(t, store.SiteStorage().Create(context.Background(), site))
	return site
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body), "response body is not valid JSON")
	return body
}
