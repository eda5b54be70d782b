package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deskops/helpdesk-admin/internal/domain"
)

func writeCatalog(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadCatalogDefaults(t *testing.T) {
	catalog, err := LoadCatalog("")
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultCatalog(), catalog)
}

func TestLoadCatalogOverridesAndAppends(t *testing.T) {
	path := writeCatalog(t, `
resources:
  - name: categories
    entity: category
    collection: categories
    id_field: category_id
    path: /v2/admin/categories/
  - name: rfqs
    supports_inactive: true
`)
	catalog, err := LoadCatalog(path)
	require.NoError(t, err)
	require.Len(t, catalog, len(domain.DefaultCatalog())+1)

	assert.Equal(t, "/v2/admin/categories", catalog[0].Path)

	added := catalog[len(catalog)-1]
	assert.Equal(t, "rfqs", added.Name)
	assert.Equal(t, "rfq", added.Entity)
	assert.Equal(t, "rfq_id", added.IDField)
	assert.Equal(t, "/admin/rfqs", added.Path)
	assert.True(t, added.SupportsInactive)
}

func TestLoadCatalogErrors(t *testing.T) {
	_, err := LoadCatalog(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = LoadCatalog(writeCatalog(t, "resources: [unterminated"))
	assert.Error(t, err)

	_, err = LoadCatalog(writeCatalog(t, "resources:\n  - path: /x\n"))
	assert.ErrorContains(t, err, "without name")
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("BACKEND_BASE_URL", "https://helpdesk.example/api")
	t.Setenv("SLICE_LATEST_REQUEST_WINS", "true")
	t.Setenv("AUTH_OPERATOR_EMAIL", "Ops@Example.com")
	t.Setenv("REDIS_DB", "2")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://helpdesk.example/api", cfg.Backend.BaseURL)
	assert.True(t, cfg.Slice.LatestRequestWins)
	assert.Equal(t, "ops@example.com", cfg.Auth.OperatorEmail)
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.NotEmpty(t, cfg.Catalog)

	t.Setenv("REDIS_DB", "two")
	_, err = Load()
	assert.Error(t, err)
}
