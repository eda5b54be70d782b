package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deskops/helpdesk-admin/internal/auth"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("RESOURCE_CATALOG_FILE", "")
	t.Setenv("BACKEND_SESSION_VALUE", "")

	baseURL, sessionValue, verbose = "", "", false
	includeInactive, filterPairs, hashCost = false, nil, 0

	var out bytes.Buffer
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func backend(t *testing.T) string {
	t.Helper()
	r := chi.NewRouter()
	r.Get("/admin/categories", func(w http.ResponseWriter, req *http.Request) {
		rows := []any{map[string]any{"category_id": 1, "name": "Hardware"}}
		if req.URL.Query().Get("includeInactive") == "true" {
			rows = append(rows, map[string]any{"category_id": 2, "name": "Legacy"})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"categories": rows, "filter": req.URL.Query().Get("parent")})
	})
	r.Delete("/admin/categories/{id}", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"message": "deleted"})
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv.URL
}

func TestParsePairs(t *testing.T) {
	got, err := parsePairs([]string{"parent=4", " status =open", "note=a=b"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"parent": "4", "status": "open", "note": "a=b"}, got)

	for _, bad := range []string{"novalue", "=x"} {
		_, err := parsePairs([]string{bad})
		assert.Error(t, err, bad)
	}
}

func TestParseRecordKeepsNumbers(t *testing.T) {
	rec, err := parseRecord(`{"priority_id": 12345678901234567890, "name": "HIGH"}`)
	require.NoError(t, err)
	assert.Equal(t, json.Number("12345678901234567890"), rec["priority_id"])

	_, err = parseRecord(`{broken`)
	assert.Error(t, err)
}

func TestHashPasswordCommand(t *testing.T) {
	out, err := execute(t, "s3cret\n", "hash-password", "--cost", "4")
	require.NoError(t, err)

	hashed := strings.TrimSpace(out)
	assert.NoError(t, auth.ComparePassword(hashed, "s3cret"))

	_, err = execute(t, "\n", "hash-password")
	assert.EqualError(t, err, "empty password")
}

func TestListCommandPrintsState(t *testing.T) {
	url := backend(t)

	out, err := execute(t, "", "list", "categories", "--base-url", url, "--include-inactive")
	require.NoError(t, err)

	var state struct {
		Items  []map[string]any  `json:"items"`
		Status map[string]string `json:"status"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &state))
	assert.Len(t, state.Items, 2)
	assert.Equal(t, "fulfilled", state.Status["fetch"])
}

func TestListCommandRejectsUnknownResource(t *testing.T) {
	_, err := execute(t, "", "list", "nope", "--base-url", backend(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown resource")
}

func TestDeleteCommand(t *testing.T) {
	out, err := execute(t, "", "delete", "categories", "1", "--base-url", backend(t))
	require.NoError(t, err)
	assert.JSONEq(t, `{"deleted":"1"}`, out)
}

func TestResourcesCommandListsCatalog(t *testing.T) {
	out, err := execute(t, "", "resources")
	require.NoError(t, err)
	assert.Contains(t, out, `"name": "categories"`)
	assert.Contains(t, out, `"name": "tickets"`)
}
