package vaultrepo_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/jrsteele09/storyforge/credential"
	"github.com/jrsteele09/storyforge/credential/vaultrepo"
	"github.com/stretchr/testify/require"
)

// fakeVault speaks just enough of the KV v2 HTTP API for the repo.
type fakeVault struct {
	mu   sync.Mutex
	data map[string]interface{}
	hits map[string]int
}

func newFakeVault(t *testing.T) (*fakeVault, *httptest.Server) {
	t.Helper()
	fv := &fakeVault{hits: map[string]int{}}
	srv := httptest.NewServer(http.HandlerFunc(fv.serve))
	t.Cleanup(srv.Close)
	return fv, srv
}

func (fv *fakeVault) serve(w http.ResponseWriter, r *http.Request) {
	fv.mu.Lock()
	defer fv.mu.Unlock()
	fv.hits[r.Method+" "+r.URL.Path]++

	switch {
	case r.URL.Path == "/v1/secret/data/storyforge/credential" && r.Method == http.MethodGet:
		if fv.data == nil {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"errors":[]}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"data": map[string]interface{}{"data": fv.data, "metadata": map[string]interface{}{"version": 1}},
		})
	case r.URL.Path == "/v1/secret/data/storyforge/credential" && (r.Method == http.MethodPut || r.Method == http.MethodPost):
		var body struct {
			Data map[string]interface{} `json:"data"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		fv.data = body.Data
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"data": map[string]interface{}{"version": 1}})
	case r.URL.Path == "/v1/secret/metadata/storyforge/credential" && r.Method == http.MethodDelete:
		fv.data = nil
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func TestVaultRepo_RoundTrip(t *testing.T) {
	fv, srv := newFakeVault(t)
	repo, err := vaultrepo.New(srv.URL, "test-token", "secret/storyforge/credential")
	require.NoError(t, err)

	_, err = repo.Load()
	require.ErrorIs(t, err, credential.ErrNotFound)

	require.NoError(t, repo.Save(credential.New("access-1", "refresh-1")))
	require.Equal(t, "access-1", fv.data["accessToken"])

	loaded, err := repo.Load()
	require.NoError(t, err)
	require.Equal(t, "access-1", loaded.AccessToken)
	require.Equal(t, "refresh-1", loaded.RefreshToken)

	require.NoError(t, repo.Delete())
	require.Equal(t, 1, fv.hits["DELETE /v1/secret/metadata/storyforge/credential"])

	_, err = repo.Load()
	require.ErrorIs(t, err, credential.ErrNotFound)
}

func TestVaultRepo_InvalidLocation(t *testing.T) {
	_, err := vaultrepo.New("http://127.0.0.1:8200", "", "secret")
	require.Error(t, err)
}
