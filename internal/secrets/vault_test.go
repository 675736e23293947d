package secrets

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVaultStoreReadCoercesValue(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/secret/data/uk-prod/fake-ask/DB_PASSWORD", r.URL.Path)
		assert.Equal(t, "test-token", r.Header.Get("X-Vault-Token"))
		fmt.Fprint(w, `{"data":{"data":{"value":"hunter2"}}}`)
	}))
	defer srv.Close()

	store, err := NewVaultStore(srv.URL, "test-token", "secret")
	require.NoError(t, err)

	v, err := store.Read("uk-prod/fake-ask/DB_PASSWORD")
	require.NoError(t, err)
	assert.Equal(t, "hunter2", v)
}

func TestVaultStoreReadMissingSecret(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	store, err := NewVaultStore(srv.URL, "test-token", "secret")
	require.NoError(t, err)

	_, err = store.Read("uk-prod/fake-ask/MISSING")
	assert.Error(t, err)
}

func TestVaultStoreListFiltersSubfolders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":{"keys":["DB_PASSWORD","API_KEY","nested/"]}}`)
	}))
	defer srv.Close()

	store, err := NewVaultStore(srv.URL, "test-token", "secret")
	require.NoError(t, err)

	keys, err := store.List("uk-prod/fake-ask")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"DB_PASSWORD", "API_KEY"}, keys)
}
