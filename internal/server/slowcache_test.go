package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSentrySlugFindsMatchingProject(t *testing.T) {
	t.Setenv("SENTRY_TOKEN", "tok")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.Write([]byte(`[{"slug":"fake-ask-prod","name":"fake-ask"}]`))
	}))
	defer srv.Close()

	slug, err := sentrySlug(context.Background(), srv.URL, "uk-prod", "fake-ask")
	require.NoError(t, err)
	assert.Equal(t, "fake-ask-prod", slug)
}

func TestSentrySlugMissingToken(t *testing.T) {
	t.Setenv("SENTRY_TOKEN", "")
	_, err := sentrySlug(context.Background(), "https://sentry.example.com", "uk-prod", "fake-ask")
	assert.Error(t, err)
}

func TestSentrySlugNoMatch(t *testing.T) {
	t.Setenv("SENTRY_TOKEN", "tok")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"slug":"other","name":"other-svc"}]`))
	}))
	defer srv.Close()

	_, err := sentrySlug(context.Background(), srv.URL, "uk-prod", "fake-ask")
	assert.Error(t, err)
}
