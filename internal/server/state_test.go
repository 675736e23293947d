package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/shipcat/shipcat/internal/config"
	"github.com/shipcat/shipcat/internal/manifest"
)

func testState() *State {
	s := NewState(nil, "uk-prod", "dev", zap.NewNop())
	s.data = snapshot{
		manifests: map[string]*manifest.Manifest{
			"fake-ask": {
				Name:         "fake-ask",
				Metadata:     &manifest.Metadata{Team: "core"},
				Dependencies: []manifest.Dependency{{Name: "fake-storage"}},
			},
			"fake-storage": {
				Name:     "fake-storage",
				Metadata: &manifest.Metadata{Team: "platform"},
			},
		},
		config: &config.Config{
			Teams: []config.Team{
				{Name: "core", Owner: "core@example.com"},
				{Name: "platform", Owner: "platform@example.com"},
			},
		},
		relics:   map[string]string{"fake-ask": "https://rpm.newrelic.com/x"},
		sentries: map[string]string{"fake-ask": "fake-ask-sentry"},
	}
	return s
}

func TestManifestLookup(t *testing.T) {
	s := testState()
	m, ok := s.Manifest("fake-ask")
	assert.True(t, ok)
	assert.Equal(t, "fake-ask", m.Name)

	_, ok = s.Manifest("does-not-exist")
	assert.False(t, ok)
}

func TestManifestsForTeam(t *testing.T) {
	s := testState()
	assert.Equal(t, []string{"fake-ask"}, s.ManifestsForTeam("core"))
	assert.Equal(t, []string{"fake-storage"}, s.ManifestsForTeam("platform"))
	assert.Empty(t, s.ManifestsForTeam("unknown"))
}

func TestReverseDeps(t *testing.T) {
	s := testState()
	assert.Equal(t, []string{"fake-ask"}, s.ReverseDeps("fake-storage"))
	assert.Empty(t, s.ReverseDeps("fake-ask"))
}

func TestIntegrationLinkLookups(t *testing.T) {
	s := testState()
	link, ok := s.NewRelicLink("fake-ask")
	assert.True(t, ok)
	assert.Equal(t, "https://rpm.newrelic.com/x", link)

	slug, ok := s.SentrySlug("fake-ask")
	assert.True(t, ok)
	assert.Equal(t, "fake-ask-sentry", slug)

	_, ok = s.NewRelicLink("fake-storage")
	assert.False(t, ok)
}

func TestTeamSlug(t *testing.T) {
	assert.Equal(t, "core-platform", TeamSlug("Core/Platform"))
	assert.Equal(t, "data_science", TeamSlug("Data Science"))
}
