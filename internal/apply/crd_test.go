package apply

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/shipcat/shipcat/internal/config"
	"github.com/shipcat/shipcat/internal/manifest"
)

func sampleCompleted() *manifest.Manifest {
	replicas := 2
	return &manifest.Manifest{
		Name:         "fake-ask",
		Image:        "quay.io/babylonhealth/fake-ask",
		Version:      "1.6.0",
		ReplicaCount: &replicas,
		Namespace:    "dev",
		Env:          map[string]string{"CORE_URL": "https://woot.com/somesvc"},
		EnvSecrets:   map[string]string{"FAKE_SECRET": "hunter2hunter2"},
	}
}

func TestToCRDStripsSecrets(t *testing.T) {
	obj, err := ToCRD(sampleCompleted(), "dev")
	require.NoError(t, err)

	assert.Equal(t, "ShipcatManifest", obj.GetKind())
	assert.Equal(t, "fake-ask", obj.GetName())
	assert.Equal(t, "dev", obj.GetNamespace())

	spec, found, err := unstructured.NestedMap(obj.Object, "spec")
	require.NoError(t, err)
	require.True(t, found)
	_, hasSecrets := spec["envSecrets"]
	assert.False(t, hasSecrets)
	_, hasSecretFiles := spec["secretFilesResolved"]
	assert.False(t, hasSecretFiles)
}

func TestFromCRDRoundTripsBaseFields(t *testing.T) {
	m := sampleCompleted()
	obj, err := ToCRD(m, "dev")
	require.NoError(t, err)

	back, err := FromCRD(obj)
	require.NoError(t, err)
	assert.Equal(t, m.Name, back.Name)
	assert.Equal(t, m.Version, back.Version)
	assert.Equal(t, m.Env["CORE_URL"], back.Env["CORE_URL"])
	assert.Empty(t, back.EnvSecrets)
}

func TestFromCRDFailsWithoutSpec(t *testing.T) {
	obj, err := ToCRD(sampleCompleted(), "dev")
	require.NoError(t, err)
	delete(obj.Object, "spec")

	_, err = FromCRD(obj)
	assert.Error(t, err)
}

func TestToConfigCRDRoundTripsThroughFromConfigCRD(t *testing.T) {
	conf := &config.Config{
		Regions: map[string]config.Region{
			"uk-prod": {Name: "uk-prod", Namespace: "prod", VersionScheme: config.SchemeSemver},
		},
		Teams: []config.Team{{Name: "core", Owner: "core@example.com"}},
	}

	obj, err := ToConfigCRD(conf, "uk-prod")
	require.NoError(t, err)
	assert.Equal(t, "ShipcatConfig", obj.GetKind())
	assert.Equal(t, "uk-prod", obj.GetName())
	assert.Equal(t, "prod", obj.GetNamespace())

	back, err := FromConfigCRD(obj)
	require.NoError(t, err)
	assert.Equal(t, conf.Teams[0].Name, back.Teams[0].Name)
	assert.Equal(t, conf.Regions["uk-prod"].VersionScheme, back.Regions["uk-prod"].VersionScheme)
}

func TestFromConfigCRDFailsWithoutSpec(t *testing.T) {
	obj, err := ToConfigCRD(&config.Config{Regions: map[string]config.Region{}}, "uk-prod")
	require.NoError(t, err)
	delete(obj.Object, "spec")

	_, err = FromConfigCRD(obj)
	assert.Error(t, err)
}
