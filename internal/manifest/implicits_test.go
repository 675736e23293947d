package manifest

import (
	"testing"

	"github.com/shipcat/shipcat/internal/config"
	"github.com/stretchr/testify/assert"
)

func sampleImplicitsConfig() (*config.Config, *config.Region) {
	conf := &config.Config{
		Defaults: config.Defaults{ImagePrefix: "registry.example.com", Chart: "raw"},
		Teams: []config.Team{
			{Name: "core", Owner: "core@example.com", Support: "#core-support", Notifications: "#core-notifications"},
		},
	}
	region := &config.Region{
		Name:        "dev-uk",
		Namespace:   "dev",
		Environment: "dev",
		Env:         map[string]string{"REGION_WIDE": "1"},
		BaseURLs:    map[string]string{"services": "https://woot.com"},
	}
	return conf, region
}

func TestApplyImplicitsInjectsRegionEnvWithoutOverridingSource(t *testing.T) {
	conf, region := sampleImplicitsConfig()
	m := &Manifest{Name: "webapp", Env: map[string]string{"REGION_WIDE": "mine"}}
	ApplyImplicits(m, conf, region)
	assert.Equal(t, "mine", m.Env["REGION_WIDE"])
}

func TestApplyImplicitsDerivesKongHosts(t *testing.T) {
	conf, region := sampleImplicitsConfig()
	m := &Manifest{Name: "webapp", Kong: &Kong{Host: "webapp"}}
	ApplyImplicits(m, conf, region)
	assert.Equal(t, []string{"https://woot.com/webapp"}, m.Kong.Hosts)
}

func TestApplyImplicitsDefaultsImageChartImageSize(t *testing.T) {
	conf, region := sampleImplicitsConfig()
	m := &Manifest{Name: "webapp"}
	ApplyImplicits(m, conf, region)
	assert.Equal(t, "registry.example.com/webapp", m.Image)
	assert.Equal(t, "raw", m.Chart)
	assert.Equal(t, 512, m.ImageSize)
}

func TestApplyImplicitsInjectsEnvironmentNamespaceRegion(t *testing.T) {
	conf, region := sampleImplicitsConfig()
	m := &Manifest{Name: "webapp"}
	ApplyImplicits(m, conf, region)
	assert.Equal(t, "dev", m.Environment)
	assert.Equal(t, "dev", m.Namespace)
	assert.Equal(t, "dev-uk", m.Region)
}

func TestApplyImplicitsResolvesTeamSupportAndNotifications(t *testing.T) {
	conf, region := sampleImplicitsConfig()
	m := &Manifest{Name: "webapp", Metadata: &Metadata{Team: "core"}}
	ApplyImplicits(m, conf, region)
	assert.Equal(t, "#core-support", m.Metadata.Support)
	assert.Equal(t, "#core-notifications", m.Metadata.Notifications)
}

func TestApplyImplicitsDoesNotOverrideExplicitMetadataFields(t *testing.T) {
	conf, region := sampleImplicitsConfig()
	m := &Manifest{Name: "webapp", Metadata: &Metadata{Team: "core", Support: "#explicit"}}
	ApplyImplicits(m, conf, region)
	assert.Equal(t, "#explicit", m.Metadata.Support)
}
