package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleConfig() *Config {
	return &Config{
		Regions: map[string]Region{
			"dev-uk": {
				Name:          "dev-uk",
				Namespace:     "dev",
				VaultURL:      "https://vault.example.com",
				VersionScheme: SchemeGitShaOrSemver,
				BaseURLs:      map[string]string{"services": "https://woot.com"},
			},
		},
		Clusters: map[string]Cluster{
			"dev-cluster": {Name: "dev-cluster", APIURL: "https://k8s.example.com", Regions: []string{"dev-uk"}},
		},
		ContextAliases: map[string]string{"dev": "dev-uk"},
		Teams: []Team{
			{Name: "core", Owner: "core@example.com"},
		},
	}
}

func TestVerifyHappyPath(t *testing.T) {
	c := sampleConfig()
	assert.NoError(t, c.Verify(""))
}

func TestVerifyRejectsUnknownClusterRegion(t *testing.T) {
	c := sampleConfig()
	cl := c.Clusters["dev-cluster"]
	cl.Regions = append(cl.Regions, "ghost-region")
	c.Clusters["dev-cluster"] = cl
	assert.Error(t, c.Verify(""))
}

func TestVerifyRejectsSelfAlias(t *testing.T) {
	c := sampleConfig()
	c.ContextAliases["dev-uk"] = "dev-uk"
	assert.Error(t, c.Verify(""))
}

func TestVerifyRejectsTrailingSlashBaseURL(t *testing.T) {
	c := sampleConfig()
	r := c.Regions["dev-uk"]
	r.BaseURLs["services"] = "https://woot.com/"
	c.Regions["dev-uk"] = r
	assert.Error(t, c.Verify(""))
}

func TestFilterForResolvesAlias(t *testing.T) {
	c := sampleConfig()
	filtered, region, err := c.FilterFor("dev")
	require.NoError(t, err)
	assert.Equal(t, "dev-uk", region.Name)
	assert.Equal(t, StateBase, filtered.State())
	assert.Len(t, filtered.Regions, 1)
}

func TestResolveClusterAmbiguousRequiresHint(t *testing.T) {
	c := sampleConfig()
	c.Clusters["dev-cluster-2"] = Cluster{Name: "dev-cluster-2", Regions: []string{"dev-uk"}}

	_, err := c.ResolveCluster("dev-uk", "")
	assert.Error(t, err)

	cl, err := c.ResolveCluster("dev-uk", "dev-cluster-2")
	require.NoError(t, err)
	assert.Equal(t, "dev-cluster-2", cl.Name)
}

func TestTeamSlug(t *testing.T) {
	assert.Equal(t, "core-platform_team", TeamSlug("Core/Platform Team"))
}

func TestValidateVersionGitShaOrSemver(t *testing.T) {
	assert.NoError(t, ValidateVersion("1.6.0", SchemeGitShaOrSemver))
	assert.NoError(t, ValidateVersion("111111111111111111111111111111111111111a", SchemeGitShaOrSemver))
	assert.Error(t, ValidateVersion("not-a-version", SchemeGitShaOrSemver))
	assert.Error(t, ValidateVersion("111111111111111111111111111111111111111a", SchemeSemver))
}
