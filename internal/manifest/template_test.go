package manifest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleCtx() *TemplateContext {
	return &TemplateContext{
		Service:     "webapp",
		Region:      "dev-uk",
		Environment: "dev",
		Namespace:   "dev",
		Cluster:     "dev-uk",
		Env:         map[string]string{"CORE_URL": "https://core.example.com"},
		BaseURLs:    map[string]string{"services": "https://woot.com"},
		Kafka:       &Kafka{Enabled: true},
		Kong:        &Kong{Host: "webapp"},
	}
}

func TestRenderTemplateBareVars(t *testing.T) {
	out, err := RenderTemplate("t", "{{ service }}.{{ region }}.{{ environment }}", sampleCtx())
	require.NoError(t, err)
	assert.Equal(t, "webapp.dev-uk.dev", out)
}

func TestRenderTemplateEnvAndBaseURLLookup(t *testing.T) {
	out, err := RenderTemplate("t", "{{ env.CORE_URL }}/health on {{ base_urls.services }}", sampleCtx())
	require.NoError(t, err)
	assert.Equal(t, "https://core.example.com/health on https://woot.com", out)
}

func TestRenderTemplateKafkaAndKongFields(t *testing.T) {
	out, err := RenderTemplate("t", "{{ kafka.enabled }}/{{ kong.host }}", sampleCtx())
	require.NoError(t, err)
	assert.Equal(t, "true/webapp", out)
}

func TestRenderTemplateAsSecretFilterAddsSentinel(t *testing.T) {
	out, err := RenderTemplate("t", "{{ env.CORE_URL | as_secret }}", sampleCtx())
	require.NoError(t, err)
	assert.Equal(t, SecretSentinel+"https://core.example.com", out)
}

func TestRenderTemplateRightTrimsLines(t *testing.T) {
	out, err := RenderTemplate("t", "{{ service }}   \nsecond line\t\t", sampleCtx())
	require.NoError(t, err)
	assert.Equal(t, "webapp\nsecond line", out)
}

func TestPartitionEnvSplitsSentinelAndVaultMarker(t *testing.T) {
	rendered := map[string]string{
		"PLAIN":  "value",
		"SECRET": SecretSentinel + "shh",
		"VAULTY": InVaultMarker,
	}
	plain, vaultKeys := PartitionEnv(rendered)
	assert.Equal(t, map[string]string{"PLAIN": "value"}, plain)
	assert.ElementsMatch(t, []string{"VAULTY"}, vaultKeys)
}
