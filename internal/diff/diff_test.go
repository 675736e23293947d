package diff

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMinifyKeepsOnlyChangedAndHasChangedLines(t *testing.T) {
	input := strings.Join([]string{
		"--- before",
		"+++ after",
		"@@ -1,3 +1,3 @@",
		" unchanged line",
		"-old line",
		"+new line",
		" resource \"webapp\" has changed",
		"+  generation: 5",
		"-  generation: 4",
	}, "\n")
	out := Minify(input)
	assert.Contains(t, out, "-old line")
	assert.Contains(t, out, "+new line")
	assert.Contains(t, out, "has changed")
	assert.NotContains(t, out, "generation: 5")
	assert.NotContains(t, out, "generation: 4")
	assert.NotContains(t, out, "unchanged line")
}

func TestInferVersionChangeExtractsFirstTwoImageVersions(t *testing.T) {
	text := strings.Join([]string{
		"-  image: registry.example.com/webapp:1.2.3",
		"+  image: registry.example.com/webapp:1.2.4",
	}, "\n")
	pair, ok := InferVersionChange(text)
	require.True(t, ok)
	assert.Equal(t, "1.2.3", pair.Old)
	assert.Equal(t, "1.2.4", pair.New)
}

func TestInferVersionChangeRequiresTwoCaptures(t *testing.T) {
	_, ok := InferVersionChange("-  image: registry.example.com/webapp:1.2.3")
	assert.False(t, ok)
}

func TestIsVersionOnlyTrueWhenEveryLineMentionsAVersion(t *testing.T) {
	pair := VersionPair{Old: "1.2.3", New: "1.2.4"}
	minified := strings.Join([]string{
		"--- before",
		"+++ after",
		"-  image: webapp:1.2.3",
		"+  image: webapp:1.2.4",
	}, "\n")
	assert.True(t, IsVersionOnly(minified, pair))
}

func TestIsVersionOnlyFalseWhenAnUnrelatedLineChanges(t *testing.T) {
	pair := VersionPair{Old: "1.2.3", New: "1.2.4"}
	minified := strings.Join([]string{
		"-  image: webapp:1.2.3",
		"+  image: webapp:1.2.4",
		"-  replicas: 2",
		"+  replicas: 3",
	}, "\n")
	assert.False(t, IsVersionOnly(minified, pair))
}

func TestObfuscateSecretsReplacesLongValuesOnly(t *testing.T) {
	text := "DB_PASSWORD: correcthorsebatterystaple\nFLAG: on"
	out := ObfuscateSecrets(text, map[string]string{
		"DB_PASSWORD": "correcthorsebatterystaple",
		"FLAG":        "on",
	})
	assert.Contains(t, out, obfuscatedSecret)
	assert.NotContains(t, out, "correcthorsebatterystaple")
	assert.Contains(t, out, "FLAG: on")
}
