package manifest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeEnvIsUnionedKeyWise(t *testing.T) {
	configDefaults := &Manifest{Env: map[string]string{"A": "1", "B": "1"}}
	regionDefaults := &Manifest{}
	source := &Manifest{Name: "webapp", Env: map[string]string{"B": "2", "C": "3"}}

	m, err := Merge("webapp", configDefaults, regionDefaults, source, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"A": "1", "B": "2", "C": "3"}, m.Env)
}

func TestMergeOptionPrimitiveOverridesIfPresent(t *testing.T) {
	configDefaults := &Manifest{Chart: "raw"}
	source := &Manifest{Name: "webapp", Chart: "custom"}

	m, err := Merge("webapp", configDefaults, &Manifest{}, source, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "custom", m.Chart)
}

func TestMergeVectorReplacesWholesaleOnlyIfNonEmpty(t *testing.T) {
	configDefaults := &Manifest{Tolerations: []Toleration{{Key: "base"}}}
	source := &Manifest{Name: "webapp"}

	m, err := Merge("webapp", configDefaults, &Manifest{}, source, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []Toleration{{Key: "base"}}, m.Tolerations)

	source2 := &Manifest{Name: "webapp", Tolerations: []Toleration{{Key: "override"}}}
	m2, err := Merge("webapp", configDefaults, &Manifest{}, source2, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []Toleration{{Key: "override"}}, m2.Tolerations)
}

func TestMergeStructuredSubrecordReplacesWholesale(t *testing.T) {
	configDefaults := &Manifest{Resources: &Resources{Requests: ResourceQuantities{CPU: "100m"}}}
	source := &Manifest{Name: "webapp", Resources: &Resources{Requests: ResourceQuantities{CPU: "500m"}}}

	m, err := Merge("webapp", configDefaults, &Manifest{}, source, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "500m", m.Resources.Requests.CPU)
}

func TestMergeOverrideCannotSetNameRegionsOrMetadata(t *testing.T) {
	source := &Manifest{Name: "webapp"}
	envOverride := &Manifest{Name: "somethingelse"}

	_, err := Merge("webapp", &Manifest{}, &Manifest{}, source, envOverride, nil)
	assert.Error(t, err)

	envOverride2 := &Manifest{Metadata: &Metadata{Team: "core"}}
	_, err = Merge("webapp", &Manifest{}, &Manifest{}, source, envOverride2, nil)
	assert.Error(t, err)

	envOverride3 := &Manifest{Regions: []string{"dev-uk"}}
	_, err = Merge("webapp", &Manifest{}, &Manifest{}, source, envOverride3, nil)
	assert.Error(t, err)
}

func TestMergeSourceNameMustMatchFolder(t *testing.T) {
	source := &Manifest{Name: "othername"}
	_, err := Merge("webapp", &Manifest{}, &Manifest{}, source, nil, nil)
	assert.Error(t, err)
}

func TestMergeLayerOrderRegionOverrideWinsLast(t *testing.T) {
	configDefaults := &Manifest{Image: "from-config"}
	regionDefaults := &Manifest{Image: "from-region-defaults"}
	source := &Manifest{Name: "webapp", Image: "from-source"}
	envOverride := &Manifest{Image: "from-env-override"}
	regionOverride := &Manifest{Image: "from-region-override"}

	m, err := Merge("webapp", configDefaults, regionDefaults, source, envOverride, regionOverride)
	require.NoError(t, err)
	assert.Equal(t, "from-region-override", m.Image)
}

func TestMergeResultIsInBaseState(t *testing.T) {
	m, err := Merge("webapp", &Manifest{}, &Manifest{}, &Manifest{Name: "webapp"}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, Base, m.State())
}
