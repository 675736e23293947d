package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/shipcat/shipcat/internal/config"
	shipcaterrors "github.com/shipcat/shipcat/internal/errors"
	"github.com/shipcat/shipcat/internal/secrets"
	"sigs.k8s.io/yaml"
)

// loadManifestFile reads an optional manifest overlay file. A missing file
// is not an error: it returns an empty overlay, since every layer but the
// source manifest itself is optional in the merge chain.
func loadManifestFile(path string) (*Manifest, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Manifest{}, nil
	}
	if err != nil {
		return nil, shipcaterrors.New(shipcaterrors.InvalidManifest, path, "failed to read manifest file", err)
	}
	var m Manifest
	if err := yaml.UnmarshalStrict(raw, &m); err != nil {
		return nil, shipcaterrors.New(shipcaterrors.InvalidManifest, path, "failed to parse manifest file", err)
	}
	return &m, nil
}

// loadRequiredManifestFile is like loadManifestFile but a missing file is
// fatal; used for the source manifest.yml.
func loadRequiredManifestFile(path string) (*Manifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, shipcaterrors.New(shipcaterrors.InvalidManifest, path, "failed to read manifest file", err)
	}
	var m Manifest
	if err := yaml.UnmarshalStrict(raw, &m); err != nil {
		return nil, shipcaterrors.New(shipcaterrors.InvalidManifest, path, "failed to parse manifest file", err)
	}
	return &m, nil
}

// ListServices enumerates every service directory under servicesDir that
// carries a manifest.yml, used by the reconciler to discover candidates
// before filtering by region membership.
func ListServices(servicesDir string) ([]string, error) {
	entries, err := os.ReadDir(servicesDir)
	if err != nil {
		return nil, shipcaterrors.New(shipcaterrors.InvalidManifest, servicesDir, "failed to list services directory", err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(servicesDir, e.Name(), "manifest.yml")); err == nil {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

// SourceRegions reads only the source manifest.yml's regions field for
// name, without running the full merge/implicits/validate pipeline. The
// reconciler uses this to test region membership cheaply across every
// service before spawning an Applier for the ones that match.
func SourceRegions(servicesDir, name string) ([]string, error) {
	m, err := loadRequiredManifestFile(filepath.Join(servicesDir, name, "manifest.yml"))
	if err != nil {
		return nil, err
	}
	return m.Regions, nil
}

// Resolve implements spec §4.1 steps 1-5: load the source manifest and its
// optional overlays from servicesDir/<name>/, merge the layered chain,
// apply post-merge implicits, and validate. The returned manifest is in
// the Base state.
//
// Expected layout, all but manifest.yml optional:
//
//	<servicesDir>/<name>/manifest.yml        source
//	<servicesDir>/<name>/<environment>.yml   env override (e.g. dev.yml, staging.yml)
//	<servicesDir>/<name>/<region>.yml        region override
//	<configDir>/defaults.yml                 config-wide defaults
//	<configDir>/<region>.yml                 region-wide defaults
func Resolve(servicesDir, configDir, name, regionName string, conf *config.Config) (*Manifest, *config.Region, error) {
	region, ok := conf.Regions[regionName]
	if !ok {
		return nil, nil, shipcaterrors.New(shipcaterrors.InvalidManifest, regionName, "unknown region", nil)
	}

	serviceDir := filepath.Join(servicesDir, name)
	source, err := loadRequiredManifestFile(filepath.Join(serviceDir, "manifest.yml"))
	if err != nil {
		return nil, nil, err
	}

	configDefaults, err := loadManifestFile(filepath.Join(configDir, "defaults.yml"))
	if err != nil {
		return nil, nil, err
	}
	regionDefaults, err := loadManifestFile(filepath.Join(configDir, regionName+".yml"))
	if err != nil {
		return nil, nil, err
	}
	envOverride, err := loadManifestFile(filepath.Join(serviceDir, region.Environment+".yml"))
	if err != nil {
		return nil, nil, err
	}
	regionOverride, err := loadManifestFile(filepath.Join(serviceDir, regionName+".yml"))
	if err != nil {
		return nil, nil, err
	}

	merged, err := Merge(name, configDefaults, regionDefaults, source, envOverride, regionOverride)
	if err != nil {
		return nil, nil, err
	}

	ApplyImplicits(merged, conf, &region)

	if err := Validate(merged, name, conf, &region); err != nil {
		return nil, nil, err
	}

	return merged, &region, nil
}

// Stub resolves and upgrades a manifest against the mocked secret backend,
// producing a Stubbed manifest safe to print or diff without touching the
// real secret store.
func Stub(servicesDir, configDir, name, regionName string, conf *config.Config) (*Manifest, error) {
	m, region, err := Resolve(servicesDir, configDir, name, regionName, conf)
	if err != nil {
		return nil, err
	}
	if err := Upgrade(m, Stubbed, secrets.NewMock(), region); err != nil {
		return nil, shipcaterrors.Wrap(err, fmt.Sprintf("stubbing %s", name))
	}
	return m, nil
}

// Complete resolves and upgrades a manifest against the real secret store,
// producing the Completed manifest used to render and apply Kubernetes
// resources.
func Complete(servicesDir, configDir, name, regionName string, conf *config.Config, store secrets.Store) (*Manifest, error) {
	m, region, err := Resolve(servicesDir, configDir, name, regionName, conf)
	if err != nil {
		return nil, err
	}
	if err := Upgrade(m, Completed, store, region); err != nil {
		return nil, shipcaterrors.Wrap(err, fmt.Sprintf("completing %s", name))
	}
	return m, nil
}
