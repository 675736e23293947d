package manifest

import (
	"fmt"

	shipcaterrors "github.com/shipcat/shipcat/internal/errors"
)

// mergeLayer merges overlay on top of base following the normative rules
// in spec §4.1 step 3:
//   - maps of primitives (env, secretFiles, labels, annotations): key-wise
//     union, override wins
//   - Option<primitive>: override-if-present
//   - vectors: replace wholesale if override is non-empty
//   - structured sub-records (kong, resources, autoScaling, ...): replace
//     wholesale if override present
//
// forbidOverrides, when true, rejects an overlay that sets name, regions,
// or metadata — those may only appear in the source file.
func mergeLayer(base *Manifest, overlay *Manifest, forbidOverrides bool) (*Manifest, error) {
	out := base.Clone()

	if forbidOverrides {
		if overlay.Name != "" {
			return nil, shipcaterrors.New(shipcaterrors.InvalidManifest, overlay.Name, "service name must only be set in the source manifest", nil)
		}
		if len(overlay.Regions) > 0 {
			return nil, shipcaterrors.New(shipcaterrors.InvalidManifest, base.Name, "regions list must only be set in the source manifest", nil)
		}
		if overlay.Metadata != nil {
			return nil, shipcaterrors.New(shipcaterrors.InvalidManifest, base.Name, "metadata must only be set in the source manifest", nil)
		}
	} else {
		if overlay.Name != "" {
			out.Name = overlay.Name
		}
		if len(overlay.Regions) > 0 {
			out.Regions = append([]string(nil), overlay.Regions...)
		}
		if overlay.Metadata != nil {
			out.Metadata = overlay.Metadata
		}
	}

	// maps of primitives: key-wise union, override wins.
	for k, v := range overlay.Env {
		if out.Env == nil {
			out.Env = map[string]string{}
		}
		out.Env[k] = v
	}
	for k, v := range overlay.SecretFiles {
		if out.SecretFiles == nil {
			out.SecretFiles = map[string]string{}
		}
		out.SecretFiles[k] = v
	}
	for k, v := range overlay.Labels {
		if out.Labels == nil {
			out.Labels = map[string]string{}
		}
		out.Labels[k] = v
	}
	for k, v := range overlay.Annotations {
		if out.Annotations == nil {
			out.Annotations = map[string]string{}
		}
		out.Annotations[k] = v
	}

	// Option<primitive>: override-if-present.
	if overlay.Image != "" {
		out.Image = overlay.Image
	}
	if overlay.Version != "" {
		out.Version = overlay.Version
	}
	if overlay.Chart != "" {
		out.Chart = overlay.Chart
	}
	if overlay.ImageSize != 0 {
		out.ImageSize = overlay.ImageSize
	}
	if overlay.ReplicaCount != nil {
		out.ReplicaCount = overlay.ReplicaCount
	}
	if overlay.Workload != "" {
		out.Workload = overlay.Workload
	}
	if overlay.HTTPPort != nil {
		out.HTTPPort = overlay.HTTPPort
	}

	// structured sub-records: replace wholesale if present.
	if overlay.AutoScaling != nil {
		out.AutoScaling = overlay.AutoScaling
	}
	if overlay.Resources != nil {
		out.Resources = overlay.Resources
	}
	if overlay.Health != nil {
		out.Health = overlay.Health
	}
	if overlay.RollingUpdate != nil {
		out.RollingUpdate = overlay.RollingUpdate
	}
	if overlay.Kong != nil {
		out.Kong = overlay.Kong
	}
	if overlay.Kafka != nil {
		out.Kafka = overlay.Kafka
	}
	if overlay.Probes.Readiness != nil {
		out.Probes.Readiness = overlay.Probes.Readiness
	}
	if overlay.Probes.Liveness != nil {
		out.Probes.Liveness = overlay.Probes.Liveness
	}
	if len(overlay.Configs.Files) > 0 {
		out.Configs.Files = overlay.Configs.Files
	}

	// vectors: replace wholesale if override is non-empty.
	if len(overlay.Tolerations) > 0 {
		out.Tolerations = overlay.Tolerations
	}
	if len(overlay.HostAliases) > 0 {
		out.HostAliases = overlay.HostAliases
	}
	if len(overlay.InitContainers) > 0 {
		out.InitContainers = overlay.InitContainers
	}
	if len(overlay.Volumes) > 0 {
		out.Volumes = overlay.Volumes
	}
	if len(overlay.Cronjobs) > 0 {
		out.Cronjobs = overlay.Cronjobs
	}
	if len(overlay.Sidecars) > 0 {
		out.Sidecars = overlay.Sidecars
	}
	if len(overlay.Workers) > 0 {
		out.Workers = overlay.Workers
	}
	if len(overlay.RBAC) > 0 {
		out.RBAC = overlay.RBAC
	}
	if len(overlay.Dependencies) > 0 {
		out.Dependencies = overlay.Dependencies
	}

	return out, nil
}

// builtinDefaults returns the built-in defaults layer (bottom of the merge
// chain), before global config defaults are applied.
func builtinDefaults(name string) *Manifest {
	replica := 1
	return &Manifest{
		Name:         name,
		ImageSize:    512,
		Chart:        "raw",
		ReplicaCount: &replica,
		Workload:     WorkloadDeployment,
	}
}

// Merge implements spec §4.1 step 3's full chain:
//
//	builtin ◁ configDefaults ◁ regionDefaults ◁ source ◁ envOverride ◁ regionOverride
//
// source carries name/regions/metadata; envOverride and regionOverride may
// not set them.
func Merge(name string, configDefaults, regionDefaults, source, envOverride, regionOverride *Manifest) (*Manifest, error) {
	cur, err := mergeLayer(builtinDefaults(name), configDefaults, false)
	if err != nil {
		return nil, err
	}
	cur, err = mergeLayer(cur, regionDefaults, false)
	if err != nil {
		return nil, err
	}
	if source.Name != name {
		return nil, shipcaterrors.New(shipcaterrors.InvalidManifest, name, fmt.Sprintf("manifest name %q does not match folder name %q", source.Name, name), nil)
	}
	cur, err = mergeLayer(cur, source, false)
	if err != nil {
		return nil, err
	}
	if envOverride != nil {
		cur, err = mergeLayer(cur, envOverride, true)
		if err != nil {
			return nil, err
		}
	}
	if regionOverride != nil {
		cur, err = mergeLayer(cur, regionOverride, true)
		if err != nil {
			return nil, err
		}
	}
	cur.state = Base
	return cur, nil
}
