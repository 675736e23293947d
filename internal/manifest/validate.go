package manifest

import (
	"fmt"
	"regexp"

	"github.com/shipcat/shipcat/internal/config"
	shipcaterrors "github.com/shipcat/shipcat/internal/errors"
	rmath "github.com/shipcat/shipcat/pkg/math"
)

var nameRe = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]*[a-z0-9])?$`)
var envKeyRe = regexp.MustCompile(`^[A-Z][A-Z0-9_]*$`)

// Validate checks every invariant in spec §3 against a merged, implicits-
// applied manifest. folderName is the directory the manifest was loaded
// from, used for invariant (a).
func Validate(m *Manifest, folderName string, conf *config.Config, region *config.Region) error {
	// (a) name matches folder name, and is well-formed.
	if m.Name != folderName {
		return shipcaterrors.New(shipcaterrors.InvalidManifest, m.Name, fmt.Sprintf("manifest name must match folder name %q", folderName), nil)
	}
	if len(m.Name) > 50 || !nameRe.MatchString(m.Name) {
		return shipcaterrors.New(shipcaterrors.InvalidManifest, m.Name, "name must be <=50 chars, lowercase alphanumeric with internal dashes only", nil)
	}

	// (b) every env key is SCREAMING_SNAKE_CASE, no dashes.
	for k := range m.Env {
		if !envKeyRe.MatchString(k) {
			return shipcaterrors.New(shipcaterrors.InvalidManifest, m.Name, fmt.Sprintf("env key %q must be SCREAMING_SNAKE_CASE", k), nil)
		}
	}

	// (c) if httpPort declared, need readinessProbe or health.
	if m.HTTPPort != nil && m.Probes.Readiness == nil && m.Health == nil {
		return shipcaterrors.New(shipcaterrors.InvalidManifest, m.Name, "httpPort declared without readinessProbe or health", nil)
	}

	// (d) requests <= limits component-wise, within node ceilings.
	if m.Resources != nil {
		if err := validateResources(m); err != nil {
			return err
		}
	}

	// (e) replicaCount >= 1, or autoScaling.minReplicas >= 1.
	if m.AutoScaling != nil {
		if m.AutoScaling.MinReplicas < 1 {
			return shipcaterrors.New(shipcaterrors.InvalidManifest, m.Name, "autoScaling.minReplicas must be >= 1", nil)
		}
	} else if m.ReplicaCount == nil || *m.ReplicaCount < 1 {
		return shipcaterrors.New(shipcaterrors.InvalidManifest, m.Name, "replicaCount must be >= 1", nil)
	}

	// (f) every region in regions[] must exist in the region set.
	for _, r := range m.Regions {
		if _, ok := conf.Regions[r]; !ok {
			return shipcaterrors.New(shipcaterrors.InvalidManifest, m.Name, fmt.Sprintf("region %q in regions[] is not a known region", r), nil)
		}
	}

	// (g) version, when present, matches region's scheme.
	if m.Version != "" {
		if err := config.ValidateVersion(m.Version, region.VersionScheme); err != nil {
			return shipcaterrors.New(shipcaterrors.InvalidManifest, m.Name, err.Error(), nil)
		}
	}

	// (h) metadata team matches a team in the config.
	if m.Metadata != nil {
		if _, ok := conf.TeamByName(m.Metadata.Team); !ok {
			return shipcaterrors.New(shipcaterrors.InvalidManifest, m.Name, fmt.Sprintf("metadata.team %q does not match any configured team", m.Metadata.Team), nil)
		}
	}

	return nil
}

// ComputeResourceTotals reports the fleet-facing resource summary backing
// the read server's `/manifests/{name}/resources` endpoint (spec §4.7/§8):
// a single replica's requests/limits multiplied by the effective replica
// count. A manifest with no resources declared returns a zero Totals with
// its replica count populated.
func (m *Manifest) ComputeResourceTotals() (rmath.Totals, error) {
	replicas := 1
	if m.ReplicaCount != nil {
		replicas = *m.ReplicaCount
	} else if m.AutoScaling != nil && m.AutoScaling.MinReplicas > 0 {
		replicas = m.AutoScaling.MinReplicas
	}
	if m.Resources == nil {
		return rmath.Totals{ReplicaCount: replicas}, nil
	}
	return rmath.ComputeTotals(replicas,
		m.Resources.Requests.CPU, m.Resources.Requests.Memory,
		m.Resources.Limits.CPU, m.Resources.Limits.Memory)
}

func validateResources(m *Manifest) error {
	res := m.Resources
	if res.Requests.CPU != "" && res.Limits.CPU != "" {
		reqCPU, err := rmath.ParseCPU(res.Requests.CPU)
		if err != nil {
			return shipcaterrors.New(shipcaterrors.InvalidManifest, m.Name, err.Error(), nil)
		}
		limCPU, err := rmath.ParseCPU(res.Limits.CPU)
		if err != nil {
			return shipcaterrors.New(shipcaterrors.InvalidManifest, m.Name, err.Error(), nil)
		}
		if reqCPU > limCPU {
			return shipcaterrors.New(shipcaterrors.InvalidManifest, m.Name, "Requested more CPU than what was limited", nil)
		}
		if limCPU > rmath.NodeCeilingCPU {
			return shipcaterrors.New(shipcaterrors.InvalidManifest, m.Name, fmt.Sprintf("CPU limit %.1f exceeds per-node ceiling %.1f", limCPU, rmath.NodeCeilingCPU), nil)
		}
	}
	if res.Requests.Memory != "" && res.Limits.Memory != "" {
		reqMem, err := rmath.ParseMemory(res.Requests.Memory)
		if err != nil {
			return shipcaterrors.New(shipcaterrors.InvalidManifest, m.Name, err.Error(), nil)
		}
		limMem, err := rmath.ParseMemory(res.Limits.Memory)
		if err != nil {
			return shipcaterrors.New(shipcaterrors.InvalidManifest, m.Name, err.Error(), nil)
		}
		if reqMem > limMem {
			return shipcaterrors.New(shipcaterrors.InvalidManifest, m.Name, "Requested more memory than what was limited", nil)
		}
		ceilingBytes := rmath.NodeCeilingMemoryGiB * 1024 * 1024 * 1024
		if limMem > ceilingBytes {
			return shipcaterrors.New(shipcaterrors.InvalidManifest, m.Name, fmt.Sprintf("memory limit exceeds per-node ceiling of %.0fGiB", rmath.NodeCeilingMemoryGiB), nil)
		}
	}
	return nil
}
