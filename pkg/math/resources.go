// Package math implements the resource-quantity and rollout-timing formulas
// used to validate manifests and schedule rollout polling.
package math

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
)

var memoryUnits = map[string]float64{
	"Ki": 1024,
	"Mi": 1024 * 1024,
	"Gi": 1024 * 1024 * 1024,
	"Ti": 1024 * 1024 * 1024 * 1024,
	"Pi": 1024 * 1024 * 1024 * 1024 * 1024,
	"K":  1000,
	"M":  1000 * 1000,
	"G":  1000 * 1000 * 1000,
	"T":  1000 * 1000 * 1000 * 1000,
	"P":  1000 * 1000 * 1000 * 1000 * 1000,
}

var memoryRe = regexp.MustCompile(`^([0-9]+(?:\.[0-9]+)?)(Ki|Mi|Gi|Ti|Pi|K|M|G|T|P)?$`)
var cpuRe = regexp.MustCompile(`^([0-9]+(?:\.[0-9]+)?)(m|k)?$`)

// ParseMemory converts a Kubernetes-style memory quantity ("512Mi", "1Gi",
// "1000000") into a byte count.
func ParseMemory(s string) (float64, error) {
	m := memoryRe.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("invalid memory quantity %q", s)
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid memory quantity %q: %w", s, err)
	}
	if m[2] == "" {
		return v, nil
	}
	unit, ok := memoryUnits[m[2]]
	if !ok {
		return 0, fmt.Errorf("unknown memory unit in %q", s)
	}
	return v * unit, nil
}

// ParseCPU converts a Kubernetes-style CPU quantity ("500m", "2", "1k")
// into fractional cores.
func ParseCPU(s string) (float64, error) {
	m := cpuRe.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("invalid cpu quantity %q", s)
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid cpu quantity %q: %w", s, err)
	}
	switch m[2] {
	case "":
		return v, nil
	case "m":
		return v / 1000, nil
	case "k":
		return v * 1000, nil
	default:
		return 0, fmt.Errorf("unknown cpu unit in %q", s)
	}
}

// Totals is the fleet-facing resource summary the read server reports at
// `/manifests/{name}/resources`: per-replica requests/limits multiplied out
// by the service's effective replica count.
type Totals struct {
	ReplicaCount  int     `json:"replicaCount"`
	RequestCPU    float64 `json:"requestCpu"`
	RequestMemory float64 `json:"requestMemory"`
	LimitCPU      float64 `json:"limitCpu"`
	LimitMemory   float64 `json:"limitMemory"`
}

// ComputeTotals multiplies a single replica's parsed request/limit
// quantities by replicaCount. Quantities left empty (either half of a
// Requests/Limits pair) are treated as zero rather than an error, since a
// manifest is free to declare requests without limits or vice versa.
func ComputeTotals(replicaCount int, requestsCPU, requestsMemory, limitsCPU, limitsMemory string) (Totals, error) {
	t := Totals{ReplicaCount: replicaCount}
	var err error
	if requestsCPU != "" {
		if t.RequestCPU, err = ParseCPU(requestsCPU); err != nil {
			return Totals{}, err
		}
	}
	if requestsMemory != "" {
		if t.RequestMemory, err = ParseMemory(requestsMemory); err != nil {
			return Totals{}, err
		}
	}
	if limitsCPU != "" {
		if t.LimitCPU, err = ParseCPU(limitsCPU); err != nil {
			return Totals{}, err
		}
	}
	if limitsMemory != "" {
		if t.LimitMemory, err = ParseMemory(limitsMemory); err != nil {
			return Totals{}, err
		}
	}
	t.RequestCPU *= float64(replicaCount)
	t.RequestMemory *= float64(replicaCount)
	t.LimitCPU *= float64(replicaCount)
	t.LimitMemory *= float64(replicaCount)
	return t, nil
}

// NodeCeilingCPU and NodeCeilingMemoryGiB are the per-node resource
// ceilings enforced by manifest validation (§3 invariant d).
const (
	NodeCeilingCPU       = 36.0
	NodeCeilingMemoryGiB = 72.0
)

// EstimateRolloutIterations computes how many rolling-update cycles a
// deployment with the given replica count, maxSurge and maxUnavailable
// fractions needs.
func EstimateRolloutIterations(replicas int, maxSurge, maxUnavailable float64) int {
	if maxSurge <= 0 {
		maxSurge = 0.25
	}
	if maxUnavailable <= 0 {
		maxUnavailable = 0.25
	}
	perCycle := maxSurge + maxUnavailable
	if perCycle <= 0 {
		perCycle = 0.5
	}
	iterations := math.Ceil(float64(replicas) / perCycle)
	if iterations < 1 {
		iterations = 1
	}
	return int(iterations)
}

// EstimateWaitSeconds implements the §4.4 estimated-wait formula:
//
//	max(60, ceil(imageSizeMB*90/512)) + ceil(1.5*readinessInitialDelay)
//
// multiplied by the number of rollout cycles implied by replicas and the
// rolling-update surge/unavailable fractions.
func EstimateWaitSeconds(imageSizeMB, replicas int, readinessInitialDelay int, maxSurge, maxUnavailable float64) int {
	pull := math.Max(60, math.Ceil(float64(imageSizeMB)*90.0/512.0))
	delay := math.Ceil(1.5 * float64(readinessInitialDelay))
	iterations := EstimateRolloutIterations(replicas, maxSurge, maxUnavailable)
	return int((pull + delay) * float64(iterations))
}
