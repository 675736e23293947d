// Package rollout implements the asynchronous progress machine that,
// after an apply, watches the target Deployment or StatefulSet (and its
// pinned ReplicaSet/update-revision) until it converges, times out, or is
// declared failed. Scheduling and success predicates are ported from the
// teacher's waitStatus/statusObserver polling loop, specialized from
// cli-utils' generic kstatus aggregation to the Deployment/StatefulSet-
// specific convergence rules this system requires.
package rollout

import (
	"context"
	"fmt"
	"time"

	appsv1 "k8s.io/api/apps/v1"

	"github.com/shipcat/shipcat/internal/kube"
	"github.com/shipcat/shipcat/internal/manifest"
	"github.com/shipcat/shipcat/internal/metrics"
	rmath "github.com/shipcat/shipcat/pkg/math"
	"go.uber.org/zap"
)

const maxPollIterations = 20

// Progress is reported to callers (typically the status patcher and the
// CLI's progress line) after every poll.
type Progress struct {
	Ready    int
	Desired  int
	Attempt  int
	Complete bool
}

// Tracker watches one workload's rollout to completion or timeout. It is
// single-threaded and cooperative: Track blocks the calling goroutine for
// up to the estimated wait, sleeping between polls.
type Tracker struct {
	Kube *kube.Client
	Log  *zap.Logger
}

func New(kubeClient *kube.Client, log *zap.Logger) *Tracker {
	return &Tracker{Kube: kubeClient, Log: log}
}

// Track implements the §4.4 contract: true on success, false on timeout;
// errors only on store (Kubernetes API) failure. pinnedHash is the new
// ReplicaSet's pod-template-hash (Deployment) or the StatefulSet's
// update-revision, captured by the applier immediately after apply.
func (t *Tracker) Track(ctx context.Context, m *manifest.Manifest, pinnedHash string, onProgress func(Progress)) (bool, error) {
	minReplicas := minReplicas(m)
	waitSeconds := estimateWait(m)
	interval := time.Duration(waitSeconds/maxPollIterations+1) * time.Second

	start := time.Now()
	observeResult := func(result string) { metrics.ObserveRolloutWait(result, time.Since(start)) }

	for attempt := 1; attempt <= maxPollIterations; attempt++ {
		var ready, desired int
		var complete bool
		var err error

		switch m.Workload {
		case manifest.WorkloadStatefulSet:
			ready, desired, complete, err = t.pollStatefulSet(ctx, m, minReplicas, pinnedHash)
		default:
			ready, desired, complete, err = t.pollDeployment(ctx, m, minReplicas, pinnedHash)
		}
		if err != nil {
			observeResult("error")
			return false, err
		}

		if onProgress != nil {
			onProgress(Progress{Ready: ready, Desired: desired, Attempt: attempt, Complete: complete})
		}
		if complete {
			observeResult("complete")
			return true, nil
		}

		select {
		case <-ctx.Done():
			t.debugOnFailure(ctx, m)
			observeResult("cancelled")
			return false, nil
		case <-time.After(interval):
		}
	}

	t.debugOnFailure(ctx, m)
	observeResult("timeout")
	return false, nil
}

func (t *Tracker) pollDeployment(ctx context.Context, m *manifest.Manifest, minReplicas int, pinnedHash string) (ready, desired int, complete bool, err error) {
	d, err := t.Kube.GetDeployment(ctx, m.Namespace, m.Name)
	if err != nil {
		return 0, 0, false, err
	}
	if d == nil {
		return 0, 0, false, nil
	}
	desired = int(derefInt32(d.Spec.Replicas, 1))

	if pinnedHash != "" {
		rs, err := t.Kube.GetReplicaSetByHash(ctx, m.Namespace, pinnedHash)
		if err != nil {
			return 0, 0, false, err
		}
		if rs == nil {
			return 0, desired, false, nil
		}
		pinnedMin := minReplicas
		if int(rs.Status.Replicas) > pinnedMin {
			pinnedMin = int(rs.Status.Replicas)
		}
		complete = int(rs.Status.ReadyReplicas) == pinnedMin
		return int(rs.Status.ReadyReplicas), pinnedMin, complete, nil
	}

	newRSAvailable := deploymentAvailable(d)
	complete = int(d.Status.ReadyReplicas) == int(d.Status.Replicas) &&
		int(d.Status.ReadyReplicas) >= minReplicas &&
		(newRSAvailable || d.Status.UnavailableReplicas <= 0)

	ready = int(d.Status.ReadyReplicas) - int(d.Status.UnavailableReplicas)
	if ready < 0 {
		ready = 0
	}
	return ready, desired, complete, nil
}

func (t *Tracker) pollStatefulSet(ctx context.Context, m *manifest.Manifest, minReplicas int, pinnedHash string) (ready, desired int, complete bool, err error) {
	s, err := t.Kube.GetStatefulSet(ctx, m.Namespace, m.Name)
	if err != nil {
		return 0, 0, false, err
	}
	if s == nil {
		return 0, 0, false, nil
	}
	desired = int(derefInt32(s.Spec.Replicas, 1))
	updated := int(s.Status.UpdatedReplicas)
	complete = updated >= minReplicas &&
		updated == int(s.Status.ReadyReplicas) &&
		(pinnedHash == "" || s.Status.UpdateRevision == pinnedHash)
	return updated, desired, complete, nil
}

func deploymentAvailable(d *appsv1.Deployment) bool {
	for _, c := range d.Status.Conditions {
		if c.Type == appsv1.DeploymentProgressing {
			return c.Reason == "NewReplicaSetAvailable"
		}
	}
	return false
}

func derefInt32(p *int32, def int32) int32 {
	if p == nil {
		return def
	}
	return *p
}

func minReplicas(m *manifest.Manifest) int {
	if m.AutoScaling != nil {
		return m.AutoScaling.MinReplicas
	}
	if m.ReplicaCount != nil {
		return *m.ReplicaCount
	}
	return 1
}

// EstimateWaitSeconds exposes the §4.4 estimated-wait formula for callers
// (the applier's RolloutTimeout message) that need it without running a
// Track loop.
func EstimateWaitSeconds(m *manifest.Manifest) int {
	return estimateWait(m)
}

func estimateWait(m *manifest.Manifest) int {
	readinessDelay := 0
	if m.Probes.Readiness != nil {
		readinessDelay = m.Probes.Readiness.InitialDelaySeconds
	}
	maxSurge, maxUnavailable := 0.25, 0.25
	if m.RollingUpdate != nil {
		if p, ok := parsePercent(m.RollingUpdate.MaxSurge); ok {
			maxSurge = p
		}
		if p, ok := parsePercent(m.RollingUpdate.MaxUnavailable); ok {
			maxUnavailable = p
		}
	}
	return rmath.EstimateWaitSeconds(m.ImageSize, minReplicas(m), readinessDelay, maxSurge, maxUnavailable)
}

func parsePercent(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	var v float64
	if _, err := fmt.Sscanf(s, "%f%%", &v); err == nil {
		return v / 100, true
	}
	return 0, false
}
