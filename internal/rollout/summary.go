package rollout

import (
	"fmt"
	"strings"
	"time"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
)

// PodSummary is a fixed-width, human-readable summary of one pod's health,
// ported from the Rust original's PodSummary/Debug impl: name, image
// version, phase, ready-container count and restarts.
type PodSummary struct {
	Name       string
	Age        time.Duration
	Phase      string
	Running    int
	Containers int
	Restarts   int32
	Version    string
}

// String renders the same column layout as the Rust Debug impl: name,
// version, phase, running/containers, restarts, age — each padded to a
// fixed width so a list of pods lines up.
func (p PodSummary) String() string {
	return fmt.Sprintf("%-60s %-8s %-12s %-6s %-8d %-12s",
		p.Name, p.Version, p.Phase, fmt.Sprintf("%d/%d", p.Running, p.Containers), p.Restarts, formatAge(p.Age))
}

// NewPodSummary extracts the useful status fields out of a live pod.
func NewPodSummary(pod corev1.Pod) PodSummary {
	var running, containers int
	var restarts int32
	for _, cs := range pod.Status.ContainerStatuses {
		containers++
		if cs.Ready {
			running++
		}
		if cs.RestartCount > restarts {
			restarts = cs.RestartCount
		}
	}
	version := "unknown version"
	if len(pod.Spec.Containers) > 0 {
		version = shortVersion(pod.Spec.Containers[0].Image)
	}
	age := time.Duration(0)
	if !pod.CreationTimestamp.IsZero() {
		age = time.Since(pod.CreationTimestamp.Time)
	}
	return PodSummary{
		Name:       pod.Name,
		Age:        age,
		Phase:      string(pod.Status.Phase),
		Running:    running,
		Containers: containers,
		Restarts:   restarts,
		Version:    version,
	}
}

// ReplicaSetSummary is a summary of a ReplicaSet's rollout progress: which
// pod-template-hash it pins, what image version it runs, and how many of
// its replicas are ready.
type ReplicaSetSummary struct {
	Hash     string
	Version  string
	Replicas int32
	Ready    int32
}

func (r ReplicaSetSummary) String() string {
	return fmt.Sprintf("%s (%s): %d/%d ready", r.Hash, r.Version, r.Ready, r.Replicas)
}

// NewReplicaSetSummary extracts the pod-template-hash, image version and
// readiness counts off a live ReplicaSet. Returns false if rs has no
// pod-template-hash label, the signal Describe uses to skip it.
func NewReplicaSetSummary(rs appsv1.ReplicaSet) (ReplicaSetSummary, bool) {
	hash, ok := rs.Labels["pod-template-hash"]
	if !ok {
		return ReplicaSetSummary{}, false
	}
	version := "unknown version"
	if tpl := rs.Spec.Template; len(tpl.Spec.Containers) > 0 {
		version = shortVersion(tpl.Spec.Containers[0].Image)
	}
	return ReplicaSetSummary{
		Hash:     hash,
		Version:  version,
		Replicas: rs.Status.Replicas,
		Ready:    rs.Status.ReadyReplicas,
	}, true
}

// DeploySummary is a summary of a Deployment's rollout-progress condition,
// including the "NewReplicaSetAvailable" shortcut Kubernetes sets once a
// rolling update has actually finished.
type DeploySummary struct {
	Replicas               int32
	Unavailable            int32
	Ready                  int32
	NewReplicaSetAvailable bool
	Message                string
}

func (d DeploySummary) String() string {
	s := fmt.Sprintf("%d/%d ready, %d unavailable", d.Ready, d.Replicas, d.Unavailable)
	if d.Message != "" {
		s += ": " + d.Message
	}
	return s
}

// NewDeploySummary extracts readiness counts and the Progressing
// condition's message off a live Deployment.
func NewDeploySummary(d appsv1.Deployment) DeploySummary {
	s := DeploySummary{
		Replicas:    d.Status.Replicas,
		Unavailable: d.Status.UnavailableReplicas,
		Ready:       d.Status.ReadyReplicas,
	}
	for _, c := range d.Status.Conditions {
		if c.Type == appsv1.DeploymentProgressing {
			s.Message = c.Message
			if c.Reason == "NewReplicaSetAvailable" {
				s.NewReplicaSetAvailable = true
			}
		}
	}
	return s
}

// StatefulSummary is a summary of a StatefulSet's rollout progress, split
// between its current (pre-update) and update revisions since StatefulSets
// roll pod-by-pod rather than via a second ReplicaSet.
type StatefulSummary struct {
	Replicas        int32
	Ready           int32
	CurrentRevision string
	CurrentReplicas int32
	UpdateRevision  string
	UpdatedReplicas int32
}

func (s StatefulSummary) String() string {
	return fmt.Sprintf("%d/%d ready, %d on %s, %d updated to %s",
		s.Ready, s.Replicas, s.CurrentReplicas, s.CurrentRevision, s.UpdatedReplicas, s.UpdateRevision)
}

// NewStatefulSummary extracts readiness and revision-split counts off a
// live StatefulSet.
func NewStatefulSummary(s appsv1.StatefulSet) StatefulSummary {
	return StatefulSummary{
		Replicas:        s.Status.Replicas,
		Ready:           s.Status.ReadyReplicas,
		CurrentRevision: s.Status.CurrentRevision,
		CurrentReplicas: s.Status.CurrentReplicas,
		UpdateRevision:  s.Status.UpdateRevision,
		UpdatedReplicas: s.Status.UpdatedReplicas,
	}
}

func formatAge(d time.Duration) string {
	switch {
	case d >= 24*time.Hour:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	case d >= time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	default:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
}

// shortVersion returns the tag half of "image:tag", or "unknown version"
// when the image has no tag.
func shortVersion(image string) string {
	parts := strings.SplitN(image, ":", 2)
	if len(parts) != 2 || parts[1] == "" {
		return "unknown version"
	}
	return parts[1]
}
