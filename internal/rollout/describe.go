package rollout

import (
	"context"

	"github.com/shipcat/shipcat/internal/kube"
	"github.com/shipcat/shipcat/internal/manifest"
)

// Describe builds the human-readable workload/pod summary lines `shipcat
// status --pods` prints: the owning Deployment or StatefulSet's rollout
// state, its active ReplicaSets (Deployment only), and one line per pod.
// Ported from the Rust original's debug/debug_deployment/debug_statefulset.
func Describe(ctx context.Context, kubeClient *kube.Client, m *manifest.Manifest) ([]string, error) {
	switch m.Workload {
	case manifest.WorkloadStatefulSet:
		return describeStatefulSet(ctx, kubeClient, m)
	default:
		return describeDeployment(ctx, kubeClient, m)
	}
}

func describeDeployment(ctx context.Context, kubeClient *kube.Client, m *manifest.Manifest) ([]string, error) {
	var lines []string
	d, err := kubeClient.GetDeployment(ctx, m.Namespace, m.Name)
	if err != nil {
		return nil, err
	}
	if d != nil {
		lines = append(lines, "deployment: "+NewDeploySummary(*d).String())
	}

	replicaSets, err := kubeClient.ListReplicaSetsForApp(ctx, m.Namespace, m.Name)
	if err != nil {
		return nil, err
	}
	for _, rs := range replicaSets {
		summary, ok := NewReplicaSetSummary(rs)
		if !ok || summary.Replicas == 0 {
			continue
		}
		lines = append(lines, "replicaset: "+summary.String())
		podLines, err := describePods(ctx, kubeClient, m.Namespace, kube.PodTemplateHashSelector(summary.Hash))
		if err != nil {
			return nil, err
		}
		lines = append(lines, podLines...)
	}
	return lines, nil
}

func describeStatefulSet(ctx context.Context, kubeClient *kube.Client, m *manifest.Manifest) ([]string, error) {
	var lines []string
	s, err := kubeClient.GetStatefulSet(ctx, m.Namespace, m.Name)
	if err != nil {
		return nil, err
	}
	if s != nil {
		lines = append(lines, "statefulset: "+NewStatefulSummary(*s).String())
	}
	podLines, err := describePods(ctx, kubeClient, m.Namespace, kube.PodLabelSelector(m.Name))
	if err != nil {
		return nil, err
	}
	return append(lines, podLines...), nil
}

func describePods(ctx context.Context, kubeClient *kube.Client, namespace, selector string) ([]string, error) {
	pods, err := kubeClient.ListPods(ctx, namespace, selector)
	if err != nil {
		return nil, err
	}
	lines := make([]string, 0, len(pods))
	for _, pod := range pods {
		lines = append(lines, "  "+NewPodSummary(pod).String())
	}
	return lines, nil
}
