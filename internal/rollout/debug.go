package rollout

import (
	"context"

	"go.uber.org/zap"

	"github.com/shipcat/shipcat/internal/kube"
	"github.com/shipcat/shipcat/internal/manifest"
)

const debugTailLines = 30

// debugOnFailure enumerates non-running or partially-ready pods for the
// service and tails the last debugTailLines lines of each primary
// container's log. Per spec §4.4 this is advisory: collection errors are
// logged and ignored, never surfaced to the caller.
func (t *Tracker) debugOnFailure(ctx context.Context, m *manifest.Manifest) {
	pods, err := t.Kube.ListPods(ctx, m.Namespace, kube.PodLabelSelector(m.Name))
	if err != nil {
		t.Log.Warn("rollout debug: failed to list pods", zap.Error(err))
		return
	}
	for i := range pods {
		pod := &pods[i]
		summary := NewPodSummary(*pod)
		t.Log.Info("rollout debug: pod summary", zap.String("summary", summary.String()))
		if kube.IsPodHealthy(pod) {
			continue
		}
		container := kube.PrimaryContainer(pod)
		logs, err := t.Kube.TailLog(ctx, pod.Namespace, pod.Name, container, debugTailLines)
		if err != nil {
			t.Log.Warn("rollout debug: failed to tail log", zap.Error(err), zap.String("pod", pod.Name))
			continue
		}
		t.Log.Info("rollout debug: unhealthy pod log tail",
			zap.String("pod", pod.Name), zap.String("container", container), zap.String("log", logs))
	}
}
