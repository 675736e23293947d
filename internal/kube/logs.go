package kube

import (
	"bytes"
	"context"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/utils/ptr"

	shipcaterrors "github.com/shipcat/shipcat/internal/errors"
)

// TailLog returns the last tailLines lines of container's log in pod
// namespace/name. Used by the rollout tracker's debug-on-failure path; per
// spec §4.4, collection errors there are advisory and must not fail the
// caller, so callers are expected to log and discard this error.
func (c *Client) TailLog(ctx context.Context, namespace, pod, container string, tailLines int64) (string, error) {
	req := c.Clientset.CoreV1().Pods(namespace).GetLogs(pod, &corev1.PodLogOptions{
		Container: container,
		TailLines: ptr.To(tailLines),
	})
	stream, err := req.Stream(ctx)
	if err != nil {
		return "", shipcaterrors.New(shipcaterrors.KubeAPIFailure, pod, "failed to open log stream", err)
	}
	defer stream.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(stream); err != nil {
		return "", shipcaterrors.New(shipcaterrors.KubeAPIFailure, pod, "failed to read log stream", err)
	}
	return buf.String(), nil
}

// PrimaryContainer returns the name of a pod's first container, used when
// no explicit container name is configured for log tailing.
func PrimaryContainer(pod *corev1.Pod) string {
	if len(pod.Spec.Containers) == 0 {
		return ""
	}
	return pod.Spec.Containers[0].Name
}

// IsPodHealthy reports whether a pod is Running and every container in it
// reports Ready, the predicate the tracker's debug-on-failure path uses to
// decide which pods are worth a log tail.
func IsPodHealthy(pod *corev1.Pod) bool {
	if pod.Status.Phase != corev1.PodRunning {
		return false
	}
	for _, cs := range pod.Status.ContainerStatuses {
		if !cs.Ready {
			return false
		}
	}
	return true
}
