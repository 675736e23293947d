package kube

import (
	"context"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	shipcaterrors "github.com/shipcat/shipcat/internal/errors"
)

// GetDeployment fetches a Deployment by namespace/name, or (nil, nil) if
// absent.
func (c *Client) GetDeployment(ctx context.Context, namespace, name string) (*appsv1.Deployment, error) {
	d, err := c.Clientset.AppsV1().Deployments(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		if apierrorsNotFound(err) {
			return nil, nil
		}
		return nil, shipcaterrors.New(shipcaterrors.KubeAPIFailure, name, "get deployment failed", err)
	}
	return d, nil
}

// GetStatefulSet fetches a StatefulSet by namespace/name, or (nil, nil) if
// absent.
func (c *Client) GetStatefulSet(ctx context.Context, namespace, name string) (*appsv1.StatefulSet, error) {
	s, err := c.Clientset.AppsV1().StatefulSets(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		if apierrorsNotFound(err) {
			return nil, nil
		}
		return nil, shipcaterrors.New(shipcaterrors.KubeAPIFailure, name, "get statefulset failed", err)
	}
	return s, nil
}

// GetReplicaSetByHash returns the first ReplicaSet in namespace whose
// pod-template-hash label matches hash, or (nil, nil) if none does. The
// owning Deployment is not checked.
func (c *Client) GetReplicaSetByHash(ctx context.Context, namespace, hash string) (*appsv1.ReplicaSet, error) {
	list, err := c.Clientset.AppsV1().ReplicaSets(namespace).List(ctx, metav1.ListOptions{
		LabelSelector: "pod-template-hash=" + hash,
	})
	if err != nil {
		return nil, shipcaterrors.New(shipcaterrors.KubeAPIFailure, hash, "list replicasets failed", err)
	}
	if len(list.Items) == 0 {
		return nil, nil
	}
	return &list.Items[0], nil
}

// ListReplicaSetsForApp lists every ReplicaSet in namespace carrying the
// standard "app=<name>" label, used by the applier to find the newest
// ReplicaSet right after an apply, before its pod-template-hash is known.
func (c *Client) ListReplicaSetsForApp(ctx context.Context, namespace, name string) ([]appsv1.ReplicaSet, error) {
	list, err := c.Clientset.AppsV1().ReplicaSets(namespace).List(ctx, metav1.ListOptions{
		LabelSelector: PodLabelSelector(name),
	})
	if err != nil {
		return nil, shipcaterrors.New(shipcaterrors.KubeAPIFailure, name, "list replicasets failed", err)
	}
	return list.Items, nil
}

// ListPods returns every pod in namespace matching labelSelector.
func (c *Client) ListPods(ctx context.Context, namespace, labelSelector string) ([]corev1.Pod, error) {
	list, err := c.Clientset.CoreV1().Pods(namespace).List(ctx, metav1.ListOptions{LabelSelector: labelSelector})
	if err != nil {
		return nil, shipcaterrors.New(shipcaterrors.KubeAPIFailure, labelSelector, "list pods failed", err)
	}
	return list.Items, nil
}
