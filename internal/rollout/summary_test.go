package rollout

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

func TestNewPodSummary(t *testing.T) {
	pod := corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{Name: "web-abc123", CreationTimestamp: metav1.NewTime(time.Now().Add(-2 * time.Hour))},
		Spec:       corev1.PodSpec{Containers: []corev1.Container{{Image: "docker.io/library/web:1.2.3"}}},
		Status: corev1.PodStatus{
			Phase: corev1.PodRunning,
			ContainerStatuses: []corev1.ContainerStatus{
				{Ready: true, RestartCount: 2},
			},
		},
	}
	s := NewPodSummary(pod)
	assert.Equal(t, "web-abc123", s.Name)
	assert.Equal(t, "1.2.3", s.Version)
	assert.Equal(t, "Running", s.Phase)
	assert.Equal(t, 1, s.Running)
	assert.Equal(t, 1, s.Containers)
	assert.Equal(t, int32(2), s.Restarts)
	assert.Contains(t, s.String(), "web-abc123")
	assert.Contains(t, s.String(), "1/1")
}

func TestNewReplicaSetSummaryRequiresHashLabel(t *testing.T) {
	_, ok := NewReplicaSetSummary(appsv1.ReplicaSet{})
	assert.False(t, ok)

	rs := appsv1.ReplicaSet{
		ObjectMeta: metav1.ObjectMeta{Labels: map[string]string{"pod-template-hash": "abc123"}},
		Status:     appsv1.ReplicaSetStatus{Replicas: 3, ReadyReplicas: 2},
	}
	summary, ok := NewReplicaSetSummary(rs)
	assert.True(t, ok)
	assert.Equal(t, "abc123", summary.Hash)
	assert.Equal(t, int32(3), summary.Replicas)
	assert.Equal(t, int32(2), summary.Ready)
}

func TestNewDeploySummaryProgressingCondition(t *testing.T) {
	d := appsv1.Deployment{
		Status: appsv1.DeploymentStatus{
			Replicas: 3, ReadyReplicas: 3, UnavailableReplicas: 0,
			Conditions: []appsv1.DeploymentCondition{
				{Type: appsv1.DeploymentProgressing, Reason: "NewReplicaSetAvailable", Message: "rollout complete"},
			},
		},
	}
	s := NewDeploySummary(d)
	assert.True(t, s.NewReplicaSetAvailable)
	assert.Equal(t, "rollout complete", s.Message)
	assert.Contains(t, s.String(), "3/3 ready")
}

func TestNewStatefulSummary(t *testing.T) {
	s := NewStatefulSummary(appsv1.StatefulSet{
		Status: appsv1.StatefulSetStatus{
			Replicas: 3, ReadyReplicas: 3,
			CurrentRevision: "web-1", CurrentReplicas: 1,
			UpdateRevision: "web-2", UpdatedReplicas: 2,
		},
	})
	assert.Equal(t, "web-1", s.CurrentRevision)
	assert.Equal(t, "web-2", s.UpdateRevision)
	assert.Contains(t, s.String(), "3/3 ready")
}

func TestShortVersion(t *testing.T) {
	assert.Equal(t, "1.2.3", shortVersion("docker.io/library/web:1.2.3"))
	assert.Equal(t, "unknown version", shortVersion("docker.io/library/web"))
}
