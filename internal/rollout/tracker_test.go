package rollout

import (
	"context"
	"testing"

	appsv1 "k8s.io/api/apps/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/fake"
	"k8s.io/utils/ptr"

	"github.com/shipcat/shipcat/internal/kube"
	"github.com/shipcat/shipcat/internal/manifest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testLogger() *zap.Logger { return zap.NewNop() }

func TestMinReplicasPrefersAutoScaling(t *testing.T) {
	one := 1
	m := &manifest.Manifest{ReplicaCount: &one, AutoScaling: &manifest.AutoScaling{MinReplicas: 3, MaxReplicas: 5}}
	assert.Equal(t, 3, minReplicas(m))
}

func TestMinReplicasFallsBackToReplicaCount(t *testing.T) {
	five := 5
	m := &manifest.Manifest{ReplicaCount: &five}
	assert.Equal(t, 5, minReplicas(m))
}

func TestParsePercent(t *testing.T) {
	v, ok := parsePercent("25%")
	require.True(t, ok)
	assert.InDelta(t, 0.25, v, 0.001)

	_, ok = parsePercent("")
	assert.False(t, ok)
}

func newDeployment(namespace, name string, replicas, ready, unavailable int32) *appsv1.Deployment {
	return &appsv1.Deployment{
		ObjectMeta: metav1.ObjectMeta{Namespace: namespace, Name: name},
		Spec:       appsv1.DeploymentSpec{Replicas: ptr.To(replicas)},
		Status: appsv1.DeploymentStatus{
			Replicas:             replicas,
			ReadyReplicas:        ready,
			UnavailableReplicas:  unavailable,
			Conditions: []appsv1.DeploymentCondition{
				{Type: appsv1.DeploymentAvailable, Status: "True"},
			},
		},
	}
}

func newReplicaSet(namespace, hash string, replicas, ready int32) *appsv1.ReplicaSet {
	return &appsv1.ReplicaSet{
		ObjectMeta: metav1.ObjectMeta{
			Namespace: namespace,
			Name:      "webapp-" + hash,
			Labels:    map[string]string{"pod-template-hash": hash},
		},
		Status: appsv1.ReplicaSetStatus{Replicas: replicas, ReadyReplicas: ready},
	}
}

// TestTrackPinnedHashConvergesOnFourthPoll reproduces spec §8 scenario 3:
// a Deployment with minReplicas=3, a pinned ReplicaSet hash H, and a poll
// sequence of ready_replicas=[0,1,2,3] converges on the 4th poll.
func TestTrackPinnedHashConvergesOnFourthPoll(t *testing.T) {
	three := 3
	m := &manifest.Manifest{Name: "webapp", Namespace: "dev", ReplicaCount: &three, ImageSize: 100}

	clientset := fake.NewSimpleClientset(newDeployment("dev", "webapp", 3, 0, 3))
	tracker := &Tracker{Kube: &kube.Client{Clientset: clientset}, Log: testLogger()}

	ctx := context.Background()
	_, err := clientset.AppsV1().ReplicaSets("dev").Create(ctx, newReplicaSet("dev", "h1", 3, 0), metav1.CreateOptions{})
	require.NoError(t, err)

	readySequence := []int32{0, 1, 2, 3}
	for i, wantReady := range readySequence {
		if i > 0 {
			rs := newReplicaSet("dev", "h1", 3, wantReady)
			rs.ResourceVersion = ""
			_, err := clientset.AppsV1().ReplicaSets("dev").Update(ctx, rs, metav1.UpdateOptions{})
			require.NoError(t, err)
		}

		ready, desired, complete, err := tracker.pollDeployment(ctx, m, 3, "h1")
		require.NoError(t, err)
		assert.Equal(t, 3, desired)
		if i < len(readySequence)-1 {
			assert.False(t, complete)
		} else {
			assert.True(t, complete)
			assert.Equal(t, 3, ready)
		}
	}
}

func TestPollStatefulSetSuccessRequiresMatchingUpdateRevision(t *testing.T) {
	two := 2
	m := &manifest.Manifest{Name: "db", Namespace: "dev", Workload: manifest.WorkloadStatefulSet, ReplicaCount: &two}

	sts := &appsv1.StatefulSet{
		ObjectMeta: metav1.ObjectMeta{Namespace: "dev", Name: "db"},
		Spec:       appsv1.StatefulSetSpec{Replicas: ptr.To(int32(2))},
		Status: appsv1.StatefulSetStatus{
			UpdatedReplicas: 2,
			ReadyReplicas:   2,
			UpdateRevision:  "rev-2",
		},
	}
	clientset := fake.NewSimpleClientset(sts)
	tracker := &Tracker{Kube: &kube.Client{Clientset: clientset}, Log: testLogger()}

	ready, desired, complete, err := tracker.pollStatefulSet(context.Background(), m, 2, "rev-1")
	require.NoError(t, err)
	assert.Equal(t, 2, ready)
	assert.Equal(t, 2, desired)
	assert.False(t, complete, "update revision mismatch must not report success")

	ready, _, complete, err = tracker.pollStatefulSet(context.Background(), m, 2, "rev-2")
	require.NoError(t, err)
	assert.True(t, complete)
	assert.Equal(t, 2, ready)
}

func TestPollDeploymentNoPinnedHashUsesReadyMinusUnavailable(t *testing.T) {
	three := 3
	m := &manifest.Manifest{Name: "webapp", Namespace: "dev", ReplicaCount: &three}
	clientset := fake.NewSimpleClientset(newDeployment("dev", "webapp", 3, 3, 0))
	tracker := &Tracker{Kube: &kube.Client{Clientset: clientset}, Log: testLogger()}

	ready, desired, complete, err := tracker.pollDeployment(context.Background(), m, 3, "")
	require.NoError(t, err)
	assert.Equal(t, 3, ready)
	assert.Equal(t, 3, desired)
	assert.True(t, complete)
}

func TestPollDeploymentMissingReturnsNotComplete(t *testing.T) {
	three := 3
	m := &manifest.Manifest{Name: "ghost", Namespace: "dev", ReplicaCount: &three}
	clientset := fake.NewSimpleClientset()
	tracker := &Tracker{Kube: &kube.Client{Clientset: clientset}, Log: testLogger()}

	_, _, complete, err := tracker.pollDeployment(context.Background(), m, 3, "")
	require.NoError(t, err)
	assert.False(t, complete)
}
