package apply

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	appsv1 "k8s.io/api/apps/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/fake"

	"github.com/shipcat/shipcat/internal/config"
	"github.com/shipcat/shipcat/internal/kube"
	"github.com/shipcat/shipcat/internal/manifest"
)

func testApplier(kubeClient *kube.Client) *Applier {
	return &Applier{Kube: kubeClient, Log: zap.NewNop(), Originator: "test"}
}

func TestResolveVersionPrefersExplicitArgument(t *testing.T) {
	a := testApplier(nil)
	v, err := a.resolveVersion(context.Background(), &manifest.Manifest{Name: "fake-ask", Version: "1.5.0"}, &config.Region{}, Options{Version: "1.6.0"})
	require.NoError(t, err)
	assert.Equal(t, "1.6.0", v)
}

func TestResolveVersionFallsBackToManifest(t *testing.T) {
	a := testApplier(nil)
	v, err := a.resolveVersion(context.Background(), &manifest.Manifest{Name: "fake-ask", Version: "1.5.0"}, &config.Region{}, Options{})
	require.NoError(t, err)
	assert.Equal(t, "1.5.0", v)
}

func TestResolveVersionMissingAndNotInstallIsIgnorable(t *testing.T) {
	a := testApplier(nil)
	_, err := a.resolveVersion(context.Background(), &manifest.Manifest{Name: "b"}, &config.Region{}, Options{Mode: UpgradeNoWait})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MissingRollingVersion")
}

func TestResolveVersionMissingAndInstallIsFatal(t *testing.T) {
	a := testApplier(nil)
	_, err := a.resolveVersion(context.Background(), &manifest.Manifest{Name: "b"}, &config.Region{}, Options{Mode: UpgradeInstall})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MissingVersion")
}

func TestPinnedHashAfterApplyDeploymentPicksNewestReplicaSet(t *testing.T) {
	clientset := fake.NewSimpleClientset(
		&appsv1.ReplicaSet{ObjectMeta: metav1.ObjectMeta{
			Name: "fake-ask-old", Namespace: "dev", Labels: map[string]string{"app": "fake-ask", "pod-template-hash": "old"},
			CreationTimestamp: metav1.NewTime(time.Now().Add(-1 * time.Hour)),
		}},
		&appsv1.ReplicaSet{ObjectMeta: metav1.ObjectMeta{
			Name: "fake-ask-new", Namespace: "dev", Labels: map[string]string{"app": "fake-ask", "pod-template-hash": "new"},
			CreationTimestamp: metav1.Now(),
		}},
	)
	a := testApplier(&kube.Client{Clientset: clientset})

	hash, err := a.pinnedHashAfterApply(context.Background(), &manifest.Manifest{Name: "fake-ask", Namespace: "dev", Workload: manifest.WorkloadDeployment})
	require.NoError(t, err)
	assert.Equal(t, "new", hash)
}

func TestPinnedHashAfterApplyStatefulSetUsesUpdateRevision(t *testing.T) {
	clientset := fake.NewSimpleClientset(&appsv1.StatefulSet{
		ObjectMeta: metav1.ObjectMeta{Name: "fake-ask", Namespace: "dev"},
		Status:     appsv1.StatefulSetStatus{UpdateRevision: "fake-ask-7f8"},
	})
	a := testApplier(&kube.Client{Clientset: clientset})

	hash, err := a.pinnedHashAfterApply(context.Background(), &manifest.Manifest{Name: "fake-ask", Namespace: "dev", Workload: manifest.WorkloadStatefulSet})
	require.NoError(t, err)
	assert.Equal(t, "fake-ask-7f8", hash)
}
