//go:build integration

package integration

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// TestReconcileAppliesEveryServiceInRegion installs two services directly
// (reconcile's UpgradeWaitMaybeRollback mode never installs a service for
// the first time, only upgrades an existing deploy), bumps both images on
// disk, then checks that one `cluster crd reconcile` sweep picks up both.
func TestReconcileAppliesEveryServiceInRegion(t *testing.T) {
	ctx := context.Background()
	repo := newFixtureRepo(t)
	renderer := fakeRendererScript(t)
	repo.writeService("svc-a", "nginx:1.21")
	repo.writeService("svc-b", "nginx:1.21")

	for _, name := range []string{"svc-a", "svc-b"} {
		out, err := shipcatCmd(repo, renderer, "apply", name, "--install").CombinedOutput()
		t.Logf("install %s output:\n%s", name, string(out))
		require.NoError(t, err)
	}

	repo.writeService("svc-a", "nginx:1.25")
	repo.writeService("svc-b", "nginx:1.25")

	out, err := shipcatCmd(repo, renderer, "cluster", "crd", "reconcile", "--workers", "2").CombinedOutput()
	t.Logf("reconcile output:\n%s", string(out))
	require.NoError(t, err)

	client := kubeClient(t)
	for _, name := range []string{"svc-a", "svc-b"} {
		deploy, err := client.AppsV1().Deployments("default").Get(ctx, name, metav1.GetOptions{})
		require.NoError(t, err)
		assert.Equal(t, "nginx:1.25", deploy.Spec.Template.Spec.Containers[0].Image)
	}
}
