//go:build integration

package integration

import (
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAcceptsMatchingFolderName(t *testing.T) {
	repo := newFixtureRepo(t)
	repo.writeService("web", "nginx:1.21")

	out, err := exec.Command("shipcat", "--manifests-dir", repo.root, "--region", "test", "validate", "web").CombinedOutput()
	t.Logf("validate output:\n%s", string(out))
	assert.NoError(t, err)
}

func TestDiffReportsNoChangesAfterApply(t *testing.T) {
	repo := newFixtureRepo(t)
	renderer := fakeRendererScript(t)
	repo.writeService("worker", "nginx:1.21")

	out, err := shipcatCmd(repo, renderer, "apply", "worker", "--install").CombinedOutput()
	t.Logf("install output:\n%s", string(out))
	require.NoError(t, err)

	out, err = shipcatCmd(repo, renderer, "diff", "worker").CombinedOutput()
	t.Logf("diff output:\n%s", string(out))
	require.NoError(t, err)
	assert.Contains(t, string(out), "no changes")
}

func TestStatusReflectsLastApply(t *testing.T) {
	repo := newFixtureRepo(t)
	renderer := fakeRendererScript(t)
	repo.writeService("cache", "nginx:1.21")

	out, err := shipcatCmd(repo, renderer, "apply", "cache", "--install").CombinedOutput()
	t.Logf("install output:\n%s", string(out))
	require.NoError(t, err)

	out, err = shipcatCmd(repo, renderer, "status", "cache").CombinedOutput()
	t.Logf("status output:\n%s", string(out))
	require.NoError(t, err)
	assert.Contains(t, string(out), "complete=true")
}
