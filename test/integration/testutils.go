package integration

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
)

func kubeConfig() (*rest.Config, error) {
	if cfg, err := rest.InClusterConfig(); err == nil {
		return cfg, nil
	}
	return clientcmd.BuildConfigFromFlags("", clientcmd.RecommendedHomeFile)
}

func kubeClient(t *testing.T) *kubernetes.Clientset {
	t.Helper()
	cfg, err := kubeConfig()
	require.NoError(t, err)
	client, err := kubernetes.NewForConfig(cfg)
	require.NoError(t, err)
	return client
}

func dynClient(t *testing.T) dynamic.Interface {
	t.Helper()
	cfg, err := kubeConfig()
	require.NoError(t, err)
	dc, err := dynamic.NewForConfig(cfg)
	require.NoError(t, err)
	return dc
}

// fixtureRepo lays out a minimal manifests repo under t.TempDir():
// shipcat.conf with a single "test" region, a "base" chart the fake
// renderer below understands, and one service directory per call to
// writeService.
type fixtureRepo struct {
	t    *testing.T
	root string
}

func newFixtureRepo(t *testing.T) *fixtureRepo {
	t.Helper()
	root := t.TempDir()
	conf := `
regions:
  test:
    name: test
    namespace: default
    environment: dev
    versionScheme: Semver
    secretPrefix: test-uk/
    vaultUrl: https://vault.test.invalid
    environmentClass: Dev
clusters:
  test-cluster:
    name: test-cluster
    apiUrl: https://localhost:6443
    regions: [test]
teams:
  - name: core
    owner: core@example.com
defaults:
  imagePrefix: docker.io/library
  chart: base
  replicaCount: 1
`
	require.NoError(t, os.WriteFile(filepath.Join(root, "shipcat.conf"), []byte(conf), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "services"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "charts", "base", "templates"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "charts", "base", "Chart.yaml"),
		[]byte("apiVersion: v2\nname: base\nversion: 0.1.0\n"), 0o644))
	return &fixtureRepo{t: t, root: root}
}

// writeService writes services/<name>/manifest.yml with the given image,
// deployable against the "test" region with one replica.
func (f *fixtureRepo) writeService(name, image string) {
	f.t.Helper()
	dir := filepath.Join(f.root, "services", name)
	require.NoError(f.t, os.MkdirAll(dir, 0o755))
	manifest := fmt.Sprintf(`
name: %s
image: %s
version: "1.0.0"
regions: [test]
replicaCount: 1
`, name, image)
	require.NoError(f.t, os.WriteFile(filepath.Join(dir, "manifest.yml"), []byte(manifest), 0o644))
}

// fakeRendererScript writes a SHIPCAT_CHART_RENDERER-compatible shell
// script that turns <name> and the values file's "image" field into a
// single-container Deployment, standing in for `helm template` so these
// tests don't depend on a helm binary being installed alongside shipcat.
func fakeRendererScript(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "fake-renderer.sh")
	script := `#!/bin/sh
set -e
name="$2"
values=""
ns="default"
while [ "$#" -gt 0 ]; do
  case "$1" in
    --values) values="$2"; shift 2 ;;
    --namespace) ns="$2"; shift 2 ;;
    *) shift ;;
  esac
done
image=$(grep '^image:' "$values" | head -1 | awk '{print $2}')
cat <<EOF
apiVersion: apps/v1
kind: Deployment
metadata:
  name: ${name}
  namespace: ${ns}
spec:
  replicas: 1
  selector:
    matchLabels:
      app: ${name}
  template:
    metadata:
      labels:
        app: ${name}
    spec:
      containers:
        - name: ${name}
          image: ${image}
EOF
`
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

// shipcatEnv returns the environment a `shipcat` invocation needs beyond
// its normal one: the fake chart renderer in place of helm.
func shipcatEnv(rendererPath string) []string {
	return append(os.Environ(), "SHIPCAT_CHART_RENDERER="+rendererPath)
}
