package apply

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"sigs.k8s.io/yaml"

	"github.com/shipcat/shipcat/internal/config"
	shipcaterrors "github.com/shipcat/shipcat/internal/errors"
	"github.com/shipcat/shipcat/internal/manifest"
	"github.com/shipcat/shipcat/internal/utils"
)

// ChartRenderer abstracts the external chart renderer subprocess so the
// Applier can be driven by a stub in tests without shelling out.
type ChartRenderer interface {
	Render(ctx context.Context, m *manifest.Manifest, region *config.Region, valuesPath string) ([]*unstructured.Unstructured, error)
}

// Renderer shells out to the external chart renderer subprocess (spec §6:
// "charts/<chart>/: input to the external chart renderer"), the same
// exec.CommandContext-and-capture-stderr pattern the diff package and the
// teacher's atomic applier use for their own subprocesses.
type Renderer struct {
	Command   string
	ChartsDir string
}

// NewRenderer builds a Renderer targeting chartsDir, defaulting the
// renderer binary to "helm" unless SHIPCAT_CHART_RENDERER overrides it.
func NewRenderer(chartsDir string) *Renderer {
	cmd := os.Getenv("SHIPCAT_CHART_RENDERER")
	if cmd == "" {
		cmd = "helm"
	}
	return &Renderer{Command: cmd, ChartsDir: chartsDir}
}

// WriteValuesFile marshals a Completed manifest to a temporary values file
// (spec §6: "<svc>.helm.gen.yml"), returning its path for the renderer to
// consume.
func WriteValuesFile(m *manifest.Manifest) (string, error) {
	raw, err := yaml.Marshal(m)
	if err != nil {
		return "", shipcaterrors.New(shipcaterrors.HelmRenderFailure, m.Name, "failed to marshal values", err)
	}
	f, err := os.CreateTemp("", m.Name+".helm.gen.*.yml")
	if err != nil {
		return "", shipcaterrors.New(shipcaterrors.HelmRenderFailure, m.Name, "failed to create values file", err)
	}
	defer f.Close()
	if _, err := f.Write(raw); err != nil {
		return "", shipcaterrors.New(shipcaterrors.HelmRenderFailure, m.Name, "failed to write values file", err)
	}
	return f.Name(), nil
}

// Render invokes the chart renderer against m's chart with valuesPath,
// returning the decoded set of final Kubernetes objects.
func (r *Renderer) Render(ctx context.Context, m *manifest.Manifest, region *config.Region, valuesPath string) ([]*unstructured.Unstructured, error) {
	chart := m.Chart
	if chart == "" {
		chart = "base"
	}
	args := []string{"template", m.Name, filepath.Join(r.ChartsDir, chart), "--values", valuesPath, "--namespace", m.Namespace}
	cmd := exec.CommandContext(ctx, r.Command, args...)
	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, shipcaterrors.New(shipcaterrors.HelmRenderFailure, m.Name, firstLine(stderr.String()), err)
	}
	return decodeManifests(out.Bytes())
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// decodeManifests splits a multi-document YAML/JSON stream into decoded
// objects, skipping empty or malformed documents.
func decodeManifests(data []byte) ([]*unstructured.Unstructured, error) {
	docs, err := utils.ReadObjects(bytes.NewReader(data))
	if err != nil {
		return nil, shipcaterrors.New(shipcaterrors.HelmRenderFailure, "", "failed to decode rendered manifests", err)
	}
	return docs, nil
}
