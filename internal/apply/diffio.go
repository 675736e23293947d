package apply

import (
	"os"

	"sigs.k8s.io/yaml"

	shipcaterrors "github.com/shipcat/shipcat/internal/errors"
)

// writeDiffFiles materializes the before/after objects (nil before means
// "does not exist yet") to the temporary files named in spec §6
// (before.shipcat.gen.yml / after.shipcat.gen.yml) that the diff
// subprocess compares. cleanup removes both regardless of outcome.
func writeDiffFiles(service string, before, after map[string]interface{}) (beforePath, afterPath string, cleanup func(), err error) {
	bf, err := os.CreateTemp("", service+".before.shipcat.gen.*.yml")
	if err != nil {
		return "", "", nil, shipcaterrors.New(shipcaterrors.HelmRenderFailure, service, "failed to create before-state file", err)
	}
	af, err := os.CreateTemp("", service+".after.shipcat.gen.*.yml")
	if err != nil {
		os.Remove(bf.Name())
		return "", "", nil, shipcaterrors.New(shipcaterrors.HelmRenderFailure, service, "failed to create after-state file", err)
	}
	cleanup = func() {
		os.Remove(bf.Name())
		os.Remove(af.Name())
	}

	if before != nil {
		raw, merr := yaml.Marshal(before)
		if merr != nil {
			cleanup()
			return "", "", nil, shipcaterrors.New(shipcaterrors.HelmRenderFailure, service, "failed to marshal before state", merr)
		}
		if _, werr := bf.Write(raw); werr != nil {
			cleanup()
			return "", "", nil, shipcaterrors.New(shipcaterrors.HelmRenderFailure, service, "failed to write before state", werr)
		}
	}
	bf.Close()

	raw, merr := yaml.Marshal(after)
	if merr != nil {
		cleanup()
		return "", "", nil, shipcaterrors.New(shipcaterrors.HelmRenderFailure, service, "failed to marshal after state", merr)
	}
	if _, werr := af.Write(raw); werr != nil {
		cleanup()
		return "", "", nil, shipcaterrors.New(shipcaterrors.HelmRenderFailure, service, "failed to write after state", werr)
	}
	af.Close()

	return bf.Name(), af.Name(), cleanup, nil
}
