package manifest

import (
	"fmt"
	"strings"

	"github.com/shipcat/shipcat/internal/config"
	shipcaterrors "github.com/shipcat/shipcat/internal/errors"
	"github.com/shipcat/shipcat/internal/secrets"
)

// Upgrade renders a Base manifest's templated fields and resolves its
// secrets against store, producing a manifest in the Stubbed or Completed
// state (spec §4.1 step 6). The only difference between the two target
// states is which store the caller passes in: a secrets.Mock for Stubbed,
// a live secrets.Store for Completed.
func Upgrade(m *Manifest, target State, store secrets.Store, region *config.Region) error {
	if m.State() != Base {
		return shipcaterrors.New(shipcaterrors.InvalidManifest, m.Name, fmt.Sprintf("cannot upgrade a manifest already in state %s", m.State()), nil)
	}
	if target != Stubbed && target != Completed {
		return shipcaterrors.New(shipcaterrors.InvalidManifest, m.Name, fmt.Sprintf("invalid upgrade target %s", target), nil)
	}

	ctx := &TemplateContext{
		Service:     m.Name,
		Region:      region.Name,
		Environment: m.Environment,
		Namespace:   m.Namespace,
		Cluster:     region.Name,
		Env:         m.Env,
		BaseURLs:    region.BaseURLs,
		Kafka:       m.Kafka,
		Kong:        m.Kong,
	}

	rendered := make(map[string]string, len(m.Env))
	for k, v := range m.Env {
		out, err := RenderTemplate("env:"+k, v, ctx)
		if err != nil {
			return shipcaterrors.Wrap(err, fmt.Sprintf("%s: rendering env key %s", m.Name, k))
		}
		rendered[k] = out
	}

	plain, vaultKeys := PartitionEnv(rendered)
	envSecrets := map[string]string{}
	for k, v := range rendered {
		if strings.HasPrefix(v, SecretSentinel) {
			envSecrets[k] = strings.TrimPrefix(v, SecretSentinel)
		}
	}

	prefix := secrets.Key(region.SecretPrefix, m.Name)
	for _, k := range vaultKeys {
		val, err := store.Read(secrets.Key(prefix, k))
		if err != nil {
			return shipcaterrors.New(shipcaterrors.MissingSecret, k, fmt.Sprintf("%s: failed to read secret", m.Name), err)
		}
		envSecrets[k] = val
	}

	resolvedFiles := map[string][]byte{}
	for name, v := range m.SecretFiles {
		if v != InVaultMarker {
			continue
		}
		val, err := store.Read(secrets.Key(prefix, name))
		if err != nil {
			return shipcaterrors.New(shipcaterrors.MissingSecret, name, fmt.Sprintf("%s: failed to read secret file", m.Name), err)
		}
		decoded, err := secrets.DecodeSecretFile(name, val)
		if err != nil {
			return err
		}
		resolvedFiles[name] = decoded
	}

	m.Env = plain
	m.EnvSecrets = envSecrets
	m.SecretFilesResolved = resolvedFiles
	m.state = target
	return nil
}
