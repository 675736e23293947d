package secrets

import (
	"fmt"
	"strings"

	vaultapi "github.com/hashicorp/vault/api"

	shipcaterrors "github.com/shipcat/shipcat/internal/errors"
)

// VaultStore is the real Store backing a shipcat deployment, reading
// secrets from a Vault KV mount via VAULT_ADDR/VAULT_TOKEN, the two env
// vars spec §6's env-var table documents for secret resolution.
type VaultStore struct {
	client *vaultapi.Client
	mount  string
}

// NewVaultStore builds a VaultStore against addr/token, reading secrets
// under the given KV mount (e.g. "secret").
func NewVaultStore(addr, token, mount string) (*VaultStore, error) {
	cfg := vaultapi.DefaultConfig()
	cfg.Address = addr
	client, err := vaultapi.NewClient(cfg)
	if err != nil {
		return nil, shipcaterrors.New(shipcaterrors.MissingVaultConfig, addr, "failed to build vault client", err)
	}
	client.SetToken(token)
	return &VaultStore{client: client, mount: mount}, nil
}

// Read fetches the "value" field of the secret at key (e.g.
// "<region>/<service>/<KEY>"), coercing it to a string via CoerceValue.
func (v *VaultStore) Read(key string) (string, error) {
	secret, err := v.client.Logical().Read(v.path(key))
	if err != nil {
		return "", shipcaterrors.New(shipcaterrors.VaultReadFailure, key, "vault read failed", err)
	}
	if secret == nil || secret.Data == nil {
		return "", shipcaterrors.New(shipcaterrors.VaultReadFailure, key, "no secret found", nil)
	}
	data := secret.Data
	if inner, ok := data["data"].(map[string]interface{}); ok {
		data = inner
	}
	return CoerceValue(key, data)
}

// List returns the leaf keys directly under prefix, via Vault's metadata
// LIST operation.
func (v *VaultStore) List(prefix string) ([]string, error) {
	secret, err := v.client.Logical().List(fmt.Sprintf("%s/metadata/%s", strings.TrimRight(v.mount, "/"), strings.TrimLeft(prefix, "/")))
	if err != nil {
		return nil, shipcaterrors.New(shipcaterrors.VaultReadFailure, prefix, "vault list failed", err)
	}
	if secret == nil || secret.Data == nil {
		return nil, nil
	}
	raw, ok := secret.Data["keys"].([]interface{})
	if !ok {
		return nil, nil
	}
	keys := make([]string, 0, len(raw))
	for _, k := range raw {
		s, ok := k.(string)
		if !ok || strings.HasSuffix(s, "/") {
			continue
		}
		keys = append(keys, s)
	}
	return keys, nil
}

func (v *VaultStore) path(key string) string {
	return fmt.Sprintf("%s/data/%s", strings.TrimRight(v.mount, "/"), strings.TrimLeft(key, "/"))
}
