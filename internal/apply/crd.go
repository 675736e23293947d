package apply

import (
	"context"
	"encoding/json"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/shipcat/shipcat/internal/config"
	shipcaterrors "github.com/shipcat/shipcat/internal/errors"
	"github.com/shipcat/shipcat/internal/kube"
	"github.com/shipcat/shipcat/internal/manifest"
	"github.com/shipcat/shipcat/internal/status"
)

// ToCRD converts a Completed manifest into the ShipcatManifest CRD body:
// the Base manifest shape (no secrets), matching spec §6's "the
// ShipcatManifest CRD spec is the Base manifest (no secrets)".
func ToCRD(m *manifest.Manifest, namespace string) (*unstructured.Unstructured, error) {
	base := m.Clone()
	base.EnvSecrets = nil
	base.SecretFilesResolved = nil

	raw, err := json.Marshal(base)
	if err != nil {
		return nil, shipcaterrors.New(shipcaterrors.HelmRenderFailure, m.Name, "failed to marshal manifest to CRD spec", err)
	}
	var spec map[string]interface{}
	if err := json.Unmarshal(raw, &spec); err != nil {
		return nil, shipcaterrors.New(shipcaterrors.HelmRenderFailure, m.Name, "failed to convert manifest to CRD spec map", err)
	}

	obj := &unstructured.Unstructured{Object: map[string]interface{}{
		"apiVersion": kube.ShipcatManifestGVK.GroupVersion().String(),
		"kind":       kube.ShipcatManifestGVK.Kind,
		"metadata": map[string]interface{}{
			"name":      m.Name,
			"namespace": namespace,
			"labels":    map[string]interface{}{"app": m.Name},
		},
		"spec": spec,
	}}
	return obj, nil
}

// FromCRD decodes a ShipcatManifest CRD object's spec back into a Base
// manifest, used by the read server and by the applier's "rolling"
// version-inference path.
func FromCRD(obj *unstructured.Unstructured) (*manifest.Manifest, error) {
	spec, found, err := unstructured.NestedMap(obj.Object, "spec")
	if err != nil || !found {
		return nil, shipcaterrors.New(shipcaterrors.InvalidManifest, obj.GetName(), "CRD object has no spec", err)
	}
	raw, err := json.Marshal(spec)
	if err != nil {
		return nil, shipcaterrors.New(shipcaterrors.InvalidManifest, obj.GetName(), "failed to marshal CRD spec", err)
	}
	var m manifest.Manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, shipcaterrors.New(shipcaterrors.InvalidManifest, obj.GetName(), "failed to decode CRD spec into manifest", err)
	}
	return &m, nil
}

// ToConfigCRD converts a Config into the region's ShipcatConfig CRD body,
// named after the region it describes. Config carries no per-service
// secrets, so unlike ToCRD there is nothing to strip before marshaling;
// the name still documents the contract spec §4.5 describes ("the
// ShipcatConfig CRD, with secrets stripped").
func ToConfigCRD(conf *config.Config, region string) (*unstructured.Unstructured, error) {
	raw, err := json.Marshal(conf)
	if err != nil {
		return nil, shipcaterrors.New(shipcaterrors.HelmRenderFailure, region, "failed to marshal config to CRD spec", err)
	}
	var spec map[string]interface{}
	if err := json.Unmarshal(raw, &spec); err != nil {
		return nil, shipcaterrors.New(shipcaterrors.HelmRenderFailure, region, "failed to convert config to CRD spec map", err)
	}

	regionInfo, ok := conf.Regions[region]
	namespace := region
	if ok {
		namespace = regionInfo.Namespace
	}

	obj := &unstructured.Unstructured{Object: map[string]interface{}{
		"apiVersion": kube.ShipcatConfigGVK.GroupVersion().String(),
		"kind":       kube.ShipcatConfigGVK.Kind,
		"metadata": map[string]interface{}{
			"name":      region,
			"namespace": namespace,
		},
		"spec": spec,
	}}
	return obj, nil
}

// persistManifestCRD server-side-applies the service's ShipcatManifest CRD
// with its current status conditions attached, so the read server's cache
// and `shipcat status` both observe the same apply/rollout state the
// Applier just computed. This is what actually publishes a service's
// ShipcatManifest object; diffAgainstCluster only ever reads it.
func persistManifestCRD(ctx context.Context, kubeClient *kube.Client, m *manifest.Manifest, region *config.Region, st *status.Status) error {
	obj, err := ToCRD(m, region.Namespace)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(st)
	if err != nil {
		return shipcaterrors.New(shipcaterrors.HelmRenderFailure, m.Name, "failed to marshal status", err)
	}
	var statusMap map[string]interface{}
	if err := json.Unmarshal(raw, &statusMap); err != nil {
		return shipcaterrors.New(shipcaterrors.HelmRenderFailure, m.Name, "failed to convert status to map", err)
	}
	if err := unstructured.SetNestedMap(obj.Object, statusMap, "status"); err != nil {
		return shipcaterrors.New(shipcaterrors.HelmRenderFailure, m.Name, "failed to attach status", err)
	}
	_, err = kubeClient.Apply(ctx, obj)
	return err
}

// FromConfigCRD decodes a ShipcatConfig CRD object's spec back into a
// Config, used by the read server's refresh loop.
func FromConfigCRD(obj *unstructured.Unstructured) (*config.Config, error) {
	spec, found, err := unstructured.NestedMap(obj.Object, "spec")
	if err != nil || !found {
		return nil, shipcaterrors.New(shipcaterrors.InvalidManifest, obj.GetName(), "CRD object has no spec", err)
	}
	raw, err := json.Marshal(spec)
	if err != nil {
		return nil, shipcaterrors.New(shipcaterrors.InvalidManifest, obj.GetName(), "failed to marshal CRD spec", err)
	}
	var conf config.Config
	if err := json.Unmarshal(raw, &conf); err != nil {
		return nil, shipcaterrors.New(shipcaterrors.InvalidManifest, obj.GetName(), "failed to decode CRD spec into config", err)
	}
	return &conf, nil
}
