package kube

import "k8s.io/apimachinery/pkg/runtime/schema"

// Well-known GroupVersionKinds the reconciler, applier and rollout tracker
// operate on.
var (
	DeploymentGVK  = schema.GroupVersionKind{Group: "apps", Version: "v1", Kind: "Deployment"}
	StatefulSetGVK = schema.GroupVersionKind{Group: "apps", Version: "v1", Kind: "StatefulSet"}
	ReplicaSetGVK  = schema.GroupVersionKind{Group: "apps", Version: "v1", Kind: "ReplicaSet"}
	PodGVK         = schema.GroupVersionKind{Group: "", Version: "v1", Kind: "Pod"}

	// ShipcatManifestGVK identifies the CRD shipcat writes one instance of
	// per applied service, backing the raftcat read model.
	ShipcatManifestGVK = schema.GroupVersionKind{Group: "shipcat.babylontech.co.uk", Version: "v1", Kind: "ShipcatManifest"}

	// ShipcatConfigGVK identifies the CRD shipcat writes one instance of
	// per region, carrying the region/team config the read server serves
	// at /config.
	ShipcatConfigGVK = schema.GroupVersionKind{Group: "shipcat.babylontech.co.uk", Version: "v1", Kind: "ShipcatConfig"}
)

// PodLabelSelector builds the standard "app=<name>" selector shipcat's
// generated charts apply to every pod template.
func PodLabelSelector(service string) string {
	return "app=" + service
}

// PodTemplateHashSelector narrows a pod listing to one ReplicaSet's pods,
// the label every ReplicaSet controller stamps onto the pods it owns.
func PodTemplateHashSelector(hash string) string {
	return "pod-template-hash=" + hash
}
