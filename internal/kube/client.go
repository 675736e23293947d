// Package kube wraps the dynamic/discovery/REST-mapper client trio used
// throughout the reconciler, applier and rollout tracker, and the typed
// accessors built on top of them for Deployments, StatefulSets and the
// ShipcatManifest CRD.
package kube

import (
	"context"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/apimachinery/pkg/watch"
	"k8s.io/client-go/discovery"
	"k8s.io/client-go/discovery/cached/memory"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/kubernetes"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/restmapper"
	"k8s.io/client-go/tools/clientcmd"
	ctrlclient "sigs.k8s.io/controller-runtime/pkg/client"

	shipcaterrors "github.com/shipcat/shipcat/internal/errors"
)

// Client bundles the dynamic client, discovery-backed REST mapper and a
// controller-runtime Reader, matching the trio the teacher builds once per
// process and threads through every operation, plus a typed Clientset for
// Deployment/StatefulSet/ReplicaSet/Pod reads, pod log tails and discovery.
type Client struct {
	Dynamic   dynamic.Interface
	Mapper    *restmapper.DeferredDiscoveryRESTMapper
	Reader    ctrlclient.Reader
	Clientset kubernetes.Interface
	Config    *rest.Config
	CRDs      *CRDClient
}

// NewClient resolves a kubeconfig (in-cluster first, then the given path,
// falling back to the client-go default loading rules) into a ready Client.
func NewClient(kubeconfigPath string) (*Client, error) {
	cfg, err := rest.InClusterConfig()
	if err != nil {
		loadingRules := clientcmd.NewDefaultClientConfigLoadingRules()
		if kubeconfigPath != "" {
			loadingRules.ExplicitPath = kubeconfigPath
		}
		cfg, err = clientcmd.NewNonInteractiveDeferredLoadingClientConfig(loadingRules, &clientcmd.ConfigOverrides{}).ClientConfig()
		if err != nil {
			return nil, shipcaterrors.New(shipcaterrors.KubeAPIFailure, kubeconfigPath, "failed to load kubeconfig", err)
		}
	}

	dyn, err := dynamic.NewForConfig(cfg)
	if err != nil {
		return nil, shipcaterrors.New(shipcaterrors.KubeAPIFailure, "", "failed to build dynamic client", err)
	}
	disc, err := discovery.NewDiscoveryClientForConfig(cfg)
	if err != nil {
		return nil, shipcaterrors.New(shipcaterrors.KubeAPIFailure, "", "failed to build discovery client", err)
	}
	mapper := restmapper.NewDeferredDiscoveryRESTMapper(memory.NewMemCacheClient(disc))

	scheme := runtime.NewScheme()
	if err := clientgoscheme.AddToScheme(scheme); err != nil {
		return nil, shipcaterrors.New(shipcaterrors.KubeAPIFailure, "", "failed to build scheme", err)
	}
	crClient, err := ctrlclient.New(cfg, ctrlclient.Options{Scheme: scheme})
	if err != nil {
		return nil, shipcaterrors.New(shipcaterrors.KubeAPIFailure, "", "failed to build controller-runtime client", err)
	}
	clientset, err := kubernetes.NewForConfig(cfg)
	if err != nil {
		return nil, shipcaterrors.New(shipcaterrors.KubeAPIFailure, "", "failed to build typed clientset", err)
	}
	crds, err := NewCRDClient(cfg)
	if err != nil {
		return nil, err
	}

	return &Client{Dynamic: dyn, Mapper: mapper, Reader: crClient, Clientset: clientset, Config: cfg, CRDs: crds}, nil
}

// ResourceFor resolves an object's GVK to a namespace-or-cluster-scoped
// dynamic.ResourceInterface, retrying once against a reset mapper cache —
// the same RESTMapping-then-Reset-then-retry dance the teacher performs
// for every apply.
func (c *Client) ResourceFor(gvk schema.GroupVersionKind, namespace string) (dynamic.ResourceInterface, error) {
	m, err := c.Mapper.RESTMapping(gvk.GroupKind(), gvk.Version)
	if err != nil {
		c.Mapper.Reset()
		m, err = c.Mapper.RESTMapping(gvk.GroupKind(), gvk.Version)
		if err != nil {
			return nil, shipcaterrors.New(shipcaterrors.KubeAPIFailure, gvk.String(), "could not map group-version-kind", err)
		}
	}
	if namespace == "" {
		return c.Dynamic.Resource(m.Resource), nil
	}
	return c.Dynamic.Resource(m.Resource).Namespace(namespace), nil
}

// Get fetches a single object by GVK/namespace/name, or (nil, nil) if it
// does not exist.
func (c *Client) Get(ctx context.Context, gvk schema.GroupVersionKind, namespace, name string) (*unstructured.Unstructured, error) {
	dr, err := c.ResourceFor(gvk, namespace)
	if err != nil {
		return nil, err
	}
	obj, err := dr.Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		if apierrorsNotFound(err) {
			return nil, nil
		}
		return nil, shipcaterrors.New(shipcaterrors.KubeAPIFailure, name, "get failed", err)
	}
	return obj, nil
}

// List fetches every object of a GVK in a namespace, optionally filtered
// by label selector.
func (c *Client) List(ctx context.Context, gvk schema.GroupVersionKind, namespace, labelSelector string) (*unstructured.UnstructuredList, error) {
	dr, err := c.ResourceFor(gvk, namespace)
	if err != nil {
		return nil, err
	}
	list, err := dr.List(ctx, metav1.ListOptions{LabelSelector: labelSelector})
	if err != nil {
		return nil, shipcaterrors.New(shipcaterrors.KubeAPIFailure, gvk.String(), "list failed", err)
	}
	return list, nil
}

// Watch opens a watch stream over every object of a GVK in a namespace,
// used by the read server's incremental refresh loop.
func (c *Client) Watch(ctx context.Context, gvk schema.GroupVersionKind, namespace string) (watch.Interface, error) {
	dr, err := c.ResourceFor(gvk, namespace)
	if err != nil {
		return nil, err
	}
	w, err := dr.Watch(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, shipcaterrors.New(shipcaterrors.KubeAPIFailure, gvk.String(), "watch failed", err)
	}
	return w, nil
}

// Delete removes a single object by GVK/namespace/name.
func (c *Client) Delete(ctx context.Context, gvk schema.GroupVersionKind, namespace, name string) error {
	dr, err := c.ResourceFor(gvk, namespace)
	if err != nil {
		return err
	}
	if err := dr.Delete(ctx, name, metav1.DeleteOptions{}); err != nil && !apierrorsNotFound(err) {
		return shipcaterrors.New(shipcaterrors.KubeAPIFailure, name, "delete failed", err)
	}
	return nil
}
