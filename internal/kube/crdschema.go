package kube

import (
	"context"

	apiextv1 "k8s.io/apiextensions-apiserver/pkg/apis/apiextensions/v1"
	apiextclientset "k8s.io/apiextensions-apiserver/pkg/client/clientset/clientset"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/rest"

	shipcaterrors "github.com/shipcat/shipcat/internal/errors"
)

// CRDClient installs and keeps current the CustomResourceDefinition
// schemas the ShipcatManifest and ShipcatConfig CRDs need before any
// instance of either can be applied, step 2 of the reconciler's protocol.
type CRDClient struct {
	iface apiextclientset.Interface
}

// NewCRDClient builds a CRDClient from the same rest.Config the dynamic
// client uses.
func NewCRDClient(cfg *rest.Config) (*CRDClient, error) {
	iface, err := apiextclientset.NewForConfig(cfg)
	if err != nil {
		return nil, shipcaterrors.New(shipcaterrors.KubeAPIFailure, "", "failed to build apiextensions client", err)
	}
	return &CRDClient{iface: iface}, nil
}

func preserveUnknownFieldsSchema() *apiextv1.CustomResourceValidation {
	return &apiextv1.CustomResourceValidation{
		OpenAPIV3Schema: &apiextv1.JSONSchemaProps{
			Type:                   "object",
			XPreserveUnknownFields: boolPtr(true),
		},
	}
}

func boolPtr(b bool) *bool { return &b }

func crdDefinition(plural, singular, kind string) *apiextv1.CustomResourceDefinition {
	group := "shipcat.babylontech.co.uk"
	return &apiextv1.CustomResourceDefinition{
		ObjectMeta: metav1.ObjectMeta{Name: plural + "." + group},
		Spec: apiextv1.CustomResourceDefinitionSpec{
			Group: group,
			Names: apiextv1.CustomResourceDefinitionNames{
				Plural:   plural,
				Singular: singular,
				Kind:     kind,
				ListKind: kind + "List",
			},
			Scope: apiextv1.NamespaceScoped,
			Versions: []apiextv1.CustomResourceDefinitionVersion{{
				Name:    "v1",
				Served:  true,
				Storage: true,
				Schema:  preserveUnknownFieldsSchema(),
			}},
		},
	}
}

// ShipcatManifestCRD and ShipcatConfigCRD are the schema definitions the
// reconciler ensures exist before writing any ShipcatManifest/ShipcatConfig
// instance. Validation of their spec contents is done in Go (internal/
// manifest, internal/config), so the apiserver-side schema is deliberately
// permissive.
func ShipcatManifestCRD() *apiextv1.CustomResourceDefinition {
	return crdDefinition("shipcatmanifests", "shipcatmanifest", "ShipcatManifest")
}

func ShipcatConfigCRD() *apiextv1.CustomResourceDefinition {
	return crdDefinition("shipcatconfigs", "shipcatconfig", "ShipcatConfig")
}

// EnsureSchemas creates or updates both CRD schemas, idempotently.
func (c *CRDClient) EnsureSchemas(ctx context.Context) error {
	for _, crd := range []*apiextv1.CustomResourceDefinition{ShipcatManifestCRD(), ShipcatConfigCRD()} {
		if err := c.ensureOne(ctx, crd); err != nil {
			return err
		}
	}
	return nil
}

func (c *CRDClient) ensureOne(ctx context.Context, crd *apiextv1.CustomResourceDefinition) error {
	client := c.iface.ApiextensionsV1().CustomResourceDefinitions()
	existing, err := client.Get(ctx, crd.Name, metav1.GetOptions{})
	if apierrors.IsNotFound(err) {
		if _, err := client.Create(ctx, crd, metav1.CreateOptions{}); err != nil {
			return shipcaterrors.New(shipcaterrors.KubeAPIFailure, crd.Name, "failed to create CRD schema", err)
		}
		return nil
	}
	if err != nil {
		return shipcaterrors.New(shipcaterrors.KubeAPIFailure, crd.Name, "failed to get CRD schema", err)
	}
	crd.ResourceVersion = existing.ResourceVersion
	if _, err := client.Update(ctx, crd, metav1.UpdateOptions{}); err != nil {
		return shipcaterrors.New(shipcaterrors.KubeAPIFailure, crd.Name, "failed to update CRD schema", err)
	}
	return nil
}
