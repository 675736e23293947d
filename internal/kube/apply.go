package kube

import (
	"context"
	"encoding/json"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/utils/ptr"

	shipcaterrors "github.com/shipcat/shipcat/internal/errors"
)

// FieldManager identifies shipcat's writes in server-side apply field
// ownership, distinguishing them from kubectl/helm-owned fields on the
// same object.
const FieldManager = "shipcat"

func apierrorsNotFound(err error) bool {
	return apierrors.IsNotFound(err)
}

// Apply performs a server-side apply (force-owned, field-managed) of a
// single object, the same PATCH/ApplyPatchType call the teacher's atomic
// applier issues, generalized to run standalone per-resource rather than
// as one step of an all-or-nothing plan.
func (c *Client) Apply(ctx context.Context, obj *unstructured.Unstructured) (*unstructured.Unstructured, error) {
	dr, err := c.ResourceFor(obj.GroupVersionKind(), obj.GetNamespace())
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(obj)
	if err != nil {
		return nil, shipcaterrors.New(shipcaterrors.KubeApplyFailure, obj.GetName(), "failed to marshal object", err)
	}
	applied, err := dr.Patch(ctx, obj.GetName(), types.ApplyPatchType, payload, metav1.PatchOptions{
		FieldManager: FieldManager,
		Force:        ptr.To(true),
	})
	if err != nil {
		return nil, shipcaterrors.New(shipcaterrors.KubeApplyFailure, obj.GetName(), "server-side apply failed", err)
	}
	return applied, nil
}

// StripServerFields removes fields the apiserver owns (status, resource
// identity bookkeeping) before diffing or backing up an object, mirroring
// the teacher's stripMeta.
func StripServerFields(o map[string]interface{}) {
	delete(o, "status")
	if m, ok := o["metadata"].(map[string]interface{}); ok {
		for _, k := range []string{"managedFields", "resourceVersion", "uid", "creationTimestamp", "generation"} {
			delete(m, k)
		}
	}
}
