// Package utils holds small decoding helpers shared by the chart renderer
// and the CLI's read-only output commands.
package utils

import (
	"errors"
	"io"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	utilyaml "k8s.io/apimachinery/pkg/util/yaml"
)

// ReadObjects decodes a multi-document YAML/JSON stream into unstructured
// objects, dropping any document missing an apiVersion or kind instead of
// failing the whole read: a chart can render hundreds of objects, and one
// malformed one should not block inspection of the rest.
func ReadObjects(r io.Reader) ([]*unstructured.Unstructured, error) {
	var docs []*unstructured.Unstructured
	stream := utilyaml.NewYAMLOrJSONDecoder(r, 4096)
	for {
		obj := &unstructured.Unstructured{}
		if err := stream.Decode(obj); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, err
		}
		if len(obj.Object) == 0 {
			continue
		}
		if obj.GetAPIVersion() == "" || obj.GetKind() == "" {
			continue
		}
		docs = append(docs, obj)
	}
	return docs, nil
}
