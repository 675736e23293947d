// Package secrets defines the narrow key/value secret store interface
// (§6 "Secret store interface") and a mocked implementation used by the
// Stubbed manifest upgrade path.
package secrets

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	shipcaterrors "github.com/shipcat/shipcat/internal/errors"
)

// MockValue is the fixed base64 blob the mocked store returns for every
// read, per spec §6.
const MockValue = "aGVsbG8gd29ybGQ="

// Store reads and lists key/value secrets under a per-region prefix.
type Store interface {
	// Read returns the value at "<region>/<service>/<KEY>". Implementations
	// must coerce integer-like values to their string form.
	Read(key string) (string, error)
	// List returns the leaf keys under prefix, excluding sub-folders.
	List(prefix string) ([]string, error)
}

// Mock is a Store that returns MockValue for every read and a declared
// placeholder set for List, used to build Stubbed manifests.
type Mock struct {
	Placeholders map[string][]string // prefix -> leaf keys
}

// NewMock builds a Mock store with no declared placeholders.
func NewMock() *Mock {
	return &Mock{Placeholders: map[string][]string{}}
}

func (m *Mock) Read(key string) (string, error) {
	return MockValue, nil
}

func (m *Mock) List(prefix string) ([]string, error) {
	if keys, ok := m.Placeholders[prefix]; ok {
		return keys, nil
	}
	return nil, nil
}

// record models the shape of a secret-store entry: the "value" sub-field
// must be present, per spec §4.1 InvalidSecretForm.
type record struct {
	Value interface{}
}

// CoerceValue normalises a secret record's value field to a string,
// coercing integer-like values, and fails with InvalidSecretShape if the
// value sub-field is absent.
func CoerceValue(key string, rec map[string]interface{}) (string, error) {
	raw, ok := rec["value"]
	if !ok {
		return "", shipcaterrors.New(shipcaterrors.InvalidSecretShape, key, "missing value field", nil)
	}
	switch v := raw.(type) {
	case string:
		return v, nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	default:
		return fmt.Sprintf("%v", v), nil
	}
}

// DecodeSecretFile decodes a base64-encoded secret file value, required
// for any secretFiles entry resolved via IN_VAULT.
func DecodeSecretFile(key, value string) ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return nil, shipcaterrors.New(shipcaterrors.InvalidSecretShape, key, "secret file value is not valid base64", err)
	}
	return b, nil
}

// Key builds the canonical "<prefix>/<name>" secret key used for both env
// vars (IN_VAULT) and secretFiles lookups.
func Key(prefix, name string) string {
	return strings.TrimRight(prefix, "/") + "/" + name
}
