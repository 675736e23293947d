package secrets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockReadReturnsFixedBlob(t *testing.T) {
	m := NewMock()
	v, err := m.Read("dev-uk/fake-ask/FAKE_SECRET")
	require.NoError(t, err)
	assert.Equal(t, MockValue, v)
}

func TestCoerceValueString(t *testing.T) {
	v, err := CoerceValue("k", map[string]interface{}{"value": "hunter2"})
	require.NoError(t, err)
	assert.Equal(t, "hunter2", v)
}

func TestCoerceValueInteger(t *testing.T) {
	v, err := CoerceValue("k", map[string]interface{}{"value": float64(42)})
	require.NoError(t, err)
	assert.Equal(t, "42", v)
}

func TestCoerceValueMissing(t *testing.T) {
	_, err := CoerceValue("k", map[string]interface{}{})
	assert.Error(t, err)
}

func TestDecodeSecretFileInvalid(t *testing.T) {
	_, err := DecodeSecretFile("k", "not-base64!!")
	assert.Error(t, err)
}

func TestKey(t *testing.T) {
	assert.Equal(t, "dev-uk/fake-ask/FOO", Key("dev-uk/fake-ask/", "FOO"))
}
