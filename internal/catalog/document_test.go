package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentValue(t *testing.T) {
	v, err := Document{"brand": "Acme", "tier": float64(2)}.Value()
	require.NoError(t, err)
	assert.JSONEq(t, `{"brand":"Acme","tier":2}`, string(v.([]byte)))

	v, err = Document(nil).Value()
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestDocumentScan(t *testing.T) {
	var d Document
	require.NoError(t, d.Scan([]byte(`{"brand":"Acme","nested":{"a":1}}`)))
	assert.Equal(t, "Acme", d["brand"])
	assert.Equal(t, map[string]interface{}{"a": float64(1)}, d["nested"])

	require.NoError(t, d.Scan(`{"brand":"Other"}`))
	assert.Equal(t, "Other", d["brand"])

	require.NoError(t, d.Scan(nil))
	assert.Nil(t, d)

	assert.Error(t, d.Scan(42))
}

func TestDocumentEqual(t *testing.T) {
	a := Document{"brand": "Acme", "tier": float64(1)}
	b := Document{"tier": float64(1), "brand": "Acme"}
	assert.True(t, a.Equal(b))

	assert.False(t, a.Equal(Document{"brand": "Acme"}))
	assert.False(t, a.Equal(Document{"brand": "Acme", "tier": float64(2)}))
	assert.True(t, Document{}.Equal(Document{}))
}
