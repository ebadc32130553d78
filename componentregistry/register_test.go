package componentregistry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ironwood-Cyber/decorator-demo/errors"
)

func TestNewCatalog(t *testing.T) {
	catalog, err := NewCatalog()
	require.NoError(t, err)

	for _, name := range []string{
		"base-multiplier", "override-hundred", "after-doubler",
		"before-defaults", "schema-extension", "script-extension", "remote",
	} {
		_, ok := catalog.GetFactory(name)
		assert.True(t, ok, name)
	}
}

func TestRegister_NilCatalog(t *testing.T) {
	err := Register(nil)
	assert.True(t, errors.IsFatal(err))
}

func TestRegister_Twice(t *testing.T) {
	catalog, err := NewCatalog()
	require.NoError(t, err)
	assert.Error(t, Register(catalog))
}
