package display

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveClientIDPrefersConfig(t *testing.T) {
	store := openTestStore(t)
	require.NoError(t, store.SetClientID("persisted-id"))

	id, err := resolveClientID(Config{ClientID: "configured-id"}, store)
	require.NoError(t, err)
	assert.Equal(t, "configured-id", id)
}

func TestResolveClientIDUsesPersisted(t *testing.T) {
	store := openTestStore(t)
	require.NoError(t, store.SetClientID("persisted-id"))

	id, err := resolveClientID(Config{}, store)
	require.NoError(t, err)
	assert.Equal(t, "persisted-id", id)
}

func TestResolveClientIDDerivedIsStable(t *testing.T) {
	store := openTestStore(t)

	first, err := resolveClientID(Config{}, store)
	require.NoError(t, err)

	// Whatever identity was settled on (MAC-derived, or empty on hosts
	// with no usable interface) must come back unchanged on restart.
	second, err := resolveClientID(Config{}, store)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	if first != "" {
		persisted, err := store.ClientID()
		require.NoError(t, err)
		assert.Equal(t, first, persisted)
	}
}
