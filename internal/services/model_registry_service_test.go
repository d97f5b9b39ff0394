package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rmloveland/synergy/pkg/types"
)

func TestModelRegistryService_Initialize_LoadsCatalogAndDefault(t *testing.T) {
	m := NewModelRegistryService()
	require.NoError(t, m.Initialize())

	assert.NotEmpty(t, m.ActiveShortname())
	active := m.GetActive()
	assert.Equal(t, m.ActiveShortname(), active.Shortname)
}

func TestModelRegistryService_Get_UnknownModel(t *testing.T) {
	m := NewModelRegistryService()
	require.NoError(t, m.Initialize())

	_, err := m.Get("does-not-exist")
	require.Error(t, err)
	var unknown *types.UnknownModelError
	assert.ErrorAs(t, err, &unknown)
}

func TestModelRegistryService_SetActive_UnknownModelLeavesActiveUnchanged(t *testing.T) {
	m := NewModelRegistryService()
	require.NoError(t, m.Initialize())
	before := m.ActiveShortname()

	err := m.SetActive("nope")

	require.Error(t, err)
	assert.Equal(t, before, m.ActiveShortname())
}

func TestModelRegistryService_SetActive_KnownModel(t *testing.T) {
	m := NewModelRegistryService()
	require.NoError(t, m.Initialize())

	records := m.List()
	require.NotEmpty(t, records)

	var target string
	for _, r := range records {
		if r.Shortname != m.ActiveShortname() {
			target = r.Shortname
			break
		}
	}
	require.NotEmpty(t, target, "catalog needs at least two models for this test")

	require.NoError(t, m.SetActive(target))
	assert.Equal(t, target, m.ActiveShortname())
}

func TestModelRegistryService_List_ContainsAllProviders(t *testing.T) {
	m := NewModelRegistryService()
	require.NoError(t, m.Initialize())

	seen := map[types.Provider]bool{}
	for _, r := range m.List() {
		seen[r.Provider] = true
	}
	assert.True(t, seen[types.ProviderOpenAI])
	assert.True(t, seen[types.ProviderAnthropic])
	assert.True(t, seen[types.ProviderGemini])
}
