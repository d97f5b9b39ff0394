package services

import (
	"fmt"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/rmloveland/synergy/internal/data/embedded"
	"github.com/rmloveland/synergy/pkg/types"
)

// modelCatalogFile mirrors the shape of the embedded YAML model registry.
type modelCatalogFile struct {
	Models []struct {
		Shortname       string `yaml:"shortname"`
		Provider        string `yaml:"provider"`
		WireModelID     string `yaml:"wire_model_id"`
		MaxOutputTokens int    `yaml:"max_output_tokens"`
	} `yaml:"models"`
	DefaultActive string `yaml:"default_active"`
}

// ModelRegistryService implements the model registry:
// a static mapping from shortname to model record, plus a distinguished
// "active" shortname.
type ModelRegistryService struct {
	mu          sync.RWMutex
	initialized bool
	records     map[string]types.ModelRecord
	active      string
}

// NewModelRegistryService creates a new, uninitialized ModelRegistryService.
func NewModelRegistryService() *ModelRegistryService {
	return &ModelRegistryService{records: make(map[string]types.ModelRecord)}
}

// Name returns the service name for registration.
func (m *ModelRegistryService) Name() string { return "model_registry" }

// Initialize loads the embedded model catalog and selects its default active shortname.
func (m *ModelRegistryService) Initialize() error {
	var catalog modelCatalogFile
	if err := yaml.Unmarshal(embedded.ModelCatalogData, &catalog); err != nil {
		return fmt.Errorf("failed to parse embedded model catalog: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, entry := range catalog.Models {
		m.records[entry.Shortname] = types.ModelRecord{
			Shortname:      entry.Shortname,
			Provider:       types.Provider(entry.Provider),
			WireModelID:    entry.WireModelID,
			MaxOutputToken: entry.MaxOutputTokens,
		}
	}

	if _, ok := m.records[catalog.DefaultActive]; !ok {
		return fmt.Errorf("default_active model %q not present in catalog", catalog.DefaultActive)
	}
	m.active = catalog.DefaultActive
	m.initialized = true
	return nil
}

// List returns all registered records, sorted by shortname for stable display.
func (m *ModelRegistryService) List() []types.ModelRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]types.ModelRecord, 0, len(m.records))
	for _, r := range m.records {
		result = append(result, r)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Shortname < result[j].Shortname })
	return result
}

// ActiveShortname returns the currently selected model's shortname.
func (m *ModelRegistryService) ActiveShortname() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.active
}

// GetActive returns the record for the currently selected model.
// Invariant: the active shortname is always present in the registry.
func (m *ModelRegistryService) GetActive() types.ModelRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.records[m.active]
}

// Get returns the record for a given shortname.
func (m *ModelRegistryService) Get(shortname string) (types.ModelRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[shortname]
	if !ok {
		return types.ModelRecord{}, &types.UnknownModelError{Shortname: shortname}
	}
	return rec, nil
}

// SetActive changes the active shortname, failing if it is not registered.
func (m *ModelRegistryService) SetActive(shortname string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.records[shortname]; !ok {
		return &types.UnknownModelError{Shortname: shortname}
	}
	m.active = shortname
	return nil
}
