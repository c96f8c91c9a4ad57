package memory

import (
	"fmt"
	"strings"
	"sync"

	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
)

// Ensure ConfigStore implements the interface.
var _ driven.ConfigStore = (*ConfigStore)(nil)

// ConfigStore keeps settings in memory in the shape config.toml gives them
// back: integers widen to int64, float32 to float64, and a key cannot be
// both a value and a table. Settings code tested against it reads the
// same types it reads from the file store.
type ConfigStore struct {
	mu     sync.RWMutex
	values map[string]any
}

// NewConfigStore creates an empty in-memory config store.
func NewConfigStore() *ConfigStore {
	return &ConfigStore{
		values: make(map[string]any),
	}
}

// Get retrieves a configuration value by key.
func (s *ConfigStore) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	val, ok := s.values[key]
	return val, ok
}

// GetString retrieves a string configuration value.
func (s *ConfigStore) GetString(key string) string {
	str, _ := s.Get(key)
	v, _ := str.(string)
	return v
}

// GetInt retrieves an integer configuration value. Floats are not
// truncated; "size = 1.5" reads as 0 just as it does from file.
func (s *ConfigStore) GetInt(key string) int {
	val, _ := s.Get(key)
	n, _ := val.(int64)
	return int(n)
}

// GetFloat retrieves a floating point configuration value.
// Integers are widened.
func (s *ConfigStore) GetFloat(key string) float64 {
	val, _ := s.Get(key)
	switch v := val.(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	default:
		return 0
	}
}

// Set stores value under key. Values config.toml cannot hold, and keys
// that collide with an existing table, fail with domain.ErrConfiguration.
func (s *ConfigStore) Set(key string, value any) error {
	if err := checkKey(key); err != nil {
		return err
	}
	normalised, err := tomlValue(value)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", domain.ErrConfiguration, key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for existing := range s.values {
		if existing == key {
			continue
		}
		if strings.HasPrefix(existing, key+".") || strings.HasPrefix(key, existing+".") {
			return fmt.Errorf("%w: config key %q conflicts with %q", domain.ErrConfiguration, key, existing)
		}
	}
	s.values[key] = normalised
	return nil
}

// Save is a no-op; values live only in memory.
func (s *ConfigStore) Save() error {
	return nil
}

// Load is a no-op; values live only in memory.
func (s *ConfigStore) Load() error {
	return nil
}

// Path returns ":memory:".
func (s *ConfigStore) Path() string {
	return ":memory:"
}

func checkKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: empty config key", domain.ErrConfiguration)
	}
	for _, part := range strings.Split(key, ".") {
		if part == "" {
			return fmt.Errorf("%w: config key %q has an empty segment", domain.ErrConfiguration, key)
		}
	}
	return nil
}

// tomlValue converts value to the type go-toml decodes it back as.
func tomlValue(value any) (any, error) {
	switch v := value.(type) {
	case string, bool, float64, int64:
		return v, nil
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case uint32:
		return int64(v), nil
	case float32:
		return float64(v), nil
	default:
		return nil, fmt.Errorf("unsupported value type %T", value)
	}
}
