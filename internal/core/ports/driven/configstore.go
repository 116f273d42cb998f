package driven

// ConfigStore provides persistent key-value configuration: model names,
// chunking profiles, the index artifact path.
type ConfigStore interface {
	// Get retrieves a raw configuration value by key.
	Get(key string) (any, bool)

	// GetString retrieves a string value, or "" when unset.
	GetString(key string) string

	// GetInt retrieves an integer value, or 0 when unset.
	GetInt(key string) int

	// GetFloat retrieves a float value, or 0 when unset.
	GetFloat(key string) float64

	// Set stores a value and persists immediately.
	Set(key string, value any) error
}
