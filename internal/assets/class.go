package assets

import "strings"

// Class describes one registered asset kind. Kind packages build a
// Class and hand it to Manager.RegisterClass; discovery then uses the
// class metadata to find files and build assets.
type Class struct {
	// Attribute is the registry name, such as "images".
	Attribute string

	// ConfigSection is the machine/mode config section holding
	// explicit entries for this kind.
	ConfigSection string

	// GroupSection is the config section holding named groups of this
	// kind. Empty disables group support.
	GroupSection string

	// PathString is the folder name scanned under machine and mode
	// directories.
	PathString string

	// Extensions lists recognized file extensions without the dot.
	Extensions []string

	// Priority orders class processing during discovery. Higher
	// priority classes have their assets created first.
	Priority int

	// New builds the payload for a single asset file.
	New func(name, file string, cfg Config) (Payload, error)
}

// AcceptsFile reports whether the file name carries one of the class
// extensions.
func (c *Class) AcceptsFile(name string) bool {
	idx := strings.LastIndexByte(name, '.')
	if idx < 0 {
		return false
	}
	ext := strings.ToLower(name[idx+1:])
	for _, candidate := range c.Extensions {
		if ext == candidate {
			return true
		}
	}
	return false
}

// Config is the merged configuration bag attached to a single asset or
// group. Values come from YAML, so numbers may arrive as int or
// float64.
type Config map[string]any

// String returns the named value as a string, or def when absent.
func (c Config) String(key, def string) string {
	if v, ok := c[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// Int returns the named value as an int, or def when absent or not
// numeric.
func (c Config) Int(key string, def int) int {
	switch v := c[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return def
	}
}

// Float returns the named value as a float64, or def when absent.
func (c Config) Float(key string, def float64) float64 {
	switch v := c[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return def
	}
}

// Bool returns the named value as a bool, or def when absent.
func (c Config) Bool(key string, def bool) bool {
	if v, ok := c[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

// StringSlice returns the named value as a string slice. YAML lists
// arrive as []any; scalar strings are wrapped in a single-element
// slice.
func (c Config) StringSlice(key string) []string {
	switch v := c[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		return []string{v}
	default:
		return nil
	}
}

// Clone returns a shallow copy so per-asset mutation does not bleed
// into shared defaults.
func (c Config) Clone() Config {
	if c == nil {
		return Config{}
	}
	out := make(Config, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}
