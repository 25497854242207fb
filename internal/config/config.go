// Package config loads layered configuration: built-in defaults, a
// user TOML file, a project TOML file, and environment variables, each
// layer overriding the one below. Section accessors return snapshot
// structs; mutating a returned struct does not modify the underlying
// configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Errors returned by config operations.
var (
	// ErrSettingNotFound is returned when a path has no value in any layer.
	ErrSettingNotFound = errors.New("config: setting not found")

	// ErrWatcherClosed is returned when watching after Close.
	ErrWatcherClosed = errors.New("config: watcher closed")
)

// ParseError reports a malformed configuration file.
type ParseError struct {
	// Path is the file that failed to parse.
	Path string

	// Err is the underlying parse failure.
	Err error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("config: parsing %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *ParseError) Unwrap() error { return e.Err }

// Paths names the configuration files to load, in ascending precedence.
type Paths struct {
	// User is the per-user configuration file. Missing is not an error.
	User string

	// Project is the per-project configuration file. Missing is not an
	// error.
	Project string
}

// Config is the merged configuration. Safe for concurrent use.
type Config struct {
	mu     sync.RWMutex
	paths  Paths
	merged map[string]any
}

// Load reads and merges all layers.
func Load(paths Paths) (*Config, error) {
	c := &Config{paths: paths}
	if err := c.Reload(); err != nil {
		return nil, err
	}
	return c, nil
}

// Default returns a config with only the built-in defaults.
func Default() *Config {
	return &Config{merged: defaults()}
}

// Reload re-reads every layer from disk and the environment.
func (c *Config) Reload() error {
	merged := defaults()

	for _, path := range []string{c.paths.User, c.paths.Project} {
		if path == "" {
			continue
		}
		layer, err := loadTOML(path)
		if err != nil {
			return err
		}
		mergeMaps(merged, layer)
	}
	mergeMaps(merged, loadEnv())

	c.mu.Lock()
	c.merged = merged
	c.mu.Unlock()
	return nil
}

// loadTOML reads one TOML file into a nested map. A missing file
// yields an empty layer.
func loadTOML(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	var layer map[string]any
	if err := toml.Unmarshal(data, &layer); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	return layer, nil
}

// mergeMaps overlays src onto dst, descending into nested maps.
func mergeMaps(dst, src map[string]any) {
	for k, v := range src {
		if sv, ok := v.(map[string]any); ok {
			if dv, ok := dst[k].(map[string]any); ok {
				mergeMaps(dv, sv)
				continue
			}
		}
		dst[k] = v
	}
}

// Get returns the value at a dotted path, if present.
func (c *Config) Get(path string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return getPath(c.merged, path)
}

// GetString returns a string value at the given path.
func (c *Config) GetString(path string) (string, error) {
	v, ok := c.Get(path)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrSettingNotFound, path)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("config: %s is %T, not string", path, v)
	}
	return s, nil
}

// GetInt returns an integer value at the given path.
func (c *Config) GetInt(path string) (int, error) {
	v, ok := c.Get(path)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrSettingNotFound, path)
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		return int(n), nil
	default:
		return 0, fmt.Errorf("config: %s is %T, not int", path, v)
	}
}

// GetFloat returns a float value at the given path.
func (c *Config) GetFloat(path string) (float64, error) {
	v, ok := c.Get(path)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrSettingNotFound, path)
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case int64:
		return float64(n), nil
	case int:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("config: %s is %T, not float", path, v)
	}
}

// GetBool returns a boolean value at the given path.
func (c *Config) GetBool(path string) (bool, error) {
	v, ok := c.Get(path)
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrSettingNotFound, path)
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("config: %s is %T, not bool", path, v)
	}
	return b, nil
}

// GetDuration returns a duration value at the given path. Durations
// are stored as strings in Go duration syntax.
func (c *Config) GetDuration(path string) (time.Duration, error) {
	s, err := c.GetString(path)
	if err != nil {
		return 0, err
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", path, err)
	}
	return d, nil
}
