package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/banshee-data/pointclean/internal/neighbors"
	"github.com/banshee-data/pointclean/internal/outlier"
)

// DefaultConfigPath is the path to the canonical outlier-removal defaults file.
const DefaultConfigPath = "config/outlier.defaults.json"

// Built-in defaults used when a field is absent from the file.
const (
	defaultNeighbors = 24
	defaultCellSize  = 1.0
)

// OutlierConfig holds outlier-removal parameters. Every field is optional;
// the Get* accessors fall back to defaults for fields left unset, so partial
// files are safe.
type OutlierConfig struct {
	Neighbors         *int     `json:"neighbors,omitempty"`
	NeighborRadius    *float64 `json:"neighbor_radius,omitempty"`
	ThresholdPercent  *float64 `json:"threshold_percent,omitempty"`
	ThresholdDistance *float64 `json:"threshold_distance,omitempty"`

	// Neighbour index
	Index    *string  `json:"index,omitempty"` // "kdtree", "grid" or "brute"
	CellSize *float64 `json:"cell_size,omitempty"`

	// Timeout aborts the scan once exceeded, duration string like "30s".
	// Empty means no deadline.
	Timeout *string `json:"timeout,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyOutlierConfig returns an OutlierConfig with all fields unset.
func EmptyOutlierConfig() *OutlierConfig {
	return &OutlierConfig{}
}

// DefaultOutlierConfig returns an OutlierConfig with every field set to its
// default value.
func DefaultOutlierConfig() *OutlierConfig {
	return &OutlierConfig{
		Neighbors:         ptrInt(defaultNeighbors),
		NeighborRadius:    ptrFloat64(outlier.DefaultNeighborRadius),
		ThresholdPercent:  ptrFloat64(outlier.DefaultThresholdPercent),
		ThresholdDistance: ptrFloat64(outlier.DefaultThresholdDistance),
		Index:             ptrString(neighbors.KindKDTree),
		CellSize:          ptrFloat64(defaultCellSize),
		Timeout:           ptrString(""),
	}
}

// LoadOutlierConfig loads an OutlierConfig from a JSON file.
// The file must have a .json extension and be at most 1MB.
func LoadOutlierConfig(path string) (*OutlierConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyOutlierConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that the configured values are usable.
func (c *OutlierConfig) Validate() error {
	if c.Neighbors != nil && *c.Neighbors < 2 {
		return fmt.Errorf("neighbors must be at least 2, got %d", *c.Neighbors)
	}
	if c.NeighborRadius != nil && !nonNegative(*c.NeighborRadius) {
		return fmt.Errorf("neighbor_radius must be non-negative, got %f", *c.NeighborRadius)
	}
	if c.ThresholdPercent != nil {
		if p := *c.ThresholdPercent; math.IsNaN(p) || p < 0 || p > 100 {
			return fmt.Errorf("threshold_percent must be between 0 and 100, got %f", p)
		}
	}
	if c.ThresholdDistance != nil && !nonNegative(*c.ThresholdDistance) {
		return fmt.Errorf("threshold_distance must be non-negative, got %f", *c.ThresholdDistance)
	}
	if c.Index != nil {
		switch strings.ToLower(*c.Index) {
		case "", neighbors.KindKDTree, neighbors.KindGrid, neighbors.KindBruteForce:
		default:
			return fmt.Errorf("index must be one of %q, %q, %q, got %q",
				neighbors.KindKDTree, neighbors.KindGrid, neighbors.KindBruteForce, *c.Index)
		}
	}
	if c.CellSize != nil && !(*c.CellSize > 0) {
		return fmt.Errorf("cell_size must be positive, got %f", *c.CellSize)
	}
	if c.Timeout != nil && *c.Timeout != "" {
		d, err := time.ParseDuration(*c.Timeout)
		if err != nil {
			return fmt.Errorf("invalid timeout '%s': %w", *c.Timeout, err)
		}
		if d < 0 {
			return fmt.Errorf("timeout must be non-negative, got %s", d)
		}
	}
	return nil
}

func nonNegative(v float64) bool { return !math.IsNaN(v) && v >= 0 }

// GetNeighbors returns the neighbors value or the default.
func (c *OutlierConfig) GetNeighbors() int {
	if c.Neighbors == nil {
		return defaultNeighbors
	}
	return *c.Neighbors
}

// GetNeighborRadius returns the neighbor_radius value or the default.
func (c *OutlierConfig) GetNeighborRadius() float64 {
	if c.NeighborRadius == nil {
		return outlier.DefaultNeighborRadius
	}
	return *c.NeighborRadius
}

// GetThresholdPercent returns the threshold_percent value or the default.
func (c *OutlierConfig) GetThresholdPercent() float64 {
	if c.ThresholdPercent == nil {
		return outlier.DefaultThresholdPercent
	}
	return *c.ThresholdPercent
}

// GetThresholdDistance returns the threshold_distance value or the default.
func (c *OutlierConfig) GetThresholdDistance() float64 {
	if c.ThresholdDistance == nil {
		return outlier.DefaultThresholdDistance
	}
	return *c.ThresholdDistance
}

// GetIndex returns the index kind or the default.
func (c *OutlierConfig) GetIndex() string {
	if c.Index == nil || *c.Index == "" {
		return neighbors.KindKDTree
	}
	return strings.ToLower(*c.Index)
}

// GetCellSize returns the cell_size value or the default.
func (c *OutlierConfig) GetCellSize() float64 {
	if c.CellSize == nil {
		return defaultCellSize
	}
	return *c.CellSize
}

// GetTimeout parses and returns the Timeout. Zero means no deadline.
func (c *OutlierConfig) GetTimeout() time.Duration {
	if c.Timeout == nil || *c.Timeout == "" {
		return 0
	}
	d, err := time.ParseDuration(*c.Timeout)
	if err != nil {
		return 0 // no deadline on parse error
	}
	return d
}

// ToOptions converts the configuration into outlier options. The neighbour
// index and the progress callback are left for the caller to attach since
// they depend on the point set being filtered.
func ToOptions[E any](c *OutlierConfig) outlier.Options[E] {
	opts := outlier.DefaultOptions[E]()
	opts.NeighborRadius = c.GetNeighborRadius()
	opts.ThresholdPercent = c.GetThresholdPercent()
	opts.ThresholdDistance = c.GetThresholdDistance()
	return opts
}

// Merge overlays every field set in other onto c.
func (c *OutlierConfig) Merge(other *OutlierConfig) {
	if other == nil {
		return
	}
	if other.Neighbors != nil {
		c.Neighbors = other.Neighbors
	}
	if other.NeighborRadius != nil {
		c.NeighborRadius = other.NeighborRadius
	}
	if other.ThresholdPercent != nil {
		c.ThresholdPercent = other.ThresholdPercent
	}
	if other.ThresholdDistance != nil {
		c.ThresholdDistance = other.ThresholdDistance
	}
	if other.Index != nil {
		c.Index = other.Index
	}
	if other.CellSize != nil {
		c.CellSize = other.CellSize
	}
	if other.Timeout != nil {
		c.Timeout = other.Timeout
	}
}
