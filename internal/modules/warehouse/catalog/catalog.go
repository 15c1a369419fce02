// Package catalog holds the crop profiles loaded once at startup.
package catalog

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"cropvault-server/internal/modules/warehouse/types"
)

const DefaultSearchLimit = 8

// DefaultQuickPicks are the crops offered as one-click chips.
var DefaultQuickPicks = []string{"Rice", "Wheat", "Potato", "Onion", "Banana", "Soybean", "Coffee"}

type Catalog struct {
	crops  []types.CropProfile
	byName map[string]int
}

// New builds a catalog from crops, keeping their order. Duplicate or empty
// names are rejected.
func New(crops []types.CropProfile) (*Catalog, error) {
	c := &Catalog{
		crops:  make([]types.CropProfile, 0, len(crops)),
		byName: make(map[string]int, len(crops)),
	}
	for i, crop := range crops {
		if strings.TrimSpace(crop.Name) == "" {
			return nil, fmt.Errorf("crop %d: empty name", i)
		}
		if _, dup := c.byName[crop.Name]; dup {
			return nil, fmt.Errorf("crop %d: duplicate name %q", i, crop.Name)
		}
		c.byName[crop.Name] = len(c.crops)
		c.crops = append(c.crops, crop)
	}
	return c, nil
}

// Empty is the degraded catalog used when loading fails.
func Empty() *Catalog {
	c, _ := New(nil)
	return c
}

func Decode(r io.Reader) (*Catalog, error) {
	var crops []types.CropProfile
	if err := json.NewDecoder(r).Decode(&crops); err != nil {
		return nil, fmt.Errorf("decode crops: %w", err)
	}
	return New(crops)
}

func Load(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open crops: %w", err)
	}
	defer func() { _ = f.Close() }()
	return Decode(f)
}

// LoadOrEmpty loads the catalog at path. Failures are logged and yield an
// empty catalog; every dependent feature then does nothing.
func LoadOrEmpty(path string, logger *slog.Logger) *Catalog {
	c, err := Load(path)
	if err != nil {
		logger.Error("could not load crop catalog; crop features disabled", "path", path, "error", err)
		return Empty()
	}
	logger.Info("crop catalog loaded", "path", path, "crops", c.Len())
	return c
}

func (c *Catalog) Len() int { return len(c.crops) }

func (c *Catalog) All() []types.CropProfile {
	out := make([]types.CropProfile, len(c.crops))
	copy(out, c.crops)
	return out
}

func (c *Catalog) Find(name string) (types.CropProfile, bool) {
	i, ok := c.byName[name]
	if !ok {
		return types.CropProfile{}, false
	}
	return c.crops[i], true
}

// Search returns up to limit crops whose name contains query, ignoring case.
// A blank query matches nothing; limit <= 0 means DefaultSearchLimit.
func (c *Catalog) Search(query string, limit int) []types.CropProfile {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	var out []types.CropProfile
	for _, crop := range c.crops {
		if strings.Contains(strings.ToLower(crop.Name), q) {
			out = append(out, crop)
			if len(out) == limit {
				break
			}
		}
	}
	return out
}

// QuickPicks resolves names in order, skipping unknown ones.
func (c *Catalog) QuickPicks(names []string) []types.CropProfile {
	var out []types.CropProfile
	for _, n := range names {
		if crop, ok := c.Find(n); ok {
			out = append(out, crop)
		}
	}
	return out
}
