// Package cache stores finished calibrations on disk so a repeated fit of
// the same data with the same settings can be skipped.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/spboyer/irtcal/internal/estimation"
	"github.com/spboyer/irtcal/internal/models"
)

// DefaultDir is the cache directory used when caching is switched on
// without a path.
const DefaultDir = ".irtcal-cache"

// Cache provides caching for fit results
type Cache struct {
	dir string
	mu  sync.Mutex
}

// New creates a new cache instance with the specified directory. An empty
// dir disables the cache.
func New(dir string) *Cache {
	return &Cache{dir: dir}
}

// Key hashes everything that decides a fit's outcome: the dataset shape,
// its responses and every estimator setting except Workers, which does not
// change results.
func Key(d *models.Dataset, cfg estimation.Config) (string, error) {
	h := sha256.New()

	if err := writeInt(h, d.Examinees); err != nil {
		return "", err
	}
	if err := writeInt(h, d.Items); err != nil {
		return "", err
	}
	for _, r := range sortedResponses(d) {
		if err := writeInt(h, r.Examinee); err != nil {
			return "", err
		}
		if err := writeInt(h, r.Item); err != nil {
			return "", err
		}
		if err := writeInt(h, r.Outcome()); err != nil {
			return "", err
		}
	}

	for _, v := range []float64{
		cfg.HalfWidth, cfg.LearningRate, cfg.StepTolerance, cfg.ConvergenceTolerance,
		cfg.MaxAbsAbility, cfg.ProbabilityFloor,
	} {
		if err := writeFloat(h, v); err != nil {
			return "", err
		}
	}
	for _, v := range []int{cfg.QuadraturePoints, cfg.MaxIterations, cfg.MaxStepIterations} {
		if err := writeInt(h, v); err != nil {
			return "", err
		}
	}
	if err := writeString(h, string(cfg.ReturnPolicy)); err != nil {
		return "", err
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// Get retrieves a cached fit if it exists
func (c *Cache) Get(key string) (*models.FitResult, bool) {
	if c.dir == "" {
		return nil, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := os.ReadFile(c.cachePath(key))
	if err != nil {
		// Cache miss
		return nil, false
	}

	var result models.FitResult
	if err := json.Unmarshal(data, &result); err != nil || result.Model == nil {
		// Invalid cache entry, treat as miss
		return nil, false
	}

	return &result, true
}

// Put stores a fit in the cache. Only converged fits are stored; a fit cut
// short by the time budget depends on machine speed.
func (c *Cache) Put(key string, result *models.FitResult) error {
	if c.dir == "" || !result.Status.Converged() {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling fit result: %w", err)
	}

	if err := os.WriteFile(c.cachePath(key), data, 0o644); err != nil {
		return fmt.Errorf("writing cache file: %w", err)
	}

	return nil
}

// Clear removes all cached results
func (c *Cache) Clear() error {
	if c.dir == "" {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := os.Stat(c.dir); os.IsNotExist(err) {
		return nil
	}

	// Refuse to remove anything that does not look like a cache directory.
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return fmt.Errorf("reading cache directory: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			return fmt.Errorf("cache directory contains subdirectories - refusing to delete for safety")
		}
		if filepath.Ext(entry.Name()) != ".json" {
			return fmt.Errorf("cache directory contains non-cache files - refusing to delete for safety")
		}
	}

	return os.RemoveAll(c.dir)
}

// cachePath returns the file path for a cache key
func (c *Cache) cachePath(key string) string {
	return filepath.Join(c.dir, key+".json")
}

// sortedResponses flattens ByExaminee so input order does not change the key.
func sortedResponses(d *models.Dataset) []models.Response {
	out := make([]models.Response, 0, len(d.Responses))
	for _, group := range d.ByExaminee() {
		out = append(out, group...)
	}
	return out
}

// Helper functions

func writeString(w io.Writer, s string) error {
	// Write string with null byte delimiter to prevent hash collisions
	_, err := w.Write([]byte(s + "\x00"))
	return err
}

func writeInt(w io.Writer, i int) error {
	// Write int with null byte delimiter to prevent hash collisions
	_, err := fmt.Fprintf(w, "%d\x00", i)
	return err
}

func writeFloat(w io.Writer, f float64) error {
	_, err := fmt.Fprintf(w, "%x\x00", math.Float64bits(f))
	return err
}
