package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spboyer/irtcal/internal/estimation"
	"github.com/spboyer/irtcal/internal/models"
)

func newDataset(t *testing.T, responses ...models.Response) *models.Dataset {
	t.Helper()
	d, err := models.NewDataset(2, 2, responses)
	require.NoError(t, err)
	return d
}

var baseResponses = []models.Response{
	{Examinee: 0, Item: 0, Correct: true},
	{Examinee: 0, Item: 1, Correct: false},
	{Examinee: 1, Item: 0, Correct: false},
	{Examinee: 1, Item: 1, Correct: true},
}

func newResult(status models.FitStatus) *models.FitResult {
	return &models.FitResult{
		Model: &models.Model{
			Discrimination: []float64{1.1, 0.9},
			Difficulty:     []float64{-0.3, 0.4},
		},
		Status:        status,
		Iterations:    12,
		LogLikelihood: -5.25,
		History: []models.IterationSummary{
			{Iteration: 1, LogLikelihood: -6, Improved: true},
		},
	}
}

func TestKey(t *testing.T) {
	cfg := estimation.DefaultConfig()
	key, err := Key(newDataset(t, baseResponses...), cfg)
	require.NoError(t, err)
	assert.Len(t, key, 64)

	again, err := Key(newDataset(t, baseResponses...), cfg)
	require.NoError(t, err)
	assert.Equal(t, key, again)
}

func TestKey_ResponseOrderDoesNotMatter(t *testing.T) {
	cfg := estimation.DefaultConfig()
	shuffled := []models.Response{baseResponses[3], baseResponses[0], baseResponses[2], baseResponses[1]}

	k1, err := Key(newDataset(t, baseResponses...), cfg)
	require.NoError(t, err)
	k2, err := Key(newDataset(t, shuffled...), cfg)
	require.NoError(t, err)
	assert.Equal(t, k1, k2)
}

func TestKey_Changes(t *testing.T) {
	base := estimation.DefaultConfig()
	baseKey, err := Key(newDataset(t, baseResponses...), base)
	require.NoError(t, err)

	tests := []struct {
		name      string
		responses []models.Response
		mutate    func(*estimation.Config)
		same      bool
	}{
		{name: "flipped outcome", responses: []models.Response{
			{Examinee: 0, Item: 0, Correct: false}, baseResponses[1], baseResponses[2], baseResponses[3],
		}},
		{name: "dropped response", responses: baseResponses[:3]},
		{name: "quadrature points", mutate: func(c *estimation.Config) { c.QuadraturePoints = 41 }},
		{name: "learning rate", mutate: func(c *estimation.Config) { c.LearningRate = 0.002 }},
		{name: "return policy", mutate: func(c *estimation.Config) { c.ReturnPolicy = estimation.ReturnLastUpdate }},
		{name: "workers", mutate: func(c *estimation.Config) { c.Workers = 8 }, same: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			responses := tt.responses
			if responses == nil {
				responses = baseResponses
			}
			cfg := base
			if tt.mutate != nil {
				tt.mutate(&cfg)
			}
			key, err := Key(newDataset(t, responses...), cfg)
			require.NoError(t, err)
			if tt.same {
				assert.Equal(t, baseKey, key)
			} else {
				assert.NotEqual(t, baseKey, key)
			}
		})
	}
}

func TestCache_GetPut(t *testing.T) {
	cacheDir := t.TempDir()
	c := New(cacheDir)

	key := "test-key-123"

	// Cache miss
	retrieved, found := c.Get(key)
	assert.False(t, found)
	assert.Nil(t, retrieved)

	require.NoError(t, c.Put(key, newResult(models.StatusConverged)))

	// Cache hit
	retrieved, found = c.Get(key)
	assert.True(t, found)
	require.NotNil(t, retrieved)
	assert.Equal(t, newResult(models.StatusConverged), retrieved)
}

func TestCache_PutSkipsUnconverged(t *testing.T) {
	cacheDir := t.TempDir()
	c := New(cacheDir)

	require.NoError(t, c.Put("capped", newResult(models.StatusMaxIterations)))
	require.NoError(t, c.Put("budget", newResult(models.StatusTimeBudget)))

	entries, err := os.ReadDir(cacheDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestCache_InvalidEntryIsMiss(t *testing.T) {
	cacheDir := t.TempDir()
	c := New(cacheDir)

	require.NoError(t, os.WriteFile(filepath.Join(cacheDir, "broken.json"), []byte("{not json"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(cacheDir, "empty.json"), []byte("{}"), 0o644))

	_, found := c.Get("broken")
	assert.False(t, found)
	_, found = c.Get("empty")
	assert.False(t, found)
}

func TestCache_EmptyDir(t *testing.T) {
	c := New("")

	_, found := c.Get("any-key")
	assert.False(t, found)

	// Put and Clear are no-ops
	assert.NoError(t, c.Put("key", newResult(models.StatusConverged)))
	assert.NoError(t, c.Clear())
}

func TestCache_Clear(t *testing.T) {
	cacheDir := filepath.Join(t.TempDir(), "cache")
	c := New(cacheDir)

	require.NoError(t, c.Put("key1", newResult(models.StatusConverged)))
	require.NoError(t, c.Put("key2", newResult(models.StatusConverged)))

	require.NoError(t, c.Clear())

	_, found := c.Get("key1")
	assert.False(t, found)
	_, err := os.Stat(cacheDir)
	assert.True(t, os.IsNotExist(err))

	// clearing a missing directory is fine
	assert.NoError(t, c.Clear())
}

func TestCache_Clear_SafetyChecks(t *testing.T) {
	t.Run("refuses to clear directory with subdirectories", func(t *testing.T) {
		cacheDir := t.TempDir()
		c := New(cacheDir)
		require.NoError(t, c.Put("key1", newResult(models.StatusConverged)))
		require.NoError(t, os.Mkdir(filepath.Join(cacheDir, "subdir"), 0o755))

		err := c.Clear()
		assert.ErrorContains(t, err, "subdirectories")
		assert.DirExists(t, cacheDir)
	})

	t.Run("refuses to clear directory with non-json files", func(t *testing.T) {
		cacheDir := t.TempDir()
		c := New(cacheDir)
		require.NoError(t, c.Put("key1", newResult(models.StatusConverged)))
		require.NoError(t, os.WriteFile(filepath.Join(cacheDir, "README.txt"), []byte("test"), 0o644))

		err := c.Clear()
		assert.ErrorContains(t, err, "non-cache files")
		assert.DirExists(t, cacheDir)
	})
}

func TestCache_ConcurrentOperations(t *testing.T) {
	cacheDir := t.TempDir()
	c := New(cacheDir)

	numGoroutines := 8
	numOperations := 20

	var wg sync.WaitGroup
	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < numOperations; j++ {
				key := fmt.Sprintf("key-%d-%d", id, j)
				assert.NoError(t, c.Put(key, newResult(models.StatusConverged)))
				_, found := c.Get(key)
				assert.True(t, found)
			}
		}(i)
	}
	wg.Wait()

	entries, err := os.ReadDir(cacheDir)
	require.NoError(t, err)
	assert.Len(t, entries, numGoroutines*numOperations)
}
