package file

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragdex/internal/core/domain"
)

func TestSettingsStore_MissingFileYieldsDefaults(t *testing.T) {
	store, err := NewSettingsStore(t.TempDir())
	require.NoError(t, err)

	settings, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultSettings(), settings)
}

func TestSettingsStore_PartialFileKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	store, err := NewSettingsStore(dir)
	require.NoError(t, err)

	content := `
[ollama]
llm_model = "mistral"

[retrieval]
top_k = 5
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0600))

	settings, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "mistral", settings.Ollama.LLMModel)
	assert.Equal(t, 5, settings.Retrieval.TopK)

	// Untouched sections keep built-in defaults.
	assert.Equal(t, "http://localhost:11434", settings.Ollama.BaseURL)
	assert.Equal(t, 60, settings.Retrieval.RRFK)
	assert.Equal(t, 2000, settings.Chunking.ChunkSize)
}

func TestSettingsStore_SaveRoundTrip(t *testing.T) {
	store, err := NewSettingsStore(t.TempDir())
	require.NoError(t, err)

	settings := domain.DefaultSettings()
	settings.Rerank.Enabled = true
	settings.Rerank.Multiplier = 4
	settings.Ollama.Timeout = 30 * time.Second
	require.NoError(t, store.Save(settings))

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.True(t, loaded.Rerank.Enabled)
	assert.Equal(t, 4, loaded.Rerank.Multiplier)
	assert.Equal(t, 30*time.Second, loaded.Ollama.Timeout)
}

func TestSettingsStore_MalformedFile(t *testing.T) {
	dir := t.TempDir()
	store, err := NewSettingsStore(dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte("not [valid toml"), 0600))

	_, err = store.Load()
	assert.Error(t, err)
}
