package blocklist

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// failingStore errors on every operation.
type failingStore struct{}

func (failingStore) Load(ctx context.Context) (Record, error) {
	return Record{}, errors.New("backend unavailable")
}

func (failingStore) Save(ctx context.Context, rec Record) error {
	return errors.New("backend unavailable")
}

// recordingStore counts saves and keeps the last record in memory.
type recordingStore struct {
	rec   Record
	saves int
}

func (s *recordingStore) Load(ctx context.Context) (Record, error) {
	return s.rec, nil
}

func (s *recordingStore) Save(ctx context.Context, rec Record) error {
	s.rec = rec
	s.saves++
	return nil
}

func TestRegistryBlockWritesThrough(t *testing.T) {
	store := &recordingStore{rec: Record{Blocked: map[string]string{}}}
	r := NewRegistry(context.Background(), store, zap.NewNop())

	r.Block(context.Background(), "hostile.example.com", "HTTP 403 Forbidden")

	assert.True(t, r.Contains("hostile.example.com"))
	assert.Equal(t, 1, store.saves)
	assert.Equal(t, "HTTP 403 Forbidden", store.rec.Blocked["hostile.example.com"])
	assert.False(t, store.rec.UpdatedAt.IsZero())
}

func TestRegistryBlockIsIdempotent(t *testing.T) {
	store := &recordingStore{rec: Record{Blocked: map[string]string{}}}
	r := NewRegistry(context.Background(), store, zap.NewNop())

	r.Block(context.Background(), "a.example.com", "HTTP 403 Forbidden")
	r.Block(context.Background(), "a.example.com", "HTTP 429 Rate Limited")

	// Re-blocking keeps the original reason and skips the second save.
	assert.Equal(t, 1, store.saves)
	assert.Equal(t, "HTTP 403 Forbidden", r.Entries()["a.example.com"])
}

func TestRegistryIgnoresEmptyHostname(t *testing.T) {
	store := &recordingStore{rec: Record{Blocked: map[string]string{}}}
	r := NewRegistry(context.Background(), store, zap.NewNop())

	r.Block(context.Background(), "", "HTTP 403 Forbidden")
	assert.Zero(t, store.saves)
	assert.Empty(t, r.Hostnames())
}

func TestRegistryLoadFailureStartsEmpty(t *testing.T) {
	r := NewRegistry(context.Background(), failingStore{}, zap.NewNop())
	assert.Empty(t, r.Hostnames())
	assert.False(t, r.Contains("anything.example.com"))
}

func TestRegistrySaveFailureKeepsInMemoryBlock(t *testing.T) {
	r := NewRegistry(context.Background(), failingStore{}, zap.NewNop())
	r.Block(context.Background(), "hostile.example.com", "HTTP 403 Forbidden")
	assert.True(t, r.Contains("hostile.example.com"))
}

func TestRegistryHostnamesSorted(t *testing.T) {
	store := &recordingStore{rec: Record{Blocked: map[string]string{
		"c.example.com": "x", "a.example.com": "x", "b.example.com": "x",
	}}}
	r := NewRegistry(context.Background(), store, zap.NewNop())

	assert.Equal(t, []string{"a.example.com", "b.example.com", "c.example.com"}, r.Hostnames())
}

func TestRegistryClear(t *testing.T) {
	store := &recordingStore{rec: Record{Blocked: map[string]string{"a.example.com": "x"}}}
	r := NewRegistry(context.Background(), store, zap.NewNop())
	require.True(t, r.Contains("a.example.com"))

	require.NoError(t, r.Clear(context.Background()))
	assert.Empty(t, r.Hostnames())
	assert.Empty(t, store.rec.Blocked)
}

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "blocked.json")
	store := NewFileStore(path)

	rec := Record{Blocked: map[string]string{"a.example.com": "HTTP 403 Forbidden"}}
	require.NoError(t, store.Save(context.Background(), rec))

	loaded, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, rec.Blocked, loaded.Blocked)

	// The temp file from the atomic rename never lingers.
	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestFileStoreMissingFileIsEmpty(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "absent.json"))
	rec, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, rec.Blocked)
	assert.Empty(t, rec.Blocked)
}

func TestFileStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blocked.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	_, err := NewFileStore(path).Load(context.Background())
	assert.Error(t, err)
}

func TestRegistryPersistsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blocked.json")

	first := NewRegistry(context.Background(), NewFileStore(path), zap.NewNop())
	first.Block(context.Background(), "hostile.example.com", "HTTP 429 Rate Limited")

	second := NewRegistry(context.Background(), NewFileStore(path), zap.NewNop())
	assert.True(t, second.Contains("hostile.example.com"))
	assert.Equal(t, "HTTP 429 Rate Limited", second.Entries()["hostile.example.com"])
}
