package blocklist

import (
	"context"
	"os"
	"testing"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Runs against the Firestore emulator only.
func TestFirestoreStoreRoundTrip(t *testing.T) {
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("Skipping test: FIRESTORE_EMULATOR_HOST not set")
	}

	ctx := context.Background()
	client, err := firestore.NewClient(ctx, "test-project")
	require.NoError(t, err)
	defer client.Close()

	store := NewFirestoreStore(client)

	rec := Record{
		Blocked:   map[string]string{"hostile.example.com": "HTTP 403 Forbidden"},
		UpdatedAt: time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, store.Save(ctx, rec))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, rec.Blocked, loaded.Blocked)
}

func TestFirestoreStoreMissingDocumentIsEmpty(t *testing.T) {
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("Skipping test: FIRESTORE_EMULATOR_HOST not set")
	}

	ctx := context.Background()
	client, err := firestore.NewClient(ctx, "test-project-empty")
	require.NoError(t, err)
	defer client.Close()

	rec, err := NewFirestoreStore(client).Load(ctx)
	require.NoError(t, err)
	assert.NotNil(t, rec.Blocked)
	assert.Empty(t, rec.Blocked)
}
