package localstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	_, err := s.Get(ctx, KeyTheme)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Set(ctx, KeyTheme, []byte("dark")))
	v, err := s.Get(ctx, KeyTheme)
	require.NoError(t, err)
	assert.Equal(t, "dark", string(v))

	statuses := `[{"id":"s1","userId":"u1","createdAt":1,"expiresAt":2}]`
	require.NoError(t, s.Set(ctx, KeyStatuses, []byte(statuses)))
	v, err = s.Get(ctx, KeyStatuses)
	require.NoError(t, err)
	assert.JSONEq(t, statuses, string(v))

	require.NoError(t, s.Set(ctx, KeyTheme, []byte("light")))
	v, err = s.Get(ctx, KeyTheme)
	require.NoError(t, err)
	assert.Equal(t, "light", string(v))

	require.NoError(t, s.Delete(ctx, KeyTheme))
	_, err = s.Get(ctx, KeyTheme)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, s.Delete(ctx, KeyTheme))
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.json")
	s, err := NewFileStore(path)
	require.NoError(t, err)
	exerciseStore(t, s)

	// survives reopening
	require.NoError(t, s.Set(context.Background(), KeyStatuses, []byte(`[]`)))
	reopened, err := NewFileStore(path)
	require.NoError(t, err)
	v, err := reopened.Get(context.Background(), KeyStatuses)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(v))
}

func TestFileStore_KeepsQuotedStrings(t *testing.T) {
	s, err := NewFileStore(filepath.Join(t.TempDir(), "state.json"))
	require.NoError(t, err)

	require.NoError(t, s.Set(context.Background(), "k", []byte(`"quoted"`)))
	v, err := s.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, `"quoted"`, string(v))
}

func TestFileStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	s, err := NewFileStore(path)
	require.NoError(t, err)
	_, err = s.Get(context.Background(), KeyTheme)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}
