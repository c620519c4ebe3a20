package blobstore

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readBlob(t *testing.T, st Store, key string) string {
	t.Helper()
	rc, err := st.Open(context.Background(), key)
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	return string(data)
}

func TestLocalSaveOpenRoundTrip(t *testing.T) {
	st := NewLocal(t.TempDir())

	err := st.Save(context.Background(), "uploads/7/doc.md", strings.NewReader("hello"), 5)
	require.NoError(t, err)
	assert.Equal(t, "hello", readBlob(t, st, "uploads/7/doc.md"))
}

func TestLocalSaveOverwrites(t *testing.T) {
	st := NewLocal(t.TempDir())
	ctx := context.Background()

	require.NoError(t, st.Save(ctx, "k", strings.NewReader("old"), 3))
	require.NoError(t, st.Save(ctx, "k", strings.NewReader("new"), 3))
	assert.Equal(t, "new", readBlob(t, st, "k"))
}

func TestLocalOpenMissing(t *testing.T) {
	st := NewLocal(t.TempDir())

	_, err := st.Open(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotExist)
}

func TestLocalDeleteTolerant(t *testing.T) {
	st := NewLocal(t.TempDir())
	ctx := context.Background()

	require.NoError(t, st.Save(ctx, "k", strings.NewReader("x"), 1))
	require.NoError(t, st.Delete(ctx, "k"))
	_, err := st.Open(ctx, "k")
	assert.ErrorIs(t, err, ErrNotExist)

	// deleting a missing key is not an error
	assert.NoError(t, st.Delete(ctx, "k"))
}

func TestLocalRejectsTraversalKeys(t *testing.T) {
	st := NewLocal(t.TempDir())
	ctx := context.Background()

	for _, key := range []string{"../escape", "..", "", "a/../../b"} {
		assert.Error(t, st.Save(ctx, key, strings.NewReader("x"), 1), key)
		_, err := st.Open(ctx, key)
		assert.Error(t, err, key)
	}
}
