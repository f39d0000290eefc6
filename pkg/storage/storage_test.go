package storage

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorageRoundTrip(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir(), 0)
	require.NoError(t, err)

	n, err := store.Save("course-1/notes.pdf", strings.NewReader("hello"))
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)

	f, err := store.Open("course-1/notes.pdf")
	require.NoError(t, err)
	body, err := io.ReadAll(f)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	assert.Equal(t, "hello", string(body))

	require.NoError(t, store.Delete("course-1/notes.pdf"))
	require.NoError(t, store.Delete("course-1/notes.pdf"))
	_, err = store.Open("course-1/notes.pdf")
	require.Error(t, err)
}

func TestLocalStorageSizeLimit(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir(), 4)
	require.NoError(t, err)

	_, err = store.Save("big.bin", strings.NewReader("12345"))
	require.True(t, errors.Is(err, ErrTooLarge))
	_, err = store.Open("big.bin")
	require.Error(t, err)
}

func TestLocalStorageRejectsEscapingKeys(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir(), 0)
	require.NoError(t, err)

	_, err = store.Save("../outside.txt", strings.NewReader("x"))
	require.Error(t, err)
	_, err = store.Save("/etc/passwd", strings.NewReader("x"))
	require.Error(t, err)
}
