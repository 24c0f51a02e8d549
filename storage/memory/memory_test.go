package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearmind/redsheet/storage"
)

func TestPutGetRoundTrip(t *testing.T) {
	r := NewRepository()
	require.NoError(t, r.Put("payload", "p1", []byte(`{"name":"x"}`)))

	data, err := r.Get("payload", "p1")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"name":"x"}`), data)
}

func TestGetMissing(t *testing.T) {
	r := NewRepository()
	_, err := r.Get("payload", "nope")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, r.Put("payload", "p1", []byte("a")))
	_, err = r.Get("target", "p1")
	assert.ErrorIs(t, err, storage.ErrNotFound, "kinds are isolated")
}

func TestDelete(t *testing.T) {
	r := NewRepository()
	require.NoError(t, r.Put("box", "b1", []byte("a")))
	require.NoError(t, r.Delete("box", "b1"))

	_, err := r.Get("box", "b1")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.ErrorIs(t, r.Delete("box", "b1"), storage.ErrNotFound)
}

func TestList(t *testing.T) {
	r := NewRepository()
	require.NoError(t, r.Put("tool", "t1", []byte("one")))
	require.NoError(t, r.Put("tool", "t2", []byte("two")))
	require.NoError(t, r.Put("wiki", "w1", []byte("page")))

	records, err := r.List("tool")
	require.NoError(t, err)
	assert.Len(t, records, 2)

	records, err = r.List("empty")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestGetReturnsCopy(t *testing.T) {
	r := NewRepository()
	require.NoError(t, r.Put("payload", "p1", []byte("abc")))

	data, err := r.Get("payload", "p1")
	require.NoError(t, err)
	data[0] = 'z'

	fresh, err := r.Get("payload", "p1")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), fresh)
}
