package kvstore

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Options{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, s.Close())
	})
	return s
}

func TestSetAndGet(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Set(KeyToken, "abc"))

	got, err := s.Get(KeyToken)
	require.NoError(t, err)
	assert.Equal(t, "abc", got)
}

func TestGetNotFound(t *testing.T) {
	s := openTestStore(t)

	_, err := s.Get("missing")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestRemove(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Set(KeyActiveStep, "2"))
	require.NoError(t, s.Remove(KeyActiveStep))

	_, err := s.Get(KeyActiveStep)
	assert.ErrorIs(t, err, ErrNotFound)

	// removing again is fine
	assert.NoError(t, s.Remove(KeyActiveStep))
}

func TestClear(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Set(KeyToken, "t"))
	require.NoError(t, s.Set(KeyUserData, "{}"))
	require.NoError(t, s.Set(KeyActiveStep, "1"))

	require.NoError(t, s.Clear())

	keys, err := s.Keys()
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(Options{Dir: dir})
	require.NoError(t, err)
	require.NoError(t, s.Set(KeyActiveStep, "2"))
	require.NoError(t, s.Close())

	s2, err := Open(Options{Dir: dir})
	require.NoError(t, err)
	defer s2.Close()

	got, err := s2.Get(KeyActiveStep)
	require.NoError(t, err)
	assert.Equal(t, "2", got)
}
