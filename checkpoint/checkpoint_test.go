package checkpoint

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type memStore struct {
	value   uint64
	saves   []uint64
	saveErr error
}

func (m *memStore) Load() (uint64, error) {
	return m.value, nil
}

func (m *memStore) Save(value uint64) error {
	m.saves = append(m.saves, value)
	if m.saveErr != nil {
		return m.saveErr
	}
	m.value = value
	return nil
}

func TestFileStoreCreatesAbsentFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "lastProcessedBlock.json")
	store := NewFileStore(path)

	value, err := store.Load()
	require.NoError(t, err)
	require.Equal(t, uint64(0), value)

	bz, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "0", string(bz))
}

func TestFileStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStoreForKind(dir, Timestamp("completed"))
	require.Equal(t, filepath.Join(dir, "completed_lastTimestamp.json"), store.Path())

	require.NoError(t, store.Save(1700000000123))
	value, err := store.Load()
	require.NoError(t, err)
	require.Equal(t, uint64(1700000000123), value)

	bz, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	require.Equal(t, "1700000000123", string(bz))

	// surrounding whitespace written by hand is tolerated
	require.NoError(t, os.WriteFile(store.Path(), []byte(" 42\n"), 0o644))
	value, err = store.Load()
	require.NoError(t, err)
	require.Equal(t, uint64(42), value)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestFileStoreRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cp.json")
	require.NoError(t, os.WriteFile(path, []byte("not a number"), 0o644))
	_, err := NewFileStore(path).Load()
	require.Error(t, err)
}

func TestAdvanceIsMonotonic(t *testing.T) {
	store := &memStore{value: 7}
	cp, err := Open(BlockHeight(), store)
	require.NoError(t, err)
	require.Equal(t, uint64(7), cp.Value())

	advanced, err := cp.Advance(5)
	require.NoError(t, err)
	require.False(t, advanced)
	advanced, err = cp.Advance(7)
	require.NoError(t, err)
	require.False(t, advanced)
	require.Empty(t, store.saves)

	advanced, err = cp.Advance(10)
	require.NoError(t, err)
	require.True(t, advanced)
	require.Equal(t, uint64(10), cp.Value())
	require.Equal(t, []uint64{10}, store.saves)
}

func TestAdvanceKeepsValueWhenSaveFails(t *testing.T) {
	store := &memStore{saveErr: errors.New("disk full")}
	cp, err := Open(BlockHeight(), store)
	require.NoError(t, err)

	advanced, err := cp.Advance(3)
	require.Error(t, err)
	require.True(t, advanced)
	require.Equal(t, uint64(3), cp.Value())
}

func TestKindNames(t *testing.T) {
	require.Equal(t, "lastProcessedBlock", BlockHeight().Name())
	require.False(t, BlockHeight().IsTimestamp())
	require.Equal(t, "processing_lastTimestamp", Timestamp("processing").Name())
	require.Equal(t, "processing", Timestamp("processing").Status())
}
