package kvstore

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type testValue struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func setupGormStore(t *testing.T) *GormStore {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(&Entry{}))
	return NewGormStore(db)
}

// storeUnderTest runs the same contract tests against each implementation.
func storeUnderTest(t *testing.T, store Store) {
	ctx := context.Background()

	t.Run("get missing key", func(t *testing.T) {
		var v testValue
		err := store.GetJSON(ctx, "missing", &v)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("set and get", func(t *testing.T) {
		in := testValue{Name: "alpha", Count: 3}
		require.NoError(t, store.SetJSON(ctx, "k1", in))

		var out testValue
		require.NoError(t, store.GetJSON(ctx, "k1", &out))
		assert.Equal(t, in, out)
	})

	t.Run("overwrite", func(t *testing.T) {
		require.NoError(t, store.SetJSON(ctx, "k2", testValue{Name: "first"}))
		require.NoError(t, store.SetJSON(ctx, "k2", testValue{Name: "second"}))

		var out testValue
		require.NoError(t, store.GetJSON(ctx, "k2", &out))
		assert.Equal(t, "second", out.Name)
	})

	t.Run("list round trip", func(t *testing.T) {
		in := []testValue{{Name: "a"}, {Name: "b"}}
		require.NoError(t, store.SetJSONList(ctx, "list1", in))

		var out []testValue
		require.NoError(t, store.GetJSONList(ctx, "list1", &out))
		assert.Equal(t, in, out)
	})

	t.Run("list readable as raw messages", func(t *testing.T) {
		in := []testValue{{Name: "a"}, {Name: "b"}, {Name: "c"}}
		require.NoError(t, store.SetJSONList(ctx, "list2", in))

		var raw []json.RawMessage
		require.NoError(t, store.GetJSONList(ctx, "list2", &raw))
		assert.Len(t, raw, 3)

		var first testValue
		require.NoError(t, json.Unmarshal(raw[0], &first))
		assert.Equal(t, "a", first.Name)
	})

	t.Run("remove", func(t *testing.T) {
		require.NoError(t, store.SetJSON(ctx, "k3", testValue{Name: "bye"}))
		require.NoError(t, store.Remove(ctx, "k3"))

		var out testValue
		assert.ErrorIs(t, store.GetJSON(ctx, "k3", &out), ErrNotFound)
	})

	t.Run("remove missing key is not an error", func(t *testing.T) {
		assert.NoError(t, store.Remove(ctx, "never-existed"))
	})
}

func TestMemoryStore(t *testing.T) {
	storeUnderTest(t, NewMemory())
}

func TestGormStore(t *testing.T) {
	storeUnderTest(t, setupGormStore(t))
}

func TestEpgKeys(t *testing.T) {
	assert.Equal(t, "epg:meta:abc", EpgMetaKey("abc"))
	assert.Equal(t, "epg:programs:abc", EpgProgramsKey("abc"))
}
