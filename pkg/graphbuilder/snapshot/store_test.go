package snapshot_test

import (
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/graphbuilder/pkg/graphbuilder/snapshot"
)

type storeFactory func(t *testing.T, opts ...snapshot.Option) snapshot.Store

func factories() map[string]storeFactory {
	return map[string]storeFactory{
		"memory": func(t *testing.T, opts ...snapshot.Option) snapshot.Store {
			return snapshot.NewMemoryStore(opts...)
		},
		"sqlite": func(t *testing.T, opts ...snapshot.Option) snapshot.Store {
			s, err := snapshot.NewSQLiteStore(filepath.Join(t.TempDir(), "snapshots.db"), opts...)
			require.NoError(t, err)
			return s
		},
	}
}

func TestStoreContract(t *testing.T) {
	for name, factory := range factories() {
		t.Run(name, func(t *testing.T) {
			storeContractTest(t, factory)
		})
	}
}

func storeContractTest(t *testing.T, factory storeFactory) {
	t.Run("save and load", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		data := []byte(`{"nodes": []}`)
		info, err := store.Save("support", data)
		require.NoError(t, err)
		assert.Equal(t, "support", info.Project)
		assert.Equal(t, int64(1), info.Revision)
		assert.Equal(t, int64(len(data)), info.Size)
		assert.Len(t, info.Digest, 64)
		assert.False(t, info.Timestamp.IsZero())

		loaded, err := store.Load("support", 1)
		require.NoError(t, err)
		assert.Equal(t, data, loaded)
	})

	t.Run("revisions increase", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		for i := 1; i <= 3; i++ {
			info, err := store.Save("support", []byte(fmt.Sprintf("v%d", i)))
			require.NoError(t, err)
			assert.Equal(t, int64(i), info.Revision)
		}
		other, err := store.Save("research", []byte("v1"))
		require.NoError(t, err)
		assert.Equal(t, int64(1), other.Revision, "revisions are per project")

		loaded, err := store.Load("support", 2)
		require.NoError(t, err)
		assert.Equal(t, []byte("v2"), loaded)
	})

	t.Run("not found", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		_, err := store.Load("missing", 1)
		assert.ErrorIs(t, err, snapshot.ErrNotFound)

		_, _, err = store.Latest("missing")
		assert.ErrorIs(t, err, snapshot.ErrNotFound)

		_, err = store.Save("support", []byte("v1"))
		require.NoError(t, err)
		_, err = store.Load("support", 2)
		assert.ErrorIs(t, err, snapshot.ErrNotFound)
	})

	t.Run("latest", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		_, err := store.Save("support", []byte("old"))
		require.NoError(t, err)
		saved, err := store.Save("support", []byte("newest"))
		require.NoError(t, err)

		info, data, err := store.Latest("support")
		require.NoError(t, err)
		assert.Equal(t, []byte("newest"), data)
		assert.Equal(t, saved.Revision, info.Revision)
		assert.Equal(t, saved.Digest, info.Digest)
		assert.Equal(t, int64(6), info.Size)
	})

	t.Run("list", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		infos, err := store.List("missing")
		require.NoError(t, err)
		assert.Empty(t, infos)

		_, err = store.Save("support", []byte("a"))
		require.NoError(t, err)
		_, err = store.Save("support", []byte("bb"))
		require.NoError(t, err)

		infos, err = store.List("support")
		require.NoError(t, err)
		require.Len(t, infos, 2)
		assert.Equal(t, int64(1), infos[0].Revision)
		assert.Equal(t, int64(2), infos[1].Revision)
		assert.Equal(t, int64(2), infos[1].Size)
		assert.NotEqual(t, infos[0].Digest, infos[1].Digest)
	})

	t.Run("projects", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		names, err := store.Projects()
		require.NoError(t, err)
		assert.Empty(t, names)

		for _, p := range []string{"support", "research", "support"} {
			_, err := store.Save(p, []byte("x"))
			require.NoError(t, err)
		}
		names, err = store.Projects()
		require.NoError(t, err)
		assert.Equal(t, []string{"research", "support"}, names)
	})

	t.Run("delete project", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		_, err := store.Save("support", []byte("v1"))
		require.NoError(t, err)
		_, err = store.Save("support", []byte("v2"))
		require.NoError(t, err)
		_, err = store.Save("research", []byte("keep"))
		require.NoError(t, err)

		require.NoError(t, store.DeleteProject("support"))
		require.NoError(t, store.DeleteProject("never-existed"))

		infos, err := store.List("support")
		require.NoError(t, err)
		assert.Empty(t, infos)

		_, err = store.Load("research", 1)
		assert.NoError(t, err)

		info, err := store.Save("support", []byte("again"))
		require.NoError(t, err)
		assert.Equal(t, int64(1), info.Revision, "numbering restarts")
	})

	t.Run("retention", func(t *testing.T) {
		store := factory(t, snapshot.WithRetention(2))
		defer store.Close()

		for i := 1; i <= 4; i++ {
			_, err := store.Save("support", []byte(fmt.Sprintf("v%d", i)))
			require.NoError(t, err)
		}

		infos, err := store.List("support")
		require.NoError(t, err)
		require.Len(t, infos, 2)
		assert.Equal(t, int64(3), infos[0].Revision)
		assert.Equal(t, int64(4), infos[1].Revision)

		_, err = store.Load("support", 1)
		assert.ErrorIs(t, err, snapshot.ErrNotFound)

		info, err := store.Save("support", []byte("v5"))
		require.NoError(t, err)
		assert.Equal(t, int64(5), info.Revision, "pruning does not reuse revisions")
	})

	t.Run("empty project", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		_, err := store.Save("", []byte("x"))
		assert.ErrorIs(t, err, snapshot.ErrEmptyProject)
	})

	t.Run("closed", func(t *testing.T) {
		store := factory(t)
		require.NoError(t, store.Close())
		assert.NoError(t, store.Close(), "close is idempotent")

		_, err := store.Save("support", []byte("x"))
		assert.ErrorIs(t, err, snapshot.ErrStoreClosed)
		_, err = store.Load("support", 1)
		assert.ErrorIs(t, err, snapshot.ErrStoreClosed)
		_, _, err = store.Latest("support")
		assert.ErrorIs(t, err, snapshot.ErrStoreClosed)
		_, err = store.List("support")
		assert.ErrorIs(t, err, snapshot.ErrStoreClosed)
		_, err = store.Projects()
		assert.ErrorIs(t, err, snapshot.ErrStoreClosed)
		assert.ErrorIs(t, store.DeleteProject("support"), snapshot.ErrStoreClosed)
	})

	t.Run("concurrent saves", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		const workers = 8
		const perWorker = 10

		var wg sync.WaitGroup
		wg.Add(workers)
		for w := 0; w < workers; w++ {
			go func() {
				defer wg.Done()
				for i := 0; i < perWorker; i++ {
					_, err := store.Save("support", []byte("x"))
					assert.NoError(t, err)
					_, _, _ = store.Latest("support")
				}
			}()
		}
		wg.Wait()

		infos, err := store.List("support")
		require.NoError(t, err)
		require.Len(t, infos, workers*perWorker)
		for i, info := range infos {
			assert.Equal(t, int64(i+1), info.Revision)
		}
	})
}
