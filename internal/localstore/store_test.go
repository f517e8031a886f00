package localstore

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedis(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	s, err := NewRedisStore(context.Background(), "redis://"+mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, mr
}

func newFile(t *testing.T) (*FileStore, afero.Fs) {
	t.Helper()
	fsys := afero.NewMemMapFs()
	s, err := NewFileStore(fsys, "/state")
	require.NoError(t, err)
	return s, fsys
}

// Both backends share the same contract.
func TestStores_Contract(t *testing.T) {
	backends := map[string]func(t *testing.T) Store{
		"redis": func(t *testing.T) Store { s, _ := newRedis(t); return s },
		"file":  func(t *testing.T) Store { s, _ := newFile(t); return s },
	}

	for name, build := range backends {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := build(t)

			_, err := s.Get(ctx, KeySession)
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, s.Put(ctx, KeySession, []byte(`{"a":1}`)))
			got, err := s.Get(ctx, KeySession)
			require.NoError(t, err)
			assert.JSONEq(t, `{"a":1}`, string(got))

			require.NoError(t, s.Put(ctx, KeySession, []byte(`{"a":2}`)))
			got, err = s.Get(ctx, KeySession)
			require.NoError(t, err)
			assert.JSONEq(t, `{"a":2}`, string(got))

			require.NoError(t, s.Delete(ctx, KeySession))
			_, err = s.Get(ctx, KeySession)
			assert.ErrorIs(t, err, ErrNotFound)

			assert.NoError(t, s.Delete(ctx, KeySession))
		})
	}
}

func TestRedisStore_KeysArePrefixed(t *testing.T) {
	s, mr := newRedis(t)
	require.NoError(t, s.Put(context.Background(), KeyReplica, []byte("{}")))

	assert.True(t, mr.Exists("examia:replica"))
	assert.Equal(t, time.Duration(0), mr.TTL("examia:replica"))
}

func TestNewRedisStore_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedisStore(context.Background(), "redis://"+addr)
	assert.ErrorContains(t, err, "connect to redis")

	_, err = NewRedisStore(context.Background(), "://bad")
	assert.ErrorContains(t, err, "parse redis url")
}

func TestFileStore_Layout(t *testing.T) {
	s, fsys := newFile(t)
	require.NoError(t, s.Put(context.Background(), KeyReplica, []byte("{}")))

	ok, err := afero.Exists(fsys, "/state/replica.json")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = afero.Exists(fsys, "/state/replica.json.tmp")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFileStore_KeyCannotEscapeDir(t *testing.T) {
	s, fsys := newFile(t)
	require.NoError(t, s.Put(context.Background(), "../../etc/x", []byte("1")))

	ok, _ := afero.Exists(fsys, "/state/x.json")
	assert.True(t, ok)
}

func TestNewFileStore_RequiresDir(t *testing.T) {
	_, err := NewFileStore(afero.NewMemMapFs(), "")
	assert.Error(t, err)
}
