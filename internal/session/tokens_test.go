package session

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileTokenStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "billing", "tokens.json")
	s := NewFileTokenStore(path)

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, Tokens{}, got)

	want := Tokens{Access: "a1", Refresh: "r1"}
	require.NoError(t, s.Save(ctx, want))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"access_token":"a1","refresh_token":"r1"}`, string(raw))

	got, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	require.NoError(t, s.Clear(ctx))
	require.NoError(t, s.Clear(ctx))
	got, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, Tokens{}, got)
}

func TestFileTokenStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := NewFileTokenStore(path).Load(context.Background())
	assert.Error(t, err)
}

func TestCorruptTokenFile_StartsLoggedOut(t *testing.T) {
	f := newFakeAPI(t)
	path := filepath.Join(t.TempDir(), "tokens.json")
	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0o600))

	c := f.cache(t, NewFileTokenStore(path))
	c.VerifySessionOnStartup(context.Background())

	assert.Equal(t, Unauthenticated, c.State())
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestRedisTokenStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	s := NewRedisTokenStore(client, "", time.Hour)

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, Tokens{}, got)

	require.NoError(t, s.Save(ctx, Tokens{Access: "a1", Refresh: "r1"}))
	v, err := mr.Get("shreemohan:session:access_token")
	require.NoError(t, err)
	assert.Equal(t, "a1", v)
	assert.Equal(t, time.Hour, mr.TTL("shreemohan:session:refresh_token"))

	got, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, Tokens{Access: "a1", Refresh: "r1"}, got)

	require.NoError(t, s.Save(ctx, Tokens{Access: "a2"}))
	assert.False(t, mr.Exists("shreemohan:session:refresh_token"))

	require.NoError(t, s.Clear(ctx))
	assert.False(t, mr.Exists("shreemohan:session:access_token"))
}

func TestRedisTokenStore_SharedLogin(t *testing.T) {
	f := newFakeAPI(t)
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	first := f.cache(t, NewRedisTokenStore(client, "shop", 0))
	require.NoError(t, first.Login(context.Background(), "admin", "secret"))

	second := f.cache(t, NewRedisTokenStore(client, "shop", 0))
	second.VerifySessionOnStartup(context.Background())
	assert.True(t, second.IsLoggedIn())
	assert.Equal(t, first.Session().Token, second.Session().Token)
}

func TestRedisTokenStore_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()

	_, err := NewRedisTokenStore(client, "", 0).Load(context.Background())
	assert.Error(t, err)
}
