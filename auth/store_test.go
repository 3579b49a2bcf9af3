package auth_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/jrsteele09/motzkin-store/auth"
	"github.com/jrsteele09/motzkin-store/backend"
	fakebackend "github.com/jrsteele09/motzkin-store/backend/backendfake"
	"github.com/jrsteele09/motzkin-store/storage"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T, be auth.Backend, records storage.Store, options ...auth.StoreOption) *auth.Store {
	t.Helper()
	options = append([]auth.StoreOption{auth.WithLogger(zerolog.Nop())}, options...)
	s, err := auth.NewStore(be, records, options...)
	require.NoError(t, err)
	return s
}

func cacheIdentity(t *testing.T, records storage.Store, id auth.Identity) {
	t.Helper()
	b, err := json.Marshal(id)
	require.NoError(t, err)
	require.NoError(t, records.Put(context.Background(), auth.IdentityRecordKey, b))
}

func cachedIdentity(t *testing.T, records storage.Store) (auth.Identity, bool) {
	t.Helper()
	b, err := records.Get(context.Background(), auth.IdentityRecordKey)
	if errors.Is(err, storage.ErrNotFound) {
		return auth.Identity{}, false
	}
	require.NoError(t, err)
	var id auth.Identity
	require.NoError(t, json.Unmarshal(b, &id))
	return id, true
}

func TestNewStore(t *testing.T) {
	be := fakebackend.NewFakeBackend()

	_, err := auth.NewStore(nil, storage.NewMemoryStore())
	require.Error(t, err)
	_, err = auth.NewStore(be, nil)
	require.Error(t, err)

	s := newStore(t, be, storage.NewMemoryStore())
	require.Equal(t, auth.StateUnknown, s.Current().State)
	require.False(t, s.IsAuthenticated())
}

func TestLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("success uses the submitted username", func(t *testing.T) {
		be := fakebackend.NewFakeBackend()
		be.AddUser("u1", "alice", "Password123")
		records := storage.NewMemoryStore()
		s := newStore(t, be, records)

		require.NoError(t, s.Login(ctx, "alice", "Password123"))

		cur := s.Current()
		require.Equal(t, auth.StateAuthenticated, cur.State)
		require.Equal(t, auth.SourceServer, cur.Source)
		require.Equal(t, "u1", cur.UserID())
		require.Equal(t, "alice", cur.DisplayName())

		id, ok := cachedIdentity(t, records)
		require.True(t, ok)
		require.Equal(t, auth.Identity{UserID: "u1", Username: "alice"}, id)
	})

	t.Run("wrong password carries backend message", func(t *testing.T) {
		be := fakebackend.NewFakeBackend()
		be.AddUser("u1", "alice", "Password123")
		records := storage.NewMemoryStore()
		s := newStore(t, be, records)

		err := s.Login(ctx, "alice", "wrong")
		require.Error(t, err)
		require.Equal(t, "Invalid password", err.Error())

		var apiErr *backend.APIError
		require.ErrorAs(t, err, &apiErr)
		require.Equal(t, http.StatusUnauthorized, apiErr.Status)

		require.Equal(t, auth.StateUnauthenticated, s.Current().State)
		_, ok := cachedIdentity(t, records)
		require.False(t, ok)
	})

	t.Run("unknown user", func(t *testing.T) {
		be := fakebackend.NewFakeBackend()
		s := newStore(t, be, storage.NewMemoryStore())

		err := s.Login(ctx, "mallory", "x")
		require.EqualError(t, err, "User not found")
		require.Equal(t, auth.StateUnauthenticated, s.Current().State)
	})

	t.Run("failure after a session clears it", func(t *testing.T) {
		be := fakebackend.NewFakeBackend()
		be.AddUser("u1", "alice", "Password123")
		records := storage.NewMemoryStore()
		s := newStore(t, be, records)
		require.NoError(t, s.Login(ctx, "alice", "Password123"))

		require.Error(t, s.Login(ctx, "alice", "wrong"))
		require.False(t, s.IsAuthenticated())
		_, ok := cachedIdentity(t, records)
		require.False(t, ok)
	})

	t.Run("network failure", func(t *testing.T) {
		be := fakebackend.NewFakeBackend()
		be.AddUser("u1", "alice", "Password123")
		be.SetOffline(true)
		s := newStore(t, be, storage.NewMemoryStore())

		err := s.Login(ctx, "alice", "Password123")
		require.Error(t, err)
		require.Contains(t, err.Error(), "Login failed")
		require.ErrorIs(t, err, fakebackend.ErrUnreachable)
		require.Equal(t, auth.StateUnauthenticated, s.Current().State)
	})
}

func TestInitialize(t *testing.T) {
	ctx := context.Background()

	t.Run("server session", func(t *testing.T) {
		be := fakebackend.NewFakeBackend()
		be.AddUser("u1", "alice", "Password123")
		_, err := be.Login(ctx, "alice", "Password123")
		require.NoError(t, err)
		records := storage.NewMemoryStore()

		cur := newStore(t, be, records).Initialize(ctx)
		require.Equal(t, auth.StateAuthenticated, cur.State)
		require.Equal(t, auth.SourceServer, cur.Source)
		require.Equal(t, "alice", cur.DisplayName())

		id, ok := cachedIdentity(t, records)
		require.True(t, ok)
		require.Equal(t, "u1", id.UserID)
	})

	t.Run("unreachable backend falls back to cache", func(t *testing.T) {
		be := fakebackend.NewFakeBackend()
		be.SetOffline(true)
		records := storage.NewMemoryStore()
		cacheIdentity(t, records, auth.Identity{UserID: "u1", Username: "alice"})

		cur := newStore(t, be, records).Initialize(ctx)
		require.Equal(t, auth.StateAuthenticated, cur.State)
		require.Equal(t, auth.SourceCache, cur.Source)
		require.Equal(t, "u1", cur.UserID())
		require.Equal(t, "alice", cur.DisplayName())
	})

	t.Run("expired server session still trusts cache by default", func(t *testing.T) {
		be := fakebackend.NewFakeBackend()
		records := storage.NewMemoryStore()
		cacheIdentity(t, records, auth.Identity{UserID: "u1", Username: "alice"})

		cur := newStore(t, be, records).Initialize(ctx)
		require.Equal(t, auth.StateAuthenticated, cur.State)
		require.Equal(t, auth.SourceCache, cur.Source)
	})

	t.Run("strict probe drops cache on 401", func(t *testing.T) {
		be := fakebackend.NewFakeBackend()
		records := storage.NewMemoryStore()
		cacheIdentity(t, records, auth.Identity{UserID: "u1", Username: "alice"})

		cur := newStore(t, be, records, auth.WithStrictProbe(true)).Initialize(ctx)
		require.Equal(t, auth.StateUnauthenticated, cur.State)
		_, ok := cachedIdentity(t, records)
		require.False(t, ok)
	})

	t.Run("strict probe still trusts cache when unreachable", func(t *testing.T) {
		be := fakebackend.NewFakeBackend()
		be.SetOffline(true)
		records := storage.NewMemoryStore()
		cacheIdentity(t, records, auth.Identity{UserID: "u1", Username: "alice"})

		cur := newStore(t, be, records, auth.WithStrictProbe(true)).Initialize(ctx)
		require.Equal(t, auth.StateAuthenticated, cur.State)
		require.Equal(t, auth.SourceCache, cur.Source)
	})

	t.Run("no cache", func(t *testing.T) {
		be := fakebackend.NewFakeBackend()
		be.SetOffline(true)

		cur := newStore(t, be, storage.NewMemoryStore()).Initialize(ctx)
		require.Equal(t, auth.StateUnauthenticated, cur.State)
		require.Nil(t, cur.Identity)
	})

	t.Run("incomplete cache record is ignored", func(t *testing.T) {
		be := fakebackend.NewFakeBackend()
		be.SetOffline(true)
		records := storage.NewMemoryStore()
		cacheIdentity(t, records, auth.Identity{UserID: "u1"})

		cur := newStore(t, be, records).Initialize(ctx)
		require.Equal(t, auth.StateUnauthenticated, cur.State)
	})

	t.Run("corrupt cache record is ignored", func(t *testing.T) {
		be := fakebackend.NewFakeBackend()
		be.SetOffline(true)
		records := storage.NewMemoryStore()
		require.NoError(t, records.Put(ctx, auth.IdentityRecordKey, []byte("{not json")))

		cur := newStore(t, be, records).Initialize(ctx)
		require.Equal(t, auth.StateUnauthenticated, cur.State)
	})
}

func TestLogout(t *testing.T) {
	ctx := context.Background()

	t.Run("clears session and cache", func(t *testing.T) {
		be := fakebackend.NewFakeBackend()
		be.AddUser("u1", "alice", "Password123")
		records := storage.NewMemoryStore()
		s := newStore(t, be, records)
		require.NoError(t, s.Login(ctx, "alice", "Password123"))

		s.Logout(ctx)
		require.Equal(t, auth.StateUnauthenticated, s.Current().State)
		_, ok := cachedIdentity(t, records)
		require.False(t, ok)

		// A fresh process finds neither a server session nor a cache.
		be.SetOffline(true)
		cur := newStore(t, be, records).Initialize(ctx)
		require.Equal(t, auth.StateUnauthenticated, cur.State)
	})

	t.Run("backend failure still logs out locally", func(t *testing.T) {
		be := fakebackend.NewFakeBackend()
		be.AddUser("u1", "alice", "Password123")
		records := storage.NewMemoryStore()
		s := newStore(t, be, records)
		require.NoError(t, s.Login(ctx, "alice", "Password123"))

		be.Fail(fakebackend.LogoutKey, &backend.APIError{Status: http.StatusInternalServerError, Message: "Logout failed"})
		s.Logout(ctx)
		require.False(t, s.IsAuthenticated())
		_, ok := cachedIdentity(t, records)
		require.False(t, ok)
	})
}

func TestCurrentIsASnapshot(t *testing.T) {
	be := fakebackend.NewFakeBackend()
	be.AddUser("u1", "alice", "Password123")
	s := newStore(t, be, storage.NewMemoryStore())
	require.NoError(t, s.Login(context.Background(), "alice", "Password123"))

	cur := s.Current()
	cur.Identity.Username = "mallory"
	require.Equal(t, "alice", s.Current().DisplayName())
}

func TestStateStrings(t *testing.T) {
	require.Equal(t, "unknown", auth.StateUnknown.String())
	require.Equal(t, "authenticated", auth.StateAuthenticated.String())
	require.Equal(t, "unauthenticated", auth.StateUnauthenticated.String())
	require.Equal(t, "server-confirmed", auth.SourceServer.String())
	require.Equal(t, "locally-cached", auth.SourceCache.String())
}
