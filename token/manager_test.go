package token_test

import (
	"testing"
	"time"

	"github.com/jrsteele09/motzkin-store/token"
	"github.com/stretchr/testify/require"
)

func TestSessionTokenRoundTrip(t *testing.T) {
	now := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	m := token.New(token.NewHMACSigner("secret"), token.WithExpiry(30*time.Minute), token.WithNowFunc(func() time.Time { return now }))

	raw, expires, err := m.CreateSessionToken("sess-1", "1001")
	require.NoError(t, err)
	require.Equal(t, now.Add(30*time.Minute), expires)

	claims, err := m.ParseSessionToken(raw)
	require.NoError(t, err)
	require.Equal(t, "sess-1", claims.SessionID)
	require.Equal(t, "1001", claims.UserID)
	require.True(t, claims.ExpiresAt.Equal(expires))
}

func TestParseSessionToken_Expired(t *testing.T) {
	now := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	clock := now
	m := token.New(token.NewHMACSigner("secret"), token.WithExpiry(time.Minute), token.WithNowFunc(func() time.Time { return clock }))

	raw, _, err := m.CreateSessionToken("sess-1", "1001")
	require.NoError(t, err)

	clock = now.Add(2 * time.Minute)
	_, err = m.ParseSessionToken(raw)
	require.Error(t, err)
}

func TestParseSessionToken_WrongSecret(t *testing.T) {
	raw, _, err := token.New(token.NewHMACSigner("one")).CreateSessionToken("sess-1", "1001")
	require.NoError(t, err)

	_, err = token.New(token.NewHMACSigner("two")).ParseSessionToken(raw)
	require.Error(t, err)
}

func TestParseSessionToken_WrongIssuer(t *testing.T) {
	signer := token.NewHMACSigner("secret")
	raw, _, err := token.New(signer, token.WithIssuer("elsewhere")).CreateSessionToken("sess-1", "1001")
	require.NoError(t, err)

	_, err = token.New(signer).ParseSessionToken(raw)
	require.Error(t, err)
}

func TestParseSessionToken_Garbage(t *testing.T) {
	_, err := token.New(token.NewHMACSigner("secret")).ParseSessionToken("not-a-token")
	require.Error(t, err)
}

func TestCreateSessionToken_RequiresIDs(t *testing.T) {
	_, _, err := token.New(token.NewHMACSigner("secret")).CreateSessionToken("", "1001")
	require.Error(t, err)
}

func TestCreateSessionToken_EmptySecret(t *testing.T) {
	_, _, err := token.New(token.NewHMACSigner("")).CreateSessionToken("sess-1", "1001")
	require.Error(t, err)
}
