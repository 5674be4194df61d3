package tokenstore

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signed(t *testing.T, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "7",
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	s, err := tok.SignedString([]byte("secret"))
	require.NoError(t, err)
	return s
}

func TestStore_SaveLoadClear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "token")
	s := New(path)

	_, err := s.Load()
	assert.ErrorIs(t, err, ErrNoToken)

	tok := signed(t, time.Now().Add(time.Hour))
	require.NoError(t, s.Save(tok))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	// A fresh store reads the file back.
	got, err := New(path).Token()
	require.NoError(t, err)
	assert.Equal(t, tok, got)

	require.NoError(t, s.Clear())
	_, err = s.Load()
	assert.ErrorIs(t, err, ErrNoToken)
	require.NoError(t, s.Clear(), "clearing twice is fine")
}

func TestStore_Token(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("Expired", func(t *testing.T) {
		s := New(filepath.Join(t.TempDir(), "token"))
		s.now = func() time.Time { return now }
		require.NoError(t, s.Save(signed(t, now.Add(-time.Minute))))
		_, err := s.Token()
		assert.ErrorIs(t, err, ErrTokenExpired)
	})

	t.Run("Valid", func(t *testing.T) {
		s := New(filepath.Join(t.TempDir(), "token"))
		s.now = func() time.Time { return now }
		require.NoError(t, s.Save(signed(t, now.Add(time.Hour))))
		_, err := s.Token()
		assert.NoError(t, err)
	})

	t.Run("Garbage", func(t *testing.T) {
		s := New(filepath.Join(t.TempDir(), "token"))
		require.NoError(t, s.Save("not-a-jwt"))
		_, err := s.Token()
		assert.Error(t, err)
	})

	t.Run("EmptyRejected", func(t *testing.T) {
		s := New(filepath.Join(t.TempDir(), "token"))
		assert.ErrorIs(t, s.Save("  "), ErrNoToken)
	})
}
