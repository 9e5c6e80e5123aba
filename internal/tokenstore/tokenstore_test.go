package tokenstore_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GV888/easy-template-mcp/internal/easytemplate"
	"github.com/GV888/easy-template-mcp/internal/tokenstore"
)

var sample = easytemplate.Session{
	AccessToken:        "access-abc",
	RefreshToken:       "refresh-xyz",
	AccessTokenExpiry:  1772370000000,
	RefreshTokenExpiry: 1772452800000,
}

func TestStores_RoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		store func(t *testing.T) easytemplate.TokenStore
	}{
		{
			name: "memory",
			store: func(*testing.T) easytemplate.TokenStore {
				return tokenstore.NewMemory()
			},
		},
		{
			name: "file",
			store: func(t *testing.T) easytemplate.TokenStore {
				return tokenstore.NewFile(filepath.Join(t.TempDir(), "nested", "token.json"))
			},
		},
		{
			name: "encrypted file",
			store: func(t *testing.T) easytemplate.TokenStore {
				s, err := tokenstore.NewEncryptedFile(
					filepath.Join(t.TempDir(), "token.age"),
					"correct horse",
					tokenstore.WithWorkFactor(10),
				)
				require.NoError(t, err)
				return s
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctx := context.Background()
			store := tt.store(t)

			empty, err := store.Load(ctx)
			require.NoError(t, err)
			assert.Nil(t, empty)

			require.NoError(t, store.Save(ctx, sample))
			got, err := store.Load(ctx)
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, sample, *got)

			rotated := sample
			rotated.AccessToken = "access-2"
			require.NoError(t, store.Save(ctx, rotated))
			got, err = store.Load(ctx)
			require.NoError(t, err)
			assert.Equal(t, rotated, *got)
		})
	}
}

func TestFile_RecordFormat(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "token.json")
	store := tokenstore.NewFile(path)
	require.NoError(t, store.Save(context.Background(), sample))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"accessToken": "access-abc",
		"refreshToken": "refresh-xyz",
		"accessTokenExpiry": 1772370000000,
		"refreshTokenExpiry": 1772452800000
	}`, string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(tokenstore.FilePerms), info.Mode().Perm())

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestFile_CorruptRecord(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "token.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := tokenstore.NewFile(path).Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decoding")
}

func TestFile_Clear(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "token.json")
	store := tokenstore.NewFile(path)
	require.NoError(t, store.Save(context.Background(), sample))

	require.NoError(t, store.Clear())
	require.NoError(t, store.Clear())

	got, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestEncryptedFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "token.age")
	store, err := tokenstore.NewEncryptedFile(path, "s3cret", tokenstore.WithWorkFactor(10))
	require.NoError(t, err)
	require.NoError(t, store.Save(context.Background(), sample))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.False(t, bytes.Contains(data, []byte("access-abc")), "token must not be stored in clear text")
	assert.True(t, bytes.HasPrefix(data, []byte("age-encryption.org/v1")))

	wrong, err := tokenstore.NewEncryptedFile(path, "wrong", tokenstore.WithWorkFactor(10))
	require.NoError(t, err)
	_, err = wrong.Load(context.Background())
	require.Error(t, err)

	_, err = tokenstore.NewEncryptedFile(path, "")
	require.ErrorIs(t, err, tokenstore.ErrNoPassphrase)
}

func TestClient_RestoresFromFileStore(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "token.json")
	store := tokenstore.NewFile(path)
	require.NoError(t, store.Save(context.Background(), sample))

	c := easytemplate.New(
		easytemplate.WithTokenStore(store),
		easytemplate.WithNowFunc(func() time.Time { return time.UnixMilli(sample.AccessTokenExpiry - 3600_000) }),
	)
	require.True(t, c.Restore(context.Background()))
	assert.Equal(t, sample, c.Session())
	assert.Equal(t, easytemplate.StateValid, c.State())
}
