package storage

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/storedir/store-directory/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCleanKey(t *testing.T) {
	tests := []struct {
		key     string
		want    string
		wantErr bool
	}{
		{key: "exports/stores.json", want: "exports/stores.json"},
		{key: "exports//a/../b.json", want: "exports/b.json"},
		{key: `exports\win.json`, want: "exports/win.json"},
		{key: "", wantErr: true},
		{key: "/etc/passwd", wantErr: true},
		{key: "../outside.json", wantErr: true},
		{key: "exports/../../outside.json", wantErr: true},
		{key: ".", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got, err := CleanKey(tt.key)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidKey)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLocalStorage_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	size, err := s.Upload(ctx, "exports/stores-1.json", "application/json", strings.NewReader(`{"count":0}`))
	require.NoError(t, err)
	assert.Equal(t, int64(11), size)

	rc, err := s.Download(ctx, "exports/stores-1.json")
	require.NoError(t, err)
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, `{"count":0}`, string(body))

	_, err = s.Upload(ctx, "exports/stores-0.json", "application/json", strings.NewReader("{}"))
	require.NoError(t, err)
	_, err = s.Upload(ctx, "other/readme.txt", "text/plain", strings.NewReader("hi"))
	require.NoError(t, err)

	keys, err := s.List(ctx, "exports/")
	require.NoError(t, err)
	assert.Equal(t, []string{"exports/stores-0.json", "exports/stores-1.json"}, keys)

	require.NoError(t, s.Delete(ctx, "exports/stores-0.json"))
	require.NoError(t, s.Delete(ctx, "exports/stores-0.json"), "deleting twice is fine")

	_, err = s.Download(ctx, "exports/stores-0.json")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.Upload(ctx, "../escape.json", "application/json", strings.NewReader("{}"))
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestNewStorage(t *testing.T) {
	s, err := NewStorage(&config.StorageConfig{Mode: "local", LocalBasePath: t.TempDir()}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &LocalStorage{}, s)

	_, err = NewStorage(&config.StorageConfig{Mode: "azure"}, zap.NewNop())
	assert.Error(t, err)

	_, err = NewStorage(&config.StorageConfig{Mode: "ftp"}, zap.NewNop())
	assert.Error(t, err)
}
