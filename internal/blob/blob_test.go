package blob

import (
	"context"
	"testing"

	"github.com/dvloznov/finance-health/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFSRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewFS(t.TempDir())

	require.NoError(t, s.Put(ctx, "sessions/a/report.json", []byte(`{"v":1}`)))
	require.NoError(t, s.Put(ctx, "sessions/a/originals/jan.csv", []byte("date,amount")))
	require.NoError(t, s.Put(ctx, "sessions/b/report.json", []byte(`{}`)))

	data, err := s.Get(ctx, "sessions/a/report.json")
	require.NoError(t, err)
	assert.Equal(t, `{"v":1}`, string(data))

	// overwrite
	require.NoError(t, s.Put(ctx, "sessions/a/report.json", []byte(`{"v":2}`)))
	data, err = s.Get(ctx, "sessions/a/report.json")
	require.NoError(t, err)
	assert.Equal(t, `{"v":2}`, string(data))

	keys, err := s.List(ctx, "sessions/a/")
	require.NoError(t, err)
	assert.Equal(t, []string{"sessions/a/originals/jan.csv", "sessions/a/report.json"}, keys)

	require.NoError(t, s.Delete(ctx, "sessions/a/report.json"))
	require.NoError(t, s.Delete(ctx, "sessions/a/report.json"))
	_, err = s.Get(ctx, "sessions/a/report.json")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFSListMissingRoot(t *testing.T) {
	s := NewFS(t.TempDir() + "/nope")
	keys, err := s.List(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestFSRejectsEscapingKeys(t *testing.T) {
	s := NewFS(t.TempDir())
	for _, key := range []string{"", "..", "../etc/passwd", "a/../../b"} {
		assert.Error(t, s.Put(context.Background(), key, []byte("x")), key)
	}
}

func TestNewUnknownBackend(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.Blob = "s3"
	_, err := New(context.Background(), cfg)
	assert.Error(t, err)
}
