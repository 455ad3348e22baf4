package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ytget/synqed/internal/model"
)

func TestStore_LoadMissing(t *testing.T) {
	s := NewStore(t.TempDir())

	cfg, err := s.Load()
	require.NoError(t, err)
	assert.Nil(t, cfg)
}

func TestStore_SaveLoadDelete(t *testing.T) {
	s := NewStore(t.TempDir())

	want := model.Config{LibraryPath: "/music", AutoUpdate: true, YtDlpVersion: "2025.01.15"}
	require.NoError(t, s.Save(want))

	got, err := s.Load()
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want, *got)

	want.AutoUpdate = false
	require.NoError(t, s.Save(want))
	got, err = s.Load()
	require.NoError(t, err)
	assert.False(t, got.AutoUpdate)

	require.NoError(t, s.Delete())
	require.NoError(t, s.Delete())
	got, err = s.Load()
	require.NoError(t, err)
	assert.Nil(t, got)
}
