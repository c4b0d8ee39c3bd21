package cliconfig

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsEmptyContext(t *testing.T) {
	ctx, err := Load(filepath.Join(t.TempDir(), "config.json"))
	require.NoError(t, err)
	assert.Equal(t, &Context{}, ctx)
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	ctx := &Context{ServerURL: "http://localhost:8080", Token: "tok", Username: "alice"}
	require.NoError(t, ctx.Save(path))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ctx, got)
}
