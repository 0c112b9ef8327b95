package prefs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMissingFile(t *testing.T) {
	p := LoadFrom(filepath.Join(t.TempDir(), "nope.json"))
	assert.Equal(t, 200.0, p.Float(KeyWidthMM, 200))
	assert.Equal(t, 1800, p.Int(KeyMaxDim, 1800))
	assert.Equal(t, "", p.String("last_source"))
	assert.True(t, p.Bool(KeyGroupLayers, true))
}

func TestSaveReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", prefsFile)
	p := LoadFrom(path)
	p.SetFloat(KeyWidthMM, 120.5)
	p.SetInt(KeyMaxDim, 1024)
	p.SetString("last_source", "art.svg")
	p.SetBool(KeyGroupLayers, true)
	require.NoError(t, p.Save())

	q := LoadFrom(path)
	assert.Equal(t, path, q.Path())
	assert.Equal(t, 120.5, q.Float(KeyWidthMM, 0))
	assert.Equal(t, 1024, q.Int(KeyMaxDim, 0))
	assert.Equal(t, "art.svg", q.String("last_source"))
	assert.True(t, q.Bool(KeyGroupLayers, false))
}

func TestWrongTypes(t *testing.T) {
	path := filepath.Join(t.TempDir(), prefsFile)
	require.NoError(t, os.WriteFile(path, []byte(`{"width_mm":"wide","group_layers":1}`), 0o644))

	p := LoadFrom(path)
	assert.Equal(t, 7.0, p.Float(KeyWidthMM, 7))
	assert.False(t, p.Bool(KeyGroupLayers, false))
}

func TestDefaultPath(t *testing.T) {
	assert.Equal(t, filepath.Join(appDir, prefsFile), filepath.Join(filepath.Base(filepath.Dir(DefaultPath())), filepath.Base(DefaultPath())))
}
