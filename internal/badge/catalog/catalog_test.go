package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "badgeworks/pkg/domain"
)

func TestDescribe(t *testing.T) {
	c, err := New(map[string]string{"CS101": "Intro to CS", "NET200": "Networking"})
	require.NoError(t, err)

	t.Run("known code returns its exact description", func(t *testing.T) {
		assert.Equal(t, "Intro to CS", c.Describe("CS101"))
		assert.True(t, c.Contains("CS101"))
	})

	t.Run("unknown code echoes the code", func(t *testing.T) {
		assert.Equal(t, "ZZ999", c.Describe("ZZ999"))
		assert.False(t, c.Contains("ZZ999"))
	})

	t.Run("lookups are repeatable", func(t *testing.T) {
		first := c.Describe("NET200")
		second := c.Describe("NET200")
		assert.Equal(t, first, second)
		assert.Equal(t, 2, c.Len())
	})

	t.Run("nil catalog echoes", func(t *testing.T) {
		var nilCatalog *Catalog
		assert.Equal(t, "CS101", nilCatalog.Describe("CS101"))
		assert.False(t, nilCatalog.Contains("CS101"))
	})
}

func TestNewCopiesInput(t *testing.T) {
	src := map[string]string{"CS101": "Intro to CS"}
	c, err := New(src)
	require.NoError(t, err)

	src["CS101"] = "changed"
	src["NEW"] = "added"
	assert.Equal(t, "Intro to CS", c.Describe("CS101"))
	assert.False(t, c.Contains("NEW"))
}

func TestNewRejectsBlankCode(t *testing.T) {
	_, err := New(map[string]string{" ": "blank"})
	assert.Error(t, err)
}

func TestParse(t *testing.T) {
	t.Run("yaml", func(t *testing.T) {
		c, err := Parse([]byte("CS101: Intro to CS\nNET200: Networking Fundamentals\n"))
		require.NoError(t, err)
		assert.Equal(t, "Networking Fundamentals", c.Describe("NET200"))
	})

	t.Run("json", func(t *testing.T) {
		c, err := Parse([]byte(`{"CS101": "Intro to CS"}`))
		require.NoError(t, err)
		assert.Equal(t, "Intro to CS", c.Describe("CS101"))
	})

	t.Run("empty document", func(t *testing.T) {
		_, err := Parse([]byte(""))
		assert.Error(t, err)
	})

	t.Run("nested values are rejected", func(t *testing.T) {
		_, err := Parse([]byte("CS101:\n  title: Intro\n"))
		assert.Error(t, err)
	})
}

func TestLoadAndEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte("B: second\nA: first\n"), 0o600))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []Entry{
		{Code: id.KeyCode("A"), Description: "first"},
		{Code: id.KeyCode("B"), Description: "second"},
	}, c.Entries())

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
