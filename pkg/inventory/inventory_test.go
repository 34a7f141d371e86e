package inventory

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlexanderGrooff/confgen/pkg/errors"
)

func writeInventory(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hosts.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadGroupClosure(t *testing.T) {
	path := writeInventory(t, `
all:
  children:
    web:
      hosts:
        h1:
        h2:
    db:
      hosts:
        h3:
    prod:
      children:
        web:
`)

	inv, err := Load(path)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"h1", "h2", "h3"}, inv.AllHosts())
	assert.Equal(t, []string{"all", "prod", "web"}, inv.GroupsOf("h1"))
	assert.Equal(t, []string{"all", "db"}, inv.GroupsOf("h3"))
	assert.ElementsMatch(t, []string{"h1", "h2"}, inv.HostsOf("prod"))
	assert.ElementsMatch(t, []string{"h1", "h2", "h3"}, inv.HostsOf("all"))

	assert.True(t, inv.HasGroup("web"))
	assert.True(t, inv.HasHost("h2"))
	assert.False(t, inv.HasGroup("h2"))
	assert.False(t, inv.HasHost("web"))
}

func TestLoadClosureIsMemoized(t *testing.T) {
	path := writeInventory(t, `
all:
  children:
    web:
      hosts:
        h1:
`)

	inv, err := Load(path)
	require.NoError(t, err)

	first := inv.GroupsOf("h1")
	second := inv.GroupsOf("h1")
	assert.Equal(t, first, second)
}

func TestLoadHostsListForm(t *testing.T) {
	path := writeInventory(t, `
all:
  children:
    web:
      hosts:
        - h1
        - h2
`)

	inv, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"h1", "h2"}, inv.HostsOf("web"))
}

func TestLoadRejectsSelfReferencingGroup(t *testing.T) {
	path := writeInventory(t, `
all:
  children:
    web:
      children:
        - web
`)

	_, err := Load(path)
	require.Error(t, err)
	var parseErr *errors.ParseError
	assert.ErrorAs(t, err, &parseErr)
	assert.Contains(t, err.Error(), "web")
}

func TestLoadRejectsDeepGroupCycle(t *testing.T) {
	path := writeInventory(t, `
a:
  children:
    - b
b:
  children:
    - c
c:
  children:
    - a
`)

	_, err := Load(path)
	require.Error(t, err)
	var parseErr *errors.ParseError
	assert.ErrorAs(t, err, &parseErr)
	assert.Contains(t, err.Error(), "cycle")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	var parseErr *errors.ParseError
	assert.ErrorAs(t, err, &parseErr)
}

func TestLoadEmptyInventory(t *testing.T) {
	path := writeInventory(t, "")
	_, err := Load(path)
	var parseErr *errors.ParseError
	assert.ErrorAs(t, err, &parseErr)
}

func TestLoadMalformedInventory(t *testing.T) {
	path := writeInventory(t, "all: [unclosed")
	_, err := Load(path)
	var parseErr *errors.ParseError
	assert.ErrorAs(t, err, &parseErr)
}
