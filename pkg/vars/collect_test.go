package vars

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlexanderGrooff/confgen/pkg/compile"
	"github.com/AlexanderGrooff/confgen/pkg/inventory"
	"github.com/AlexanderGrooff/confgen/pkg/roles"
)

func writeRoleDefaults(t *testing.T, projectRoot, role, content string) {
	t.Helper()
	path := filepath.Join(projectRoot, "roles", role, "defaults", "main.yml")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func writeRoleSpecs(t *testing.T, projectRoot, role, content string) {
	t.Helper()
	path := filepath.Join(projectRoot, "roles", role, "meta", "argument_specs.yml")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func bucketFor(t *testing.T, result *Result, target string) *Bucket {
	t.Helper()
	for _, b := range result.Buckets {
		if b.Target == target {
			return b
		}
	}
	t.Fatalf("no bucket for target %q", target)
	return nil
}

func variableNames(vs []roles.Variable) []string {
	names := make([]string, 0, len(vs))
	for _, v := range vs {
		names = append(names, v.Name)
	}
	return names
}

func TestCollectFirstDeclarationWins(t *testing.T) {
	projectRoot := t.TempDir()
	writeRoleDefaults(t, projectRoot, "first", "shared_var: from_first\nown_a: 1\n")
	writeRoleDefaults(t, projectRoot, "second", "shared_var: from_second\nown_b: 2\n")

	res := compile.NewResolution()
	res.Append("h1", "first", "second")

	result := Collect(res, roles.NewStore(projectRoot, ""))
	bucket := bucketFor(t, result, "h1")
	require.Len(t, bucket.Roles, 2)

	assert.Equal(t, []string{"own_a", "shared_var"}, variableNames(bucket.Roles[0].Normal))
	// second's shared_var was claimed by first and must not reappear.
	assert.Equal(t, []string{"own_b"}, variableNames(bucket.Roles[1].Normal))

	for _, rv := range bucket.Roles[0].Normal {
		if rv.Name == "shared_var" {
			assert.Equal(t, "from_first", rv.Default)
		}
	}
}

func TestCollectSecretRouting(t *testing.T) {
	projectRoot := t.TempDir()
	writeRoleSpecs(t, projectRoot, "db", `
argument_specs:
  main:
    options:
      password:
        type: str
        x-secret: true
      port:
        type: int
        default: 5432
`)

	res := compile.NewResolution()
	res.Append("h1", "db")

	result := Collect(res, roles.NewStore(projectRoot, ""))
	bucket := bucketFor(t, result, "h1")
	require.Len(t, bucket.Roles, 1)

	assert.Equal(t, []string{"port"}, variableNames(bucket.Roles[0].Normal))
	assert.Equal(t, []string{"password"}, variableNames(bucket.Roles[0].Secret))
	assert.True(t, bucket.HasSecrets())
}

func TestCollectUnionProperty(t *testing.T) {
	projectRoot := t.TempDir()
	writeRoleDefaults(t, projectRoot, "web", "web_port: 80\nweb_root: /srv\n")
	writeRoleDefaults(t, projectRoot, "backup", "backup_dir: /backups\n")

	res := compile.NewResolution()
	res.Append("h1", "web")
	res.Append(inventory.AllGroup, "backup")

	result := Collect(res, roles.NewStore(projectRoot, ""))

	// The per-host bucket and the shared bucket together hold every
	// declared variable exactly once.
	union := map[string]int{}
	for _, target := range []string{"h1", inventory.AllGroup} {
		bucket := bucketFor(t, result, target)
		for _, rv := range bucket.Roles {
			for _, name := range variableNames(rv.Normal) {
				union[name]++
			}
			for _, name := range variableNames(rv.Secret) {
				union[name]++
			}
		}
	}
	assert.Equal(t, map[string]int{"web_port": 1, "web_root": 1, "backup_dir": 1}, union)
}

func TestCollectParseFailureIsSoftAndReportedOnce(t *testing.T) {
	projectRoot := t.TempDir()
	writeRoleDefaults(t, projectRoot, "broken", "key: [unclosed")
	writeRoleDefaults(t, projectRoot, "healthy", "ok: true\n")

	res := compile.NewResolution()
	res.Append("h1", "broken", "healthy")
	res.Append("h2", "broken")

	result := Collect(res, roles.NewStore(projectRoot, ""))

	// The broken role contributes nothing, the healthy one is unaffected,
	// and the failure is reported once even though two targets hit it.
	bucket := bucketFor(t, result, "h1")
	require.Len(t, bucket.Roles, 1)
	assert.Equal(t, "healthy", bucket.Roles[0].Role.Name)

	require.Len(t, result.Failures, 1)
	assert.Equal(t, "broken", result.Failures[0].Role)
}

func TestCollectEmptyTargetGetsBucket(t *testing.T) {
	res := compile.NewResolution()
	res.EnsureTarget("idle")

	result := Collect(res, roles.NewStore(t.TempDir(), ""))
	bucket := bucketFor(t, result, "idle")
	assert.Empty(t, bucket.Roles)
	assert.False(t, bucket.HasSecrets())
}
