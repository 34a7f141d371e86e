package generator

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/AlexanderGrooff/confgen/pkg/common"
	"github.com/AlexanderGrooff/confgen/pkg/inventory"
	"github.com/AlexanderGrooff/confgen/pkg/roles"
	"github.com/AlexanderGrooff/confgen/pkg/vars"
)

// SecretFileSuffix distinguishes the secrets artifact from the normal one.
const SecretFileSuffix = ".secrets"

const bannerWidth = 64

// Writer emits example configuration artifacts from collected variable
// buckets. Each target gets a normal file and a secrets file under its own
// directory; artifacts are replaced atomically so a failed run never leaves
// a truncated file behind.
type Writer struct {
	outputDir string
}

// NewWriter creates a writer rooted at the output directory
func NewWriter(outputDir string) *Writer {
	return &Writer{outputDir: outputDir}
}

// Write emits both artifacts for every bucket and returns the written
// paths.
func (w *Writer) Write(result *vars.Result) ([]string, error) {
	var written []string
	for _, bucket := range result.Buckets {
		for _, secrets := range []bool{false, true} {
			path := w.artifactPath(bucket.Target, secrets)
			content := renderArtifact(bucket, secrets)
			if err := w.writeArtifact(path, content); err != nil {
				return written, err
			}
			common.LogInfo("Generated example config", map[string]interface{}{
				"target": bucket.Target,
				"path":   path,
			})
			written = append(written, path)
		}
	}
	return written, nil
}

// artifactPath builds <outputDir>/<target>/.<target>[.secrets].yml.example.
// The leading dot keeps Ansible itself from picking the example up.
func (w *Writer) artifactPath(target string, secrets bool) string {
	stem := target
	if secrets {
		stem += SecretFileSuffix
	}
	return filepath.Join(w.outputDir, target, fmt.Sprintf(".%s.yml.example", stem))
}

// writeArtifact atomically replaces path with content. The content is
// written to a temp file in the same directory first, then renamed over
// the destination.
func (w *Writer) writeArtifact(path, content string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}

	if old, err := os.ReadFile(path); err == nil && string(old) != content {
		if diff, derr := GenerateUnifiedDiff(path, string(old), content); derr == nil {
			common.LogDebug("Regenerated artifact differs from existing file", map[string]interface{}{
				"path": path,
				"diff": diff,
			})
		}
	}

	tmp, err := os.CreateTemp(dir, ".confgen-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file in %s: %w", dir, err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to chmod %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

// renderArtifact produces the full text of one artifact: a header, then a
// commented block per role in resolution order, variables sorted by name
// within each role.
func renderArtifact(bucket *vars.Bucket, secrets bool) string {
	lines := []string{
		"---",
		"# Autogenerated example config from roles argument_specs",
	}
	if secrets {
		lines = append(lines,
			"# SECRETS: This file lists only secret variables. Treat it as an index of values",
			"# that belong in a vault or secret manager, not in plain host_vars.")
	}
	if bucket.Target == inventory.AllGroup {
		lines = append(lines,
			"# These are the shared configs applied to all hosts. Any value here can be",
			"# overridden in a specific host config. Use the 'shared' tag in the main",
			"# playbook to make configs appear here.")
	}

	for _, rv := range bucket.Roles {
		// The secrets file skips roles that have nothing secret to say.
		if secrets && len(rv.Secret) == 0 {
			continue
		}
		lines = append(lines, renderRole(rv, secrets)...)
	}

	return strings.Join(lines, "\n") + "\n"
}

func renderRole(rv vars.RoleVars, secrets bool) []string {
	role := rv.Role

	header := fmt.Sprintf("### Role: %s", role.Name)
	if role.ShortDescription != "" {
		header += fmt.Sprintf(" - %s", role.ShortDescription)
	}
	lines := []string{"", header}
	if role.Description != "" {
		lines = append(lines, fmt.Sprintf("###     %s", role.Description))
	}
	lines = append(lines, strings.Repeat("#", bannerWidth), "")

	variables := rv.Normal
	if secrets {
		variables = rv.Secret
	}
	sorted := make([]roles.Variable, len(variables))
	copy(sorted, variables)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	if len(sorted) == 0 && !secrets {
		lines = append(lines, "(no options)")
	}

	for _, v := range sorted {
		requirement := "Optional"
		if v.Required {
			requirement = "REQUIRED"
		}
		lines = append(lines, fmt.Sprintf("#  (%s) %s", requirement, v.Description))
		if v.Type != "" {
			lines = append(lines, fmt.Sprintf("#  Type: %s", v.Type))
		}
		if v.HasDefault {
			lines = append(lines, fmt.Sprintf("#  Default: %v", v.Default))
		}
		lines = append(lines, renderAssignment(v), "")
	}

	if !secrets && len(rv.Secret) > 0 {
		lines = append(lines, fmt.Sprintf(
			"# Note: This role has secret variables. See the corresponding '%s' file for the list of those variables.",
			SecretFileSuffix))
	}
	lines = append(lines, "")
	return lines
}

// renderAssignment renders "name: value" with the default YAML-encoded, or
// an empty placeholder when the variable has no default.
func renderAssignment(v roles.Variable) string {
	if !v.HasDefault {
		return fmt.Sprintf("%s:", v.Name)
	}
	encoded, err := yaml.Marshal(map[string]interface{}{v.Name: v.Default})
	if err != nil {
		return fmt.Sprintf("%s:", v.Name)
	}
	return strings.TrimRight(string(encoded), "\n")
}
