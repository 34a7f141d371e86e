package roles

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/AlexanderGrooff/confgen/pkg/common"
	"github.com/AlexanderGrooff/confgen/pkg/errors"
)

// SecretAttribute is the custom argument_specs property that routes a
// variable into the secrets artifact instead of the normal one.
const SecretAttribute = "x-secret"

// Variable is one declared role variable, annotated from the role's
// argument spec where available.
type Variable struct {
	Name        string
	Role        string
	Type        string
	Description string
	Required    bool
	Default     interface{}
	HasDefault  bool
	Secret      bool
}

// Role holds a role's documentation and declared variables.
type Role struct {
	Name             string
	ShortDescription string
	Description      string
	Variables        []Variable
}

// HasSecrets reports whether any of the role's variables is secret-flagged.
func (r *Role) HasSecrets() bool {
	for _, v := range r.Variables {
		if v.Secret {
			return true
		}
	}
	return false
}

type cachedRole struct {
	role *Role
	err  error
}

// Store loads role metadata from a colon-delimited roles search path,
// caching results so each role is read from disk at most once per run.
type Store struct {
	projectRoot string
	paths       []string

	roleCache map[string]cachedRole
	depsCache map[string]depsResult
}

type depsResult struct {
	deps    []string
	dynamic []string
	err     error
}

// NewStore creates a role store rooted at the project directory. rolesPath
// is colon-delimited like ANSIBLE_ROLES_PATH; empty means "roles".
func NewStore(projectRoot, rolesPath string) *Store {
	return &Store{
		projectRoot: projectRoot,
		paths:       splitRolesPaths(rolesPath),
		roleCache:   make(map[string]cachedRole),
		depsCache:   make(map[string]depsResult),
	}
}

// splitRolesPaths splits a colon-delimited roles_path string into individual paths
func splitRolesPaths(rolesPaths string) []string {
	if rolesPaths == "" {
		return []string{"roles"}
	}
	paths := strings.Split(rolesPaths, ":")
	// Filter out empty paths
	var result []string
	for _, path := range paths {
		if strings.TrimSpace(path) != "" {
			result = append(result, strings.TrimSpace(path))
		}
	}
	if len(result) == 0 {
		return []string{"roles"}
	}
	return result
}

// Dir returns the role's directory, searching every roles path entry.
func (s *Store) Dir(name string) (string, bool) {
	for _, rolesPath := range s.paths {
		var dir string
		if filepath.IsAbs(rolesPath) {
			dir = filepath.Join(rolesPath, name)
		} else {
			dir = filepath.Join(s.projectRoot, rolesPath, name)
		}
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return dir, true
		}
	}
	return "", false
}

// readRoleFile reads <roleDir>/<section>/main.yml (or main.yaml). A missing
// file is not an error: the section is optional.
func readRoleFile(roleDir, section string) (string, []byte, error) {
	for _, base := range []string{"main.yml", "main.yaml"} {
		path := filepath.Join(roleDir, section, base)
		data, err := os.ReadFile(path)
		if err == nil {
			return path, data, nil
		}
		if !os.IsNotExist(err) {
			return path, nil, err
		}
	}
	return "", nil, nil
}

// Dependencies returns the role names declared in meta/main.yml, plus any
// entries that could not be resolved statically (templated names), which the
// caller surfaces as skipped inclusions. Only unconditional, file-literal
// dependencies are honored.
func (s *Store) Dependencies(name string) ([]string, []string, error) {
	if cached, ok := s.depsCache[name]; ok {
		return cached.deps, cached.dynamic, cached.err
	}
	deps, dynamic, err := s.loadDependencies(name)
	s.depsCache[name] = depsResult{deps: deps, dynamic: dynamic, err: err}
	return deps, dynamic, err
}

func (s *Store) loadDependencies(name string) ([]string, []string, error) {
	dir, ok := s.Dir(name)
	if !ok {
		common.LogWarn("Failed to find role directory", map[string]interface{}{
			"role": name,
		})
		return nil, nil, nil
	}

	path, data, err := readRoleFile(dir, "meta")
	if err != nil {
		return nil, nil, errors.NewParseError(path, err)
	}
	if data == nil {
		return nil, nil, nil
	}

	var meta struct {
		Dependencies []interface{} `yaml:"dependencies"`
	}
	if err := yaml.Unmarshal(data, &meta); err != nil {
		return nil, nil, errors.NewParseError(path, err)
	}

	var deps, dynamic []string
	for _, entry := range meta.Dependencies {
		var depName string
		switch dep := entry.(type) {
		case string:
			depName = dep
		case map[string]interface{}:
			if n, ok := dep["role"].(string); ok {
				depName = n
			} else if n, ok := dep["name"].(string); ok {
				depName = n
			}
			if _, conditional := dep["when"]; conditional {
				dynamic = append(dynamic, depName)
				continue
			}
		}
		if depName == "" {
			return nil, nil, errors.NewParseError(path, fmt.Errorf("invalid dependency entry %v", entry))
		}
		if common.IsTemplated(depName) {
			dynamic = append(dynamic, depName)
			continue
		}
		deps = append(deps, depName)
	}
	return deps, dynamic, nil
}

// Load returns the role's declared variables and documentation. A role with
// no variable files contributes zero variables; an unparseable variable file
// yields a *errors.RoleVariableParseError and the role contributes nothing.
func (s *Store) Load(name string) (*Role, error) {
	if cached, ok := s.roleCache[name]; ok {
		return cached.role, cached.err
	}
	role, err := s.loadRole(name)
	s.roleCache[name] = cachedRole{role: role, err: err}
	return role, err
}

func (s *Store) loadRole(name string) (*Role, error) {
	role := &Role{Name: name}

	dir, ok := s.Dir(name)
	if !ok {
		return role, nil
	}

	defaultsPath, defaultsData, err := readRoleFile(dir, "defaults")
	if err != nil {
		return nil, errors.NewRoleVariableParseError(name, defaultsPath, err)
	}
	defaults := map[string]interface{}{}
	if defaultsData != nil {
		if err := yaml.Unmarshal(defaultsData, &defaults); err != nil {
			return nil, errors.NewRoleVariableParseError(name, defaultsPath, err)
		}
	}

	specsPath, specsData, err := readArgumentSpecs(dir)
	if err != nil {
		return nil, errors.NewRoleVariableParseError(name, specsPath, err)
	}

	options := map[string]interface{}{}
	if specsData != nil {
		var specs map[string]interface{}
		if err := yaml.Unmarshal(specsData, &specs); err != nil {
			return nil, errors.NewRoleVariableParseError(name, specsPath, err)
		}
		main := dig(specs, "argument_specs", "main")
		if main != nil {
			role.ShortDescription = asText(main["short_description"])
			role.Description = asText(main["description"])
			if opts, ok := main["options"].(map[string]interface{}); ok {
				options = opts
			}
		}
	}

	// Spec'd options first, then defaults-only variables, each sorted by
	// name so repeated runs produce identical artifacts.
	optionNames := make([]string, 0, len(options))
	for n := range options {
		optionNames = append(optionNames, n)
	}
	sort.Strings(optionNames)
	for _, varName := range optionNames {
		v := Variable{Name: varName, Role: name}
		if meta, ok := options[varName].(map[string]interface{}); ok {
			v.Type, _ = meta["type"].(string)
			v.Description = asText(meta["description"])
			v.Required, _ = meta["required"].(bool)
			v.Secret, _ = meta[SecretAttribute].(bool)
			if def, ok := meta["default"]; ok {
				v.Default = def
				v.HasDefault = true
			}
		}
		if def, ok := defaults[varName]; ok {
			v.Default = def
			v.HasDefault = true
		}
		role.Variables = append(role.Variables, v)
	}

	defaultNames := make([]string, 0, len(defaults))
	for n := range defaults {
		if _, specd := options[n]; !specd {
			defaultNames = append(defaultNames, n)
		}
	}
	sort.Strings(defaultNames)
	for _, varName := range defaultNames {
		role.Variables = append(role.Variables, Variable{
			Name:       varName,
			Role:       name,
			Default:    defaults[varName],
			HasDefault: true,
		})
	}

	return role, nil
}

// readArgumentSpecs reads <roleDir>/meta/argument_specs.yml (or .yaml).
func readArgumentSpecs(roleDir string) (string, []byte, error) {
	for _, base := range []string{"argument_specs.yml", "argument_specs.yaml"} {
		path := filepath.Join(roleDir, "meta", base)
		data, err := os.ReadFile(path)
		if err == nil {
			return path, data, nil
		}
		if !os.IsNotExist(err) {
			return path, nil, err
		}
	}
	return "", nil, nil
}

func dig(m map[string]interface{}, keys ...string) map[string]interface{} {
	current := m
	for _, key := range keys {
		next, ok := current[key].(map[string]interface{})
		if !ok {
			return nil
		}
		current = next
	}
	return current
}

// asText flattens a description value, which Ansible allows to be either a
// string or a list of lines.
func asText(v interface{}) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case []interface{}:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			if s, ok := item.(string); ok {
				parts = append(parts, strings.TrimSpace(s))
			}
		}
		return strings.Join(parts, " ")
	default:
		return ""
	}
}
