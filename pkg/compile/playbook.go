package compile

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/AlexanderGrooff/confgen/pkg/common"
	"github.com/AlexanderGrooff/confgen/pkg/errors"
)

// SharedTag marks a play whose roles are promoted to the shared bucket
// instead of being duplicated into every targeted host's config.
const SharedTag = "shared"

// TaskBlock is one play of the root playbook, reduced to what static
// resolution needs: its target selectors, its role list and the shared
// marker.
type TaskBlock struct {
	Name   string
	Hosts  []string // raw selectors; empty means every host
	Roles  []string
	Shared bool
}

// Skipped records an inclusion that could not be resolved statically.
// These are surfaced in the end-of-run summary so the operator knows a
// role may be missing from the generated configs.
type Skipped struct {
	File   string
	Block  string
	Reason string
}

// inclusionDirectives are task keywords that pull in tasks or roles at
// runtime. None of them can be followed statically.
var inclusionDirectives = []string{
	"include",
	"include_tasks",
	"import_tasks",
	"include_role",
	"import_role",
	"import_playbook",
}

// LoadPlaybook parses the root playbook into ordered TaskBlocks. Only
// file-literal, unconditional role listings are honored; everything else
// becomes a Skipped record. A malformed file yields a *errors.ParseError.
func LoadPlaybook(path string) ([]TaskBlock, []Skipped, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, errors.NewParseError(path, err)
	}

	var plays []map[string]interface{}
	if err := yaml.Unmarshal(data, &plays); err != nil {
		return nil, nil, errors.NewParseError(path, err)
	}
	if len(plays) == 0 {
		return nil, nil, errors.NewParseError(path, fmt.Errorf("playbook is empty"))
	}

	var blocks []TaskBlock
	var skipped []Skipped

	for i, play := range plays {
		blockName := fmt.Sprintf("play #%d", i+1)
		if name, ok := play["name"].(string); ok && name != "" {
			blockName = name
		}

		if _, hasHosts := play["hosts"]; !hasHosts {
			// Playbook-level entries without hosts are either inclusion
			// directives (import_playbook) or malformed.
			if directive := findDirective(play); directive != "" {
				skipped = append(skipped, Skipped{
					File:   path,
					Block:  blockName,
					Reason: fmt.Sprintf("unsupported inclusion mechanism %q", directive),
				})
				continue
			}
			return nil, nil, errors.NewParseError(path, fmt.Errorf("%s: missing 'hosts' field", blockName))
		}

		block := TaskBlock{Name: blockName}

		hosts := common.ToStringSlice(play["hosts"])
		if templated := firstTemplated(hosts); templated != "" {
			skipped = append(skipped, Skipped{
				File:   path,
				Block:  blockName,
				Reason: fmt.Sprintf("templated hosts selector %q", templated),
			})
			continue
		}
		block.Hosts = splitSelectors(hosts)

		for _, tag := range common.ToStringSlice(play["tags"]) {
			if tag == SharedTag {
				block.Shared = true
			}
		}

		roleNames, roleSkips, err := extractRoleNames(play["roles"], path, blockName)
		if err != nil {
			return nil, nil, err
		}
		block.Roles = roleNames
		skipped = append(skipped, roleSkips...)

		// Inclusion directives buried in task lists are not followed
		// either, but the operator needs to know about them.
		for _, section := range []string{"pre_tasks", "tasks", "post_tasks", "handlers"} {
			skipped = append(skipped, scanTaskSection(play[section], path, blockName, section)...)
		}

		blocks = append(blocks, block)
	}

	return blocks, skipped, nil
}

// splitSelectors expands Ansible host patterns ("web:db", "web,db") into
// individual selector names. The "all" pattern is left for the resolver.
func splitSelectors(hosts []string) []string {
	var out []string
	for _, h := range hosts {
		for _, part := range strings.FieldsFunc(h, func(r rune) bool { return r == ':' || r == ',' }) {
			part = strings.TrimSpace(part)
			if part != "" {
				out = append(out, part)
			}
		}
	}
	// An explicit "all" makes the block target every host, same as no
	// selector at all.
	for _, s := range out {
		if s == "all" {
			return nil
		}
	}
	return out
}

func firstTemplated(values []string) string {
	for _, v := range values {
		if common.IsTemplated(v) {
			return v
		}
	}
	return ""
}

// extractRoleNames converts a play's roles section to a list of role names.
// The section may be a list of strings or maps, a map keyed by role name,
// or a single string. Templated or conditional entries become Skipped
// records instead of role names.
func extractRoleNames(rolesRaw interface{}, path, blockName string) ([]string, []Skipped, error) {
	var names []string
	var skipped []Skipped

	addStatic := func(name string) {
		if common.IsTemplated(name) {
			skipped = append(skipped, Skipped{
				File:   path,
				Block:  blockName,
				Reason: fmt.Sprintf("templated role name %q", name),
			})
			return
		}
		names = append(names, name)
	}

	switch roles := rolesRaw.(type) {
	case nil:
		// Play without roles; nothing to resolve.
	case string:
		addStatic(roles)
	case []interface{}:
		for _, entry := range roles {
			switch role := entry.(type) {
			case string:
				addStatic(role)
			case map[string]interface{}:
				name, _ := role["role"].(string)
				if name == "" {
					name, _ = role["name"].(string)
				}
				if name == "" {
					return nil, nil, errors.NewParseError(path,
						fmt.Errorf("%s: role entry missing 'role' or 'name' field", blockName))
				}
				if _, conditional := role["when"]; conditional {
					skipped = append(skipped, Skipped{
						File:   path,
						Block:  blockName,
						Reason: fmt.Sprintf("conditional role %q", name),
					})
					continue
				}
				addStatic(name)
			default:
				return nil, nil, errors.NewParseError(path,
					fmt.Errorf("%s: invalid role entry type %T", blockName, entry))
			}
		}
	case map[string]interface{}:
		keys := make([]string, 0, len(roles))
		for name := range roles {
			keys = append(keys, name)
		}
		sort.Strings(keys)
		for _, name := range keys {
			addStatic(name)
		}
	default:
		return nil, nil, errors.NewParseError(path,
			fmt.Errorf("%s: invalid 'roles' section type %T", blockName, rolesRaw))
	}

	return names, skipped, nil
}

// scanTaskSection reports inclusion directives found inside a task list.
func scanTaskSection(sectionRaw interface{}, path, blockName, section string) []Skipped {
	tasks, ok := common.InterfaceToSlice(sectionRaw)
	if !ok {
		return nil
	}

	var skipped []Skipped
	for _, entry := range tasks {
		task, ok := entry.(map[string]interface{})
		if !ok {
			continue
		}
		if directive := findDirective(task); directive != "" {
			taskName, _ := task["name"].(string)
			if taskName == "" {
				taskName = blockName
			}
			skipped = append(skipped, Skipped{
				File:   path,
				Block:  fmt.Sprintf("%s (%s)", taskName, section),
				Reason: fmt.Sprintf("unsupported inclusion mechanism %q", directive),
			})
		}
	}
	return skipped
}

func findDirective(block map[string]interface{}) string {
	for _, directive := range inclusionDirectives {
		if _, ok := block[directive]; ok {
			return directive
		}
	}
	return ""
}
