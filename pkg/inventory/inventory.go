package inventory

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/AlexanderGrooff/confgen/pkg/errors"
)

// AllGroup is the implicit group every host belongs to. It doubles as the
// shared bucket name in the resolution.
const AllGroup = "all"

// Group represents a group of hosts in the inventory
type Group struct {
	Name     string
	Hosts    []string
	Children []string
}

// Inventory represents the parsed host/group structure of a project.
// Groups form a DAG rooted at "all"; cycles are rejected at load time.
type Inventory struct {
	Groups map[string]*Group

	hosts      []string            // first-seen order
	hostSet    map[string]bool
	hostGroups map[string][]string // host -> directly containing groups
	parents    map[string][]string // group -> parent groups

	groupsOfCache map[string][]string
	hostsOfCache  map[string][]string
}

// Load parses an Ansible-style YAML inventory file into an Inventory.
// Returns a *errors.ParseError if the file is unreadable, malformed, empty,
// or if the group hierarchy contains a cycle.
func Load(path string) (*Inventory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewParseError(path, err)
	}

	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, errors.NewParseError(path, err)
	}
	if len(raw) == 0 {
		return nil, errors.NewParseError(path, fmt.Errorf("inventory is empty"))
	}

	inv := &Inventory{
		Groups:        make(map[string]*Group),
		hostSet:       make(map[string]bool),
		hostGroups:    make(map[string][]string),
		parents:       make(map[string][]string),
		groupsOfCache: make(map[string][]string),
		hostsOfCache:  make(map[string][]string),
	}
	inv.ensureGroup(AllGroup)

	// Sort top-level group names so repeated runs walk the file identically.
	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := inv.parseGroup(name, raw[name], path); err != nil {
			return nil, err
		}
	}

	if chain := inv.findCycle(); chain != nil {
		return nil, errors.NewParseError(path, fmt.Errorf("group cycle detected: %v", chain))
	}

	return inv, nil
}

func (inv *Inventory) ensureGroup(name string) *Group {
	if g, ok := inv.Groups[name]; ok {
		return g
	}
	g := &Group{Name: name}
	inv.Groups[name] = g
	return g
}

func (inv *Inventory) addHost(group *Group, host string) {
	if !inv.hostSet[host] {
		inv.hostSet[host] = true
		inv.hosts = append(inv.hosts, host)
	}
	for _, h := range group.Hosts {
		if h == host {
			return
		}
	}
	group.Hosts = append(group.Hosts, host)
	inv.hostGroups[host] = append(inv.hostGroups[host], group.Name)
}

func (inv *Inventory) addChild(parent *Group, child string) {
	for _, c := range parent.Children {
		if c == child {
			return
		}
	}
	parent.Children = append(parent.Children, child)
	inv.parents[child] = append(inv.parents[child], parent.Name)
	inv.ensureGroup(child)
}

// parseGroup handles one group node: an optional "hosts" section (map of
// hostnames or list) and an optional "children" section (map of nested group
// nodes or list of names). Host vars and group vars are not our concern and
// are ignored.
func (inv *Inventory) parseGroup(name string, node interface{}, path string) error {
	group := inv.ensureGroup(name)
	if node == nil {
		return nil
	}

	nodeMap, ok := node.(map[string]interface{})
	if !ok {
		return errors.NewParseError(path, fmt.Errorf("group %q: expected mapping, got %T", name, node))
	}

	if hostsRaw, ok := nodeMap["hosts"]; ok && hostsRaw != nil {
		switch hosts := hostsRaw.(type) {
		case map[string]interface{}:
			hostNames := make([]string, 0, len(hosts))
			for h := range hosts {
				hostNames = append(hostNames, h)
			}
			sort.Strings(hostNames)
			for _, h := range hostNames {
				inv.addHost(group, h)
			}
		case []interface{}:
			for _, h := range hosts {
				hostName, ok := h.(string)
				if !ok {
					return errors.NewParseError(path, fmt.Errorf("group %q: invalid host entry %v", name, h))
				}
				inv.addHost(group, hostName)
			}
		default:
			return errors.NewParseError(path, fmt.Errorf("group %q: invalid 'hosts' section type %T", name, hostsRaw))
		}
	}

	if childrenRaw, ok := nodeMap["children"]; ok && childrenRaw != nil {
		switch children := childrenRaw.(type) {
		case map[string]interface{}:
			childNames := make([]string, 0, len(children))
			for c := range children {
				childNames = append(childNames, c)
			}
			sort.Strings(childNames)
			for _, c := range childNames {
				if c == name {
					return errors.NewParseError(path, fmt.Errorf("group %q lists itself as a child", name))
				}
				inv.addChild(group, c)
				if err := inv.parseGroup(c, children[c], path); err != nil {
					return err
				}
			}
		case []interface{}:
			for _, c := range children {
				childName, ok := c.(string)
				if !ok {
					return errors.NewParseError(path, fmt.Errorf("group %q: invalid child entry %v", name, c))
				}
				if childName == name {
					return errors.NewParseError(path, fmt.Errorf("group %q lists itself as a child", name))
				}
				inv.addChild(group, childName)
			}
		default:
			return errors.NewParseError(path, fmt.Errorf("group %q: invalid 'children' section type %T", name, childrenRaw))
		}
	}

	return nil
}

// findCycle runs a DFS over the child-group edges and returns the offending
// chain if the hierarchy is not a DAG, nil otherwise.
func (inv *Inventory) findCycle() []string {
	const (
		unvisited = 0
		inStack   = 1
		done      = 2
	)
	state := make(map[string]int)

	var visit func(name string, chain []string) []string
	visit = func(name string, chain []string) []string {
		state[name] = inStack
		chain = append(chain, name)
		for _, child := range inv.Groups[name].Children {
			switch state[child] {
			case inStack:
				return append(chain, child)
			case unvisited:
				if bad := visit(child, chain); bad != nil {
					return bad
				}
			}
		}
		state[name] = done
		return nil
	}

	names := make([]string, 0, len(inv.Groups))
	for name := range inv.Groups {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if state[name] == unvisited {
			if bad := visit(name, nil); bad != nil {
				return bad
			}
		}
	}
	return nil
}

// AllHosts returns every known host in first-seen order.
func (inv *Inventory) AllHosts() []string {
	out := make([]string, len(inv.hosts))
	copy(out, inv.hosts)
	return out
}

// HasHost reports whether the inventory knows the given host.
func (inv *Inventory) HasHost(name string) bool {
	return inv.hostSet[name]
}

// HasGroup reports whether the inventory knows the given group.
func (inv *Inventory) HasGroup(name string) bool {
	_, ok := inv.Groups[name]
	return ok
}

// GroupsOf returns the full set of groups the host belongs to, following
// child-group membership transitively up to "all". Sorted, memoized.
func (inv *Inventory) GroupsOf(host string) []string {
	if cached, ok := inv.groupsOfCache[host]; ok {
		return cached
	}

	seen := map[string]bool{AllGroup: true}
	var walk func(group string)
	walk = func(group string) {
		if seen[group] {
			return
		}
		seen[group] = true
		for _, parent := range inv.parents[group] {
			walk(parent)
		}
	}
	for _, g := range inv.hostGroups[host] {
		walk(g)
	}

	out := make([]string, 0, len(seen))
	for g := range seen {
		out = append(out, g)
	}
	sort.Strings(out)
	inv.groupsOfCache[host] = out
	return out
}

// HostsOf returns the hosts of a group including those of all child groups,
// in first-seen order. Memoized.
func (inv *Inventory) HostsOf(group string) []string {
	if cached, ok := inv.hostsOfCache[group]; ok {
		return cached
	}

	var out []string
	if group == AllGroup {
		out = inv.AllHosts()
	} else {
		seen := make(map[string]bool)
		visited := make(map[string]bool)
		var walk func(name string)
		walk = func(name string) {
			if visited[name] {
				return
			}
			visited[name] = true
			g, ok := inv.Groups[name]
			if !ok {
				return
			}
			for _, h := range g.Hosts {
				if !seen[h] {
					seen[h] = true
					out = append(out, h)
				}
			}
			for _, child := range g.Children {
				walk(child)
			}
		}
		walk(group)
	}

	inv.hostsOfCache[group] = out
	return out
}
