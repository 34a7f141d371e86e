// Command docgen renders a Markdown variable reference for every role in a
// project's roles tree. It reads the same defaults and argument spec files
// the generator reads, but is a standalone documentation step, not part of
// config generation.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/AlexanderGrooff/confgen/pkg/roles"
)

func listRoleNames(projectRoot, rolesPath string) ([]string, error) {
	seen := map[string]bool{}
	var names []string
	for _, dir := range strings.Split(rolesPath, ":") {
		dir = strings.TrimSpace(dir)
		if dir == "" {
			continue
		}
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(projectRoot, dir)
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, err
		}
		for _, entry := range entries {
			if entry.IsDir() && !seen[entry.Name()] {
				seen[entry.Name()] = true
				names = append(names, entry.Name())
			}
		}
	}
	sort.Strings(names)
	return names, nil
}

func renderValue(v roles.Variable) string {
	if !v.HasDefault {
		return ""
	}
	return fmt.Sprintf("`%v`", v.Default)
}

func writeRoleDoc(role *roles.Role, docsRoot string) error {
	b := &strings.Builder{}

	title := role.Name
	if role.ShortDescription != "" {
		title = fmt.Sprintf("%s - %s", role.Name, role.ShortDescription)
	}
	fmt.Fprintf(b, "### %s role\n\n", title)
	if role.Description != "" {
		fmt.Fprintf(b, "%s\n\n", role.Description)
	}

	fmt.Fprintf(b, "**Variables**\n\n")
	if len(role.Variables) == 0 {
		fmt.Fprintf(b, "No variables.\n")
	} else {
		fmt.Fprintln(b, "| Variable | Type | Description | Required | Default | Secret |")
		fmt.Fprintln(b, "|---|---|---|---|---|---|")
		for _, v := range role.Variables {
			required := ""
			if v.Required {
				required = "true"
			}
			secret := ""
			if v.Secret {
				secret = "true"
			}
			desc := strings.TrimSpace(strings.ReplaceAll(v.Description, "\n", " "))
			fmt.Fprintf(b, "| %s | %s | %s | %s | %s | %s |\n", v.Name, v.Type, desc, required, renderValue(v), secret)
		}
	}

	outPath := filepath.Join(docsRoot, role.Name+".md")
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return err
	}
	fmt.Printf("Writing doc for %s to %s\n", role.Name, outPath)
	return os.WriteFile(outPath, []byte(b.String()), 0o644)
}

func main() {
	projectRoot := flag.String("project", ".", "path to the automation project root")
	rolesPath := flag.String("roles-path", "roles", "colon-delimited roles search path")
	docsDir := flag.String("out", "docs/roles", "output docs directory")
	only := flag.String("only", "", "only this role name")
	flag.Parse()

	names, err := listRoleNames(*projectRoot, *rolesPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to list roles: %v\n", err)
		os.Exit(1)
	}

	store := roles.NewStore(*projectRoot, *rolesPath)
	failures := 0
	for _, name := range names {
		if *only != "" && name != *only {
			continue
		}
		role, err := store.Load(name)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Skipping role %s: %v\n", name, err)
			failures++
			continue
		}
		if err := writeRoleDoc(role, *docsDir); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write doc for %s: %v\n", name, err)
			os.Exit(1)
		}
	}
	if failures > 0 {
		fmt.Fprintf(os.Stderr, "%d role(s) could not be parsed\n", failures)
	}
}
