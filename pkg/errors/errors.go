package errors

import (
	"fmt"
	"strings"
)

// ParseError reports a malformed inventory or playbook file. It is fatal:
// nothing useful can be resolved from a file we cannot read.
type ParseError struct {
	Path  string
	Cause error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse %s: %v", e.Path, e.Cause)
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}

// NewParseError creates a parse error for the given file
func NewParseError(path string, cause error) *ParseError {
	return &ParseError{Path: path, Cause: cause}
}

// CyclicRoleDependencyError reports a loop in role metadata dependencies.
// Chain holds the role names along the loop, ending at the role that
// closed it.
type CyclicRoleDependencyError struct {
	Chain []string
}

func (e *CyclicRoleDependencyError) Error() string {
	return fmt.Sprintf("cyclic role dependency: %s", strings.Join(e.Chain, " -> "))
}

// RoleVariableParseError reports an unparseable variable declaration file
// for a single role. It is role-scoped and non-fatal: the role contributes
// no variables and the run continues.
type RoleVariableParseError struct {
	Role  string
	Path  string
	Cause error
}

func (e *RoleVariableParseError) Error() string {
	return fmt.Sprintf("role %q: failed to parse %s: %v", e.Role, e.Path, e.Cause)
}

func (e *RoleVariableParseError) Unwrap() error {
	return e.Cause
}

// NewRoleVariableParseError creates a role-scoped variable parse error
func NewRoleVariableParseError(role, path string, cause error) *RoleVariableParseError {
	return &RoleVariableParseError{Role: role, Path: path, Cause: cause}
}
