// Package permissions evaluates tool.confirm precedence against
// configurable Allow/Ask/Deny glob patterns, ahead of any interactive
// fallback.
package permissions

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/docker/cagentcore/pkg/chat"
)

// Decision is the outcome of evaluating a tool call against a Checker's
// patterns.
type Decision int

const (
	// Ask means no pattern matched; fall through to the interactive
	// confirmation hook.
	Ask Decision = iota
	// Allow means the call is auto-approved, skipping confirmation.
	Allow
	// Deny means the call is rejected outright.
	Deny
)

func (d Decision) String() string {
	switch d {
	case Ask:
		return "ask"
	case Allow:
		return "allow"
	case Deny:
		return "deny"
	default:
		return "unknown"
	}
}

// Config is the subset of a session or team's configuration that feeds a
// Checker. Sessions and teams keep their own Config; Stack below
// implements the precedence between them.
type Config struct {
	Allow []string
	Deny  []string
}

// Checker evaluates tool permissions against one Config's Allow/Deny
// pattern lists.
type Checker struct {
	allowPatterns []string
	denyPatterns  []string
}

// NewChecker builds a Checker from cfg. A nil cfg yields an empty
// Checker whose Check always returns Ask.
func NewChecker(cfg *Config) *Checker {
	if cfg == nil {
		return &Checker{}
	}
	return &Checker{allowPatterns: cfg.Allow, denyPatterns: cfg.Deny}
}

// Check evaluates toolName with no argument conditions.
func (c *Checker) Check(toolName string) Decision {
	return c.CheckWithArgs(toolName, nil)
}

// CheckToolUse evaluates a parsed chat.ToolUse, matching argument
// patterns against its Kwargs (positional Args are not addressable by
// name, so only Kwargs participate in "tool:arg=value" conditions).
func (c *Checker) CheckToolUse(tu chat.ToolUse) Decision {
	if len(tu.Kwargs) == 0 {
		return c.Check(tu.Tool)
	}
	args := make(map[string]any, len(tu.Kwargs))
	for k, v := range tu.Kwargs {
		args[k] = v
	}
	return c.CheckWithArgs(tu.Tool, args)
}

// CheckWithArgs evaluates toolName and args against the Checker's
// patterns. Deny is checked before Allow, so a Deny pattern always wins
// a conflict; the default is Ask.
//
// toolName can be "shell" or a qualified name like "mcp:github:create_issue".
// Patterns support plain tool names ("shell", "read_*"), single argument
// conditions ("shell:cmd=ls*"), and multiple conditions joined by more
// ":key=value" segments.
func (c *Checker) CheckWithArgs(toolName string, args map[string]any) Decision {
	for _, pattern := range c.denyPatterns {
		if matchToolPattern(pattern, toolName, args) {
			return Deny
		}
	}
	for _, pattern := range c.allowPatterns {
		if matchToolPattern(pattern, toolName, args) {
			return Allow
		}
	}
	return Ask
}

// IsEmpty reports whether no patterns are configured at all.
func (c *Checker) IsEmpty() bool {
	return len(c.allowPatterns) == 0 && len(c.denyPatterns) == 0
}

func (c *Checker) AllowPatterns() []string { return c.allowPatterns }
func (c *Checker) DenyPatterns() []string  { return c.denyPatterns }

// Stack evaluates a chain of Checkers in decreasing precedence (e.g.
// session config before team config), matching the confirmation
// precedence order: session Permissions, then team Permissions, before
// falling to the tool-declared allow-list and the interactive hook.
type Stack []*Checker

// Check runs each Checker in order and returns the first decisive
// (Allow or Deny) result; Ask only if every Checker asks or the stack is
// empty.
func (s Stack) Check(tu chat.ToolUse) Decision {
	for _, c := range s {
		if c == nil {
			continue
		}
		if d := c.CheckToolUse(tu); d != Ask {
			return d
		}
	}
	return Ask
}

// parsePattern splits "toolname:arg1=val1:arg2=val2" into the tool name
// pattern and a map of argument patterns. A tool name containing colons
// ("mcp:github:create_issue") is preserved intact because the split only
// treats a segment as an argument condition once it contains "=".
func parsePattern(pattern string) (toolPattern string, argPatterns map[string]string) {
	argPatterns = make(map[string]string)
	parts := strings.Split(pattern, ":")
	toolParts := []string{parts[0]}

	for _, part := range parts[1:] {
		if key, value, found := strings.Cut(part, "="); found && key != "" {
			argPatterns[key] = value
		} else if len(argPatterns) == 0 {
			toolParts = append(toolParts, part)
		}
	}

	toolPattern = strings.Join(toolParts, ":")
	return toolPattern, argPatterns
}

func matchToolPattern(pattern, toolName string, args map[string]any) bool {
	toolPattern, argPatterns := parsePattern(pattern)

	if !matchGlob(toolPattern, toolName) {
		return false
	}
	if len(argPatterns) == 0 {
		return true
	}
	if args == nil {
		return false
	}

	for argName, argPattern := range argPatterns {
		argValue, exists := args[argName]
		if !exists {
			return false
		}
		if !matchGlob(argPattern, argToString(argValue)) {
			return false
		}
	}
	return true
}

func argToString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case bool:
		return fmt.Sprintf("%t", val)
	case float64:
		if val == float64(int64(val)) {
			return fmt.Sprintf("%d", int64(val))
		}
		return fmt.Sprintf("%g", val)
	case int, int64:
		return fmt.Sprintf("%d", val)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// matchGlob matches value against pattern using filepath.Match semantics,
// case-insensitively. A bare trailing "*" with no other glob characters
// in its prefix is treated as a plain prefix match so that "sudo*" hits
// "sudo rm -rf /" (filepath.Match's "*" does not match a path
// separator, so it would fail on any value containing "/").
func matchGlob(pattern, value string) bool {
	pattern = strings.ToLower(pattern)
	value = strings.ToLower(value)

	if strings.HasSuffix(pattern, "*") && !strings.HasSuffix(pattern, "\\*") {
		prefix := pattern[:len(pattern)-1]
		if !strings.ContainsAny(prefix, "*?[") {
			return strings.HasPrefix(value, prefix)
		}
	}

	matched, err := filepath.Match(pattern, value)
	return err == nil && matched
}
