// Package config loads the ambient process configuration: the .env file,
// the environment variables the runtime consumes, and an optional YAML
// file of session/team permission patterns.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/docker/cagentcore/pkg/mcpproxy"
	"github.com/docker/cagentcore/pkg/permissions"
	"github.com/docker/cagentcore/pkg/shellsession"
)

// GetConfigDir returns the user's config directory for the runtime,
// falling back to a temp directory if the home directory can't be
// determined.
func GetConfigDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".cagentcore-config")
	}
	return filepath.Join(homeDir, ".config", "cagentcore")
}

// GetDataDir returns the directory conversation logs and debug output
// are written under.
func GetDataDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".cagentcore")
	}
	return filepath.Join(homeDir, ".cagentcore")
}

// LoadDotenv loads a .env file from path (or the current directory's
// .env if path is empty) into the process environment. A missing file
// is not an error: dotenv is a convenience, not a requirement.
func LoadDotenv(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("config: load dotenv: %w", err)
	}
	return nil
}

// Env is the resolved set of environment-variable knobs this runtime reads.
type Env struct {
	// HookAllowlist replaces the default set of hooks initialized per
	// context; nil means "use the built-in defaults".
	HookAllowlist []string
	// ToolAllowlist replaces the default set of tools loaded; nil means
	// "every available tool not disabled by default".
	ToolAllowlist []string
	// ToolModules is TOOL_MODULES split into names. Nothing reads it:
	// tools are registered into toolregistry's catalog at compile time,
	// so no module list is scanned at runtime.
	ToolModules []string
	// ShellTimeout bounds one shell command's run time; zero disables
	// the timeout.
	ShellTimeout time.Duration
	// BreakOnToolUse mirrors GPTME_BREAK_ON_TOOLUSE (default true: only
	// the first runnable tool use per step executes).
	BreakOnToolUse bool
	// ContextTree enables workspace tree listing in generated context.
	ContextTree bool
}

// csvList splits a comma-separated environment value into a trimmed,
// non-empty slice, or nil if the variable is unset/empty.
func csvList(name string) []string {
	raw := os.Getenv(name)
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// LoadEnv reads every environment variable this runtime consumes into an
// Env. GPTME_SHELL_TIMEOUT itself is parsed by shellsession.DefaultTimeout so
// the two packages never disagree about the variable's meaning (unset =
// no timeout, empty/invalid = 60s, <= 0 = disabled).
func LoadEnv() Env {
	breakOnToolUse := true
	if raw := os.Getenv("GPTME_BREAK_ON_TOOLUSE"); raw != "" {
		breakOnToolUse = raw != "0"
	}

	return Env{
		HookAllowlist:  csvList("HOOK_ALLOWLIST"),
		ToolAllowlist:  csvList("TOOL_ALLOWLIST"),
		ToolModules:    csvList("TOOL_MODULES"),
		ShellTimeout:   shellsession.DefaultTimeout(),
		BreakOnToolUse: breakOnToolUse,
		ContextTree:    os.Getenv("GPTME_CONTEXT_TREE") == "1",
	}
}

// File is the optional on-disk YAML configuration: session/team
// permission patterns plus server bind settings. Everything in it has a
// zero-value-is-fine default; LoadFile only fails on a file that exists
// but doesn't parse.
type File struct {
	Permissions permissions.Config `yaml:"permissions"`
	Server      ServerConfig       `yaml:"server"`
	// MCPServers lists stdio MCP servers to connect at startup; each
	// contributes proxy tools via pkg/mcpproxy (spec §4.3 "Tool
	// discovery").
	MCPServers []mcpproxy.Config `yaml:"mcp_servers"`
}

// ServerConfig configures the HTTP rendezvous front-end.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// LoadFile reads and parses a YAML config file at path. A missing file
// returns a zero-value File, not an error — the on-disk config format is
// an optional convenience layer, not a required one.
func LoadFile(path string) (File, error) {
	var f File
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return f, nil
		}
		return f, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &f); err != nil {
		return f, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return f, nil
}
