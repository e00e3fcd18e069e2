// Package toolregistry discovers, lazily initializes, and allow-lists
// chat.ToolSpec instances for one execution context.
//
// Go has no package-introspection-at-runtime equivalent to a dynamic
// module scan, so tools self-register into a process-wide catalog (the
// database/sql driver pattern), and Registry below applies allow-list /
// disabled-by-default / availability filtering plus single-flight
// lazy-start semantics for Init.
package toolregistry

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/docker/cagentcore/pkg/chat"
)

var (
	catalogMu sync.Mutex
	catalog   = map[string]*chat.ToolSpec{}
)

// Register adds spec to the process-wide catalog of known tools. Called
// from a tool package's init(), mirroring the source's module-scanning
// discovery by making every known ToolSpec reachable without a registry
// instance. Panics on a duplicate name: that is a build-time bug, not a
// runtime condition.
func Register(spec *chat.ToolSpec) {
	catalogMu.Lock()
	defer catalogMu.Unlock()
	if _, exists := catalog[spec.Name]; exists {
		panic(fmt.Sprintf("toolregistry: duplicate tool name %q", spec.Name))
	}
	catalog[spec.Name] = spec
}

// Available returns every catalog entry whose Available probe passes (or
// that declares none), sorted by name.
func Available() []*chat.ToolSpec {
	catalogMu.Lock()
	defer catalogMu.Unlock()
	out := make([]*chat.ToolSpec, 0, len(catalog))
	for _, spec := range catalog {
		if spec.Available == nil || spec.Available() {
			out = append(out, spec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Registry is one execution context's loaded toolchain: the catalog
// filtered by allow-list and availability, with lazy at-most-once Init.
// Each conversation/session constructs its own, matching the source's
// per-ContextVar isolation.
type Registry struct {
	mu       sync.Mutex
	loaded   map[string]*chat.ToolSpec
	commands map[string]chat.Command
}

// New builds an empty Registry. Call Load to populate it.
func New() *Registry {
	return &Registry{
		loaded:   map[string]*chat.ToolSpec{},
		commands: map[string]chat.Command{},
	}
}

// Load resolves allowlist against the catalog and stores the resulting
// ToolSpecs, without running Init. A nil allowlist means "every
// available tool not disabled by default". An explicit allowlist entry
// naming an unknown or unavailable tool is an error (the source raises
// ValueError for the same case in get_toolchain).
func (r *Registry) Load(allowlist []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	available := Available()
	byName := make(map[string]*chat.ToolSpec, len(available))
	for _, spec := range available {
		byName[spec.Name] = spec
	}

	if allowlist != nil {
		for _, name := range allowlist {
			spec, ok := byName[name]
			if !ok {
				return fmt.Errorf("tool %q not found or unavailable", name)
			}
			r.loaded[name] = spec
			r.registerCommandsLocked(spec)
		}
		return nil
	}

	for _, spec := range available {
		if spec.DisabledByDefault {
			continue
		}
		r.loaded[spec.Name] = spec
		r.registerCommandsLocked(spec)
	}
	return nil
}

// registerCommandsLocked indexes spec's declared slash-commands by name
// and alias. A later registration under the same name replaces the
// earlier one, matching hook re-registration semantics.
func (r *Registry) registerCommandsLocked(spec *chat.ToolSpec) {
	for _, cmd := range spec.Commands {
		if cmd.Run == nil || cmd.Name == "" {
			continue
		}
		if _, exists := r.commands[cmd.Name]; exists {
			slog.Warn("slash command re-registered", "command", cmd.Name, "tool", spec.Name)
		}
		r.commands[cmd.Name] = cmd
		for _, alias := range cmd.Aliases {
			r.commands[alias] = cmd
		}
	}
}

// Command looks up a loaded slash-command by name or alias.
func (r *Registry) Command(name string) (chat.Command, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cmd, ok := r.commands[name]
	return cmd, ok
}

// CommandNames returns the registered slash-command names (aliases
// included), sorted.
func (r *Registry) CommandNames() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.commands))
	for name := range r.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AddTools merges dynamically discovered ToolSpecs (e.g. MCP proxy
// specs from pkg/mcpproxy) directly into the loaded set, bypassing the
// allow-list/disabled-by-default filtering Load applies to the
// process-wide catalog: an MCP server's toolset is a runtime
// configuration concern, not a compile-time registration, so it has no
// catalog entry to filter. Specs are already initialized (the MCP
// handshake that discovers them doubles as their Init), so Init skips
// them.
func (r *Registry) AddTools(specs []*chat.ToolSpec) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, spec := range specs {
		spec.MarkInitialized()
		r.loaded[spec.Name] = spec
		r.registerCommandsLocked(spec)
	}
}

// Init runs each loaded tool's InitFunc at most once, replacing the
// ToolSpec with the init result when non-nil (some tools discover
// capabilities — e.g. available Functions — only once a backing process
// is live).
func (r *Registry) Init(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for name, spec := range r.loaded {
		if spec.initialized || spec.Init == nil {
			continue
		}
		initialized, err := spec.Init(ctx)
		if err != nil {
			slog.Error("tool init failed", "tool", name, "error", err)
			return fmt.Errorf("init tool %q: %w", name, err)
		}
		if initialized != nil {
			initialized.initialized = true
			r.loaded[name] = initialized
			r.registerCommandsLocked(initialized)
		} else {
			spec.initialized = true
		}
	}
	return nil
}

// Get returns the loaded ToolSpec by name, or nil if it was not loaded
// (not allow-listed, unavailable, or disabled by default).
func (r *Registry) Get(name string) *chat.ToolSpec {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loaded[name]
}

// Has reports whether name is loaded.
func (r *Registry) Has(name string) bool {
	return r.Get(name) != nil
}

// Snapshot returns a name -> ToolSpec map safe to read without the
// registry's lock, used by chat.ToolUse.IsRunnable and the extractor.
func (r *Registry) Snapshot() map[string]*chat.ToolSpec {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]*chat.ToolSpec, len(r.loaded))
	for k, v := range r.loaded {
		out[k] = v
	}
	return out
}

// Names returns the loaded tool names, sorted.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.loaded))
	for name := range r.loaded {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// resetCatalogForTest clears the process-wide catalog; package-internal,
// used by tests that need a clean slate between runs.
func resetCatalogForTest() {
	catalogMu.Lock()
	defer catalogMu.Unlock()
	catalog = map[string]*chat.ToolSpec{}
}
