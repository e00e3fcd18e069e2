package builtinhooks

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/docker/cagentcore/pkg/chat"
	"github.com/docker/cagentcore/pkg/hooks"
)

// maxTreeEntries bounds the workspace listing injected at session start;
// a monorepo must not blow up the prompt.
const maxTreeEntries = 200

// skippedDirs are directories never worth showing the model.
var skippedDirs = map[string]bool{
	".git": true, "node_modules": true, ".venv": true, "__pycache__": true,
}

// RegisterContextTree installs a session.start hook that injects the
// workspace's file tree into the conversation (the GPTME_CONTEXT_TREE
// knob). The message is hidden from terminal display: it is context for
// the model, not chat for the user.
func RegisterContextTree(r *hooks.Registry) {
	r.RegisterSessionStart("context_tree", contextTreeHook, 0)
}

func contextTreeHook(_ hooks.Context, _ string, workspace string, _ []chat.Message) ([]chat.Message, bool, error) {
	if workspace == "" {
		return nil, false, nil
	}
	tree, truncated, err := renderTree(workspace)
	if err != nil {
		return nil, false, fmt.Errorf("context_tree: %w", err)
	}
	if tree == "" {
		return nil, false, nil
	}

	content := "Workspace structure:\n\n" + tree
	if truncated {
		content += fmt.Sprintf("\n... (listing truncated at %d entries)", maxTreeEntries)
	}
	msg := chat.NewSystemMessage(content)
	msg.Hide = true
	return []chat.Message{msg}, false, nil
}

// renderTree walks root and returns an indented listing, reporting
// whether it was cut off at maxTreeEntries.
func renderTree(root string) (string, bool, error) {
	var b strings.Builder
	entries := 0
	truncated := false

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable entries are skipped, not fatal
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil || rel == "." {
			return nil
		}
		if d.IsDir() && (skippedDirs[d.Name()] || strings.HasPrefix(d.Name(), ".")) {
			return filepath.SkipDir
		}
		if strings.HasPrefix(d.Name(), ".") {
			return nil
		}

		if entries >= maxTreeEntries {
			truncated = true
			return filepath.SkipAll
		}
		entries++

		depth := strings.Count(rel, string(filepath.Separator))
		name := d.Name()
		if d.IsDir() {
			name += "/"
		}
		fmt.Fprintf(&b, "%s%s\n", strings.Repeat("  ", depth), name)
		return nil
	})
	if err != nil {
		return "", false, err
	}
	return b.String(), truncated, nil
}
