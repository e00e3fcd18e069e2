package builtinhooks

import (
	"fmt"
	"strings"

	"github.com/docker/cagentcore/pkg/chat"
	"github.com/docker/cagentcore/pkg/hooks"
)

// MarkdownValidationHook runs on file.save.pre for markdown files and
// warns when the content's triple-backtick fences don't balance. An odd
// fence count usually means a codeblock was cut off mid-generation
// (missing language tags make the parser misread closing backticks), so
// the saved file would be truncated.
//
// The warning does not block the save; it gives the model a chance to
// notice and re-emit the file.
func MarkdownValidationHook(_ hooks.Context, _ hooks.Manager, _ string, path, content string, _ bool) ([]chat.Message, bool, error) {
	if !isMarkdownPath(path) {
		return nil, false, nil
	}
	if countFenceLines(content)%2 == 0 {
		return nil, false, nil
	}

	warning := fmt.Sprintf(
		"Potential markdown codeblock cut-off detected in %s: the file has an unbalanced number of ``` fence delimiters. "+
			"This often happens when codeblocks lack language tags, causing closing backticks to be misinterpreted and content to be cut early. "+
			"Add explicit language tags to all codeblocks and re-save if the file is incomplete.",
		path,
	)
	return []chat.Message{chat.NewSystemMessage(warning)}, false, nil
}

// RegisterMarkdownValidation installs MarkdownValidationHook at priority 1.
func RegisterMarkdownValidation(r *hooks.Registry) {
	r.RegisterFileSavePre("markdown_validation", MarkdownValidationHook, 1)
}

func isMarkdownPath(path string) bool {
	lower := strings.ToLower(path)
	return strings.HasSuffix(lower, ".md") || strings.HasSuffix(lower, ".markdown")
}

// countFenceLines counts lines that open or close a fenced codeblock. A
// fence line starts with ``` after optional indentation; an opening
// fence may carry an info string, a closing one is bare backticks.
func countFenceLines(content string) int {
	count := 0
	for _, line := range strings.Split(content, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			count++
		}
	}
	return count
}
