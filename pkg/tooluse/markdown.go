package tooluse

import (
	"strings"

	"github.com/docker/cagentcore/pkg/chat"
)

// greedyBlockTypes close on the LAST matching fence in the remainder of
// the message rather than the first, so a save/append/patch body that
// itself contains an example fenced code block (e.g. the assistant is
// writing a markdown file with code samples) is not cut short by its own
// nested triple-backticks. Every other block type closes lazily on the
// nearest matching fence, matching ordinary markdown nesting rules.
var greedyBlockTypes = map[string]bool{
	"save":   true,
	"append": true,
	"patch":  true,
}

// extractMarkdown scans content for fenced code blocks whose info string
// begins with a registered block_type token.
func extractMarkdown(content string, blockTypes map[string]string) []chat.ToolUse {
	var out []chat.ToolUse
	lines := splitLinesKeepOffsets(content)

	i := 0
	for i < len(lines) {
		line := lines[i]
		indent, fenceLen, rest, ok := parseFenceOpen(line.text)
		if !ok {
			i++
			continue
		}

		info := strings.TrimSpace(rest)
		if info == "" {
			i++
			continue
		}
		fields := strings.Fields(info)
		token := fields[0]
		tool, isBlockType := blockTypes[token]
		if !isBlockType {
			i++
			continue
		}
		args := fields[1:]

		closeLine, bodyLines := findFenceClose(lines, i+1, indent, fenceLen, greedyBlockTypes[tool])
		if closeLine == -1 {
			// Unterminated fence: not a valid tool use.
			i++
			continue
		}

		body := joinLines(bodyLines)
		startOffset := line.start
		endOffset := lines[closeLine].end

		out = append(out, chat.ToolUse{
			Tool:        tool,
			Args:        args,
			Content:     body,
			Source:      chat.SourceMarkdown,
			StartOffset: startOffset,
			EndOffset:   endOffset,
		})
		i = closeLine + 1
	}
	return out
}

type lineSpan struct {
	text       string
	start, end int // byte offsets into the original content, end exclusive of newline
}

func splitLinesKeepOffsets(content string) []lineSpan {
	var spans []lineSpan
	start := 0
	for {
		idx := strings.IndexByte(content[start:], '\n')
		if idx == -1 {
			if start < len(content) {
				spans = append(spans, lineSpan{text: content[start:], start: start, end: len(content)})
			}
			break
		}
		end := start + idx
		spans = append(spans, lineSpan{text: content[start:end], start: start, end: end + 1})
		start = end + 1
	}
	return spans
}

func joinLines(lines []lineSpan) string {
	parts := make([]string, len(lines))
	for i, l := range lines {
		parts[i] = l.text
	}
	return strings.Join(parts, "\n")
}

// parseFenceOpen reports whether line is a fence-opening line: leading
// whitespace, 3+ backticks, then an info string. Returns the indent
// prefix, backtick count, and the remainder of the line after the
// backticks.
func parseFenceOpen(line string) (indent string, fenceLen int, rest string, ok bool) {
	trimmed := strings.TrimLeft(line, " \t")
	indent = line[:len(line)-len(trimmed)]
	n := 0
	for n < len(trimmed) && trimmed[n] == '`' {
		n++
	}
	if n < 3 {
		return "", 0, "", false
	}
	return indent, n, trimmed[n:], true
}

// findFenceClose looks for the closing fence starting at line index from.
// A closing line is (same indent) + (>= fenceLen backticks) + nothing
// else. If greedy, the LAST such line is used; otherwise the first.
func findFenceClose(lines []lineSpan, from int, indent string, fenceLen int, greedy bool) (int, []lineSpan) {
	match := -1
	for i := from; i < len(lines); i++ {
		if isFenceClose(lines[i].text, indent, fenceLen) {
			match = i
			if !greedy {
				break
			}
		}
	}
	if match == -1 {
		return -1, nil
	}
	return match, lines[from:match]
}

func isFenceClose(line, indent string, fenceLen int) bool {
	if !strings.HasPrefix(line, indent) {
		return false
	}
	trimmed := strings.TrimRight(line[len(indent):], " \t")
	n := 0
	for n < len(trimmed) && trimmed[n] == '`' {
		n++
	}
	return n >= fenceLen && n == len(trimmed)
}
