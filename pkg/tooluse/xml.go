package tooluse

import (
	"regexp"
	"strings"

	"github.com/docker/cagentcore/pkg/chat"
)

// RE2 (Go's regexp) has no backreferences, so the gptme XML form's
// <NAME>...</NAME> pair (NAME is the tool name, not a fixed token) can't
// be matched by a single pattern the way <invoke name="...">...</invoke>
// can. toolUseOpen finds the candidate opening tag and extractGptmeXML
// then looks for the matching "</NAME>" by literal string search.
var toolUseBlock = regexp.MustCompile(`<tool-use>`)
var toolUseEnd = regexp.MustCompile(`</tool-use>`)
var toolUseOpen = regexp.MustCompile(`^\s*<([A-Za-z_][\w.-]*)((?:\s+[\w:-]+="[^"]*")*)\s*>`)
var attrPattern = regexp.MustCompile(`([\w:-]+)="([^"]*)"`)

// extractGptmeXML recognizes <tool-use><NAME ...>body</NAME></tool-use>,
// matching one or more blocks per message. A block whose inner content
// doesn't start with a well-formed opening tag, or whose closing tag for
// that tag name is never found, is skipped.
func extractGptmeXML(content string) []chat.ToolUse {
	var out []chat.ToolUse

	opens := toolUseBlock.FindAllStringIndex(content, -1)
	for _, openIdx := range opens {
		closeIdx := toolUseEnd.FindStringIndex(content[openIdx[1]:])
		if closeIdx == nil {
			continue
		}
		innerStart := openIdx[1]
		innerEnd := innerStart + closeIdx[0]
		inner := content[innerStart:innerEnd]
		blockEnd := innerStart + closeIdx[1]

		m := toolUseOpen.FindStringSubmatchIndex(inner)
		if m == nil {
			continue
		}
		tagName := inner[m[2]:m[3]]
		attrsRaw := inner[m[4]:m[5]]
		tagOpenEnd := m[1]

		closeTag := "</" + tagName + ">"
		bodyEnd := strings.LastIndex(inner, closeTag)
		if bodyEnd == -1 || bodyEnd < tagOpenEnd {
			continue
		}
		body := inner[tagOpenEnd:bodyEnd]

		kwargs := map[string]string{}
		for _, am := range attrPattern.FindAllStringSubmatch(attrsRaw, -1) {
			kwargs[am[1]] = am[2]
		}

		out = append(out, chat.ToolUse{
			Tool:        tagName,
			Kwargs:      kwargs,
			Content:     body,
			Source:      chat.SourceGptmeXML,
			StartOffset: openIdx[0],
			EndOffset:   blockEnd,
		})
	}
	return out
}

var functionCallsBlock = regexp.MustCompile(`(?s)<function_calls>(.*?)</function_calls>`)
var invokePattern = regexp.MustCompile(`(?s)<invoke\s+name="([^"]*)"\s*>(.*?)</invoke>`)

// extractInvokeXML recognizes <function_calls><invoke name="NAME">body
// </invoke>...</function_calls>, with multiple <invoke> elements per
// <function_calls> container.
func extractInvokeXML(content string) []chat.ToolUse {
	var out []chat.ToolUse

	for _, block := range functionCallsBlock.FindAllStringSubmatchIndex(content, -1) {
		innerStart, innerEnd := block[2], block[3]
		inner := content[innerStart:innerEnd]

		for _, inv := range invokePattern.FindAllStringSubmatchIndex(inner, -1) {
			name := inner[inv[2]:inv[3]]
			body := inner[inv[4]:inv[5]]
			out = append(out, chat.ToolUse{
				Tool:        name,
				Content:     body,
				Source:      chat.SourceInvokeXML,
				StartOffset: innerStart + inv[0],
				EndOffset:   innerStart + inv[1],
			})
		}
	}
	return out
}
