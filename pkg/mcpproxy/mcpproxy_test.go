package mcpproxy

import (
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQualifiedName(t *testing.T) {
	assert.Equal(t, "search_web", qualifiedName("search", "web"))
	assert.Equal(t, "web", qualifiedName("", "web"))
}

func TestToolArgumentsFromKwargs(t *testing.T) {
	args, err := toolArguments("", map[string]string{"query": "cats"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"query": "cats"}, args)
}

func TestToolArgumentsFromJSONContent(t *testing.T) {
	args, err := toolArguments(`{"query": "cats", "limit": 5}`, nil)
	require.NoError(t, err)
	assert.Equal(t, "cats", args["query"])
	assert.EqualValues(t, 5, args["limit"])
}

func TestToolArgumentsEmpty(t *testing.T) {
	args, err := toolArguments("  ", nil)
	require.NoError(t, err)
	assert.Empty(t, args)
}

func TestToolArgumentsInvalidJSON(t *testing.T) {
	_, err := toolArguments("not json", nil)
	require.Error(t, err)
}

func TestRenderResultFlattensTextParts(t *testing.T) {
	result := &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: "hello "},
			mcp.TextContent{Type: "text", Text: "world"},
		},
	}
	assert.Equal(t, "hello world", renderResult(result))
}

func TestRenderResultErrorWithNoText(t *testing.T) {
	result := &mcp.CallToolResult{IsError: true}
	assert.Equal(t, "tool call failed", renderResult(result))
}
